// Package app wires configuration into the drafting components shared by
// the server, MCP and Lambda entry points.
package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/parentreply/internal/anthropic"
	"github.com/kalambet/parentreply/internal/api"
	"github.com/kalambet/parentreply/internal/config"
	"github.com/kalambet/parentreply/internal/drafting"
	"github.com/kalambet/parentreply/internal/storage"
)

const defaultProviderTimeout = 60 * time.Second

// App holds the assembled components. Store is nil when history is disabled.
type App struct {
	Drafter *drafting.Drafter
	Store   *storage.Store
	cfg     config.Config
}

// SetupLogging installs the default slog text handler on stderr.
func SetupLogging(level string) {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

// New builds the provider client, the optional history store and the drafter.
func New(cfg config.Config) (*App, error) {
	timeout, err := time.ParseDuration(cfg.Provider.Timeout)
	if err != nil || timeout <= 0 {
		slog.Warn("invalid provider timeout, using default", "value", cfg.Provider.Timeout, "default", defaultProviderTimeout)
		timeout = defaultProviderTimeout
	}

	client := anthropic.NewClient(cfg.Provider.APIKey,
		anthropic.WithBaseURL(cfg.Provider.BaseURL),
		anthropic.WithTimeout(timeout),
	)

	a := &App{cfg: cfg}
	opts := drafting.Options{
		Model:     cfg.Provider.Model,
		MaxTokens: cfg.Provider.MaxTokens,
	}

	if cfg.Storage.HistoryEnabled {
		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening storage: %w", err)
		}
		a.Store = store
		opts.Recorder = store
		slog.Info("draft history enabled", "data_dir", cfg.Storage.DataDir)
	}

	a.Drafter = drafting.New(client, opts)
	return a, nil
}

// Handler returns the HTTP handler. The history endpoints are mounted only
// when history is enabled and an admin token is configured.
func (a *App) Handler() http.Handler {
	deps := api.Deps{Drafter: a.Drafter}
	if a.Store != nil {
		deps.History = a.Store
		deps.AdminToken = a.cfg.Server.AdminToken
		if deps.AdminToken == "" {
			slog.Warn("draft history endpoints disabled: no admin token configured")
		}
	}
	return api.NewHandler(deps)
}

// MCPServer returns the MCP server exposing the drafting tools.
func (a *App) MCPServer() *server.MCPServer {
	deps := api.MCPDeps{Drafter: a.Drafter}
	if a.Store != nil {
		deps.History = a.Store
	}
	return api.NewMCPServer(deps)
}

// Close releases the history store, if any.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
