package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingAPIKey is returned by Load when no Anthropic API key is configured.
var ErrMissingAPIKey = errors.New("missing required config: Anthropic API key")

const keychainService = "parentreply"

type Config struct {
	Server   ServerConfig
	Provider ProviderConfig
	Storage  StorageConfig
	Log      LogConfig
}

type ServerConfig struct {
	Host string
	Port int
	// AdminToken guards the draft history endpoints. Empty disables them.
	AdminToken string
}

type ProviderConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   string
}

type StorageConfig struct {
	DataDir        string
	HistoryEnabled bool
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 3000,
		},
		Provider: ProviderConfig{
			BaseURL:   "https://api.anthropic.com",
			Model:     "claude-3-5-sonnet-20241022",
			MaxTokens: 1024,
			Timeout:   "60s",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON config file, environment variables,
// and the platform secret store, in increasing order of precedence for
// everything except secrets. Secrets are never read from the config file.
//
// The Anthropic API key is taken from PARENTREPLY_ANTHROPIC_API_KEY, then
// ANTHROPIC_API_KEY, then the secret store (service: parentreply,
// account: anthropic_api_key).
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()), keychainReader{})
}

// LoadClient reads the same sources as Load but does not require the API
// key. CLI commands that talk to a running server use it.
func LoadClient() (Config, error) {
	return load(newFileBackend(configFilePath()), keychainReader{})
}

// keychain abstracts secret store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg, err := load(b, kc)
	if err != nil {
		return Config{}, err
	}
	if cfg.Provider.APIKey == "" {
		return Config{}, fmt.Errorf("%w. Set it via environment variable ANTHROPIC_API_KEY%s", ErrMissingAPIKey, apiKeyHint())
	}
	return cfg, nil
}

func load(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Provider.APIKey == "" {
		if key, err := kc.Get(keychainService, "anthropic_api_key"); err == nil && key != "" {
			cfg.Provider.APIKey = key
		}
	}
	if cfg.Server.AdminToken == "" {
		if tok, err := kc.Get(keychainService, "admin_token"); err == nil && tok != "" {
			cfg.Server.AdminToken = tok
		}
	}

	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// keychainReader reads secrets from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
