// Package api exposes the draft generator over HTTP and MCP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/parentreply/internal/anthropic"
	"github.com/kalambet/parentreply/internal/drafting"
	"github.com/kalambet/parentreply/internal/personality"
	"github.com/kalambet/parentreply/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

const (
	defaultDraftsLimit = 20
	maxDraftsLimit     = 100
)

// Drafter generates a reply. *drafting.Drafter satisfies it.
type Drafter interface {
	Draft(ctx context.Context, req drafting.Request) (drafting.Draft, error)
}

// History reads recorded drafts. *storage.Store satisfies it.
type History interface {
	ListDrafts(ctx context.Context, limit, offset int) ([]storage.Draft, error)
	GetDraft(ctx context.Context, id string) (storage.Draft, error)
}

// Deps holds the handler's collaborators.
type Deps struct {
	Drafter Drafter
	// History and AdminToken are optional. The /drafts routes are only
	// mounted when both are set.
	History    History
	AdminToken string
}

// NewHandler returns the HTTP handler. The generation endpoint is served at
// "/" and at "/api/generate-email".
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(CORS)
	r.Use(Recover)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, msgNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	})

	for _, path := range []string{"/", "/api/generate-email"} {
		r.Post(path, handleGenerate(deps.Drafter))
		r.Options(path, handlePreflight)
	}

	r.Get("/health", handleHealth)
	r.Get("/personalities", handlePersonalities)

	if deps.History != nil && deps.AdminToken != "" {
		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(deps.AdminToken))
			r.Get("/drafts", handleListDrafts(deps.History))
			r.Get("/drafts/{id}", handleGetDraft(deps.History))
		})
	}

	return r
}

func handlePreflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handlePersonalities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, personality.All())
}

func handleGenerate(d Drafter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req drafting.Request
		var (
			draft drafting.Draft
			err   error
		)
		if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
			err = decodeErr
		} else {
			draft, err = d.Draft(r.Context(), req)
		}

		if err != nil {
			logDraftError(r, err)
		}
		code, body := mapResult(draft, err)
		writeJSON(w, code, body)
	}
}

func logDraftError(r *http.Request, err error) {
	reqID := middleware.GetReqID(r.Context())

	var (
		pe *drafting.ProviderError
		se *anthropic.StatusError
	)
	switch {
	case errors.Is(err, drafting.ErrMissingFields), errors.Is(err, drafting.ErrUnknownParentType):
		slog.Debug("rejected draft request", "error", err, "request_id", reqID)
	case errors.As(err, &se):
		slog.Error("provider API error", "status", se.StatusCode, "body", se.Body, "request_id", reqID)
	case errors.As(err, &pe):
		slog.Error("provider API error", "error", pe.Err, "request_id", reqID)
	default:
		slog.Error("server error", "error", err, "request_id", reqID)
	}
}

func handleListDrafts(h History) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", defaultDraftsLimit)
		if limit <= 0 {
			limit = defaultDraftsLimit
		}
		if limit > maxDraftsLimit {
			limit = maxDraftsLimit
		}
		offset := max(queryInt(r, "offset", 0), 0)

		drafts, err := h.ListDrafts(r.Context(), limit, offset)
		if err != nil {
			slog.Error("listing drafts", "error", err)
			writeError(w, http.StatusInternalServerError, msgInternal)
			return
		}
		if drafts == nil {
			drafts = []storage.Draft{}
		}
		writeJSON(w, http.StatusOK, drafts)
	}
}

func handleGetDraft(h History) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := h.GetDraft(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, msgNotFound)
			return
		}
		if err != nil {
			slog.Error("getting draft", "error", err)
			writeError(w, http.StatusInternalServerError, msgInternal)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
