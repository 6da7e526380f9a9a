package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kalambet/parentreply/internal/drafting"
)

// Error strings are part of the public contract; clients match on them.
const (
	msgMissingFields     = "Missing required fields"
	msgUnknownParentType = "Unknown parent type"
	msgMethodNotAllowed  = "Method not allowed"
	msgAPIRequestFailed  = "API request failed"
	msgInternal          = "Internal server error"
	msgNotFound          = "Not found"
	msgUnauthorized      = "Unauthorized"
)

type emailBody struct {
	Email string `json:"email"`
}

type errorBody struct {
	Error string `json:"error"`
}

// mapResult converts the outcome of a draft into the response status and
// body. Provider and internal details never reach the body.
func mapResult(d drafting.Draft, err error) (int, any) {
	if err == nil {
		return http.StatusOK, emailBody{Email: d.Email}
	}

	var pe *drafting.ProviderError
	switch {
	case errors.Is(err, drafting.ErrMissingFields):
		return http.StatusBadRequest, errorBody{Error: msgMissingFields}
	case errors.Is(err, drafting.ErrUnknownParentType):
		return http.StatusBadRequest, errorBody{Error: msgUnknownParentType}
	case errors.As(err, &pe):
		return pe.ResponseStatus(), errorBody{Error: msgAPIRequestFailed}
	default:
		return http.StatusInternalServerError, errorBody{Error: msgInternal}
	}
}

// publicMessage is the caller-facing text for err.
func publicMessage(err error) string {
	_, body := mapResult(drafting.Draft{}, err)
	if eb, ok := body.(errorBody); ok {
		return eb.Error
	}
	return ""
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}

// InternalError writes the generic 500 payload with the CORS headers. Hosts
// use it when a request cannot be built from the incoming event.
var InternalError http.Handler = CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusInternalServerError, msgInternal)
}))
