package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/meetmemo/meetmemo/internal/apperr"
)

// errorBody is the JSON error envelope.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			slog.Warn("response encode failed", "error", err)
		}
	}
}

// writeError translates a kinded error into an HTTP status. Internal errors
// are logged with their cause but never leak it to the client.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	msg := err.Error()
	if kind == apperr.KindInternal {
		log.Error("request failed", "error", err)
		msg = "internal server error"
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case apperr.KindExternal:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads the request body into v, mapping malformed JSON to a
// validation error.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("invalid JSON body: %v", err)
	}
	return nil
}
