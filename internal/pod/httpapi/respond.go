package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prose-pod/pod/internal/pod/apperror"
)

// errorEnvelope is the wire shape of every non-2xx response.
type errorEnvelope struct {
	Error               string         `json:"error"`
	Message             string         `json:"message"`
	RecoverySuggestions []string       `json:"recovery_suggestions,omitempty"`
	DebugInfo           map[string]any `json:"debug_info,omitempty"`
}

// writeJSON encodes body as status, the same helper shape as
// control/server.go's writeJSON.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// writeError maps err onto the stable error-code JSON envelope. A bare
// (non-apperror) error is logged and surfaced as an opaque 500 —
// callers never see unclassified internals, the same boundary
// kuze/server.go's handleTokenError and control/server.go's writeError
// draw between classified and unexpected failures.
func writeError(w http.ResponseWriter, op string, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		slog.Error("httpapi: unclassified error", "op", op, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorEnvelope{
			Error:   string(apperror.CodeInternal),
			Message: "internal error",
		})
		return
	}
	if appErr.HTTPStatus() >= http.StatusInternalServerError {
		slog.Error("httpapi: "+op, "code", appErr.Code, "err", err)
	}
	writeJSON(w, appErr.HTTPStatus(), errorEnvelope{
		Error:               string(appErr.Code),
		Message:             appErr.Message,
		RecoverySuggestions: appErr.RecoverySuggestions,
		DebugInfo:           appErr.DebugInfo,
	})
}

// decodeJSON reads and decodes the request body, mapping decode errors
// onto CodeBadRequest.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperror.Wrap(apperror.CodeBadRequest, "invalid request body", err)
	}
	return nil
}
