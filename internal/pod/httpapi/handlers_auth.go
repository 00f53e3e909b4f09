package httpapi

import (
	"errors"
	"net/http"

	"github.com/prose-pod/pod/internal/pod/apperror"
	"github.com/prose-pod/pod/internal/pod/auth"
)

type loginResponse struct {
	Token string `json:"token"`
}

// handleLogin exchanges HTTP Basic credentials for a bearer token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	jid, password, ok := r.BasicAuth()
	if !ok {
		writeError(w, "login", apperror.New(apperror.CodeUnauthorized, "missing basic auth credentials"))
		return
	}
	token, err := s.Auth.LogIn(r.Context(), jid, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, "login", apperror.New(apperror.CodeInvalidCredentials, "invalid credentials"))
			return
		}
		writeError(w, "login", apperror.Wrap(apperror.CodeInternal, "login failed", err))
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}
