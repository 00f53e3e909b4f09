package httpapi

import (
	"errors"
	"net/http"

	"github.com/prose-pod/pod/internal/pod/apperror"
	"github.com/prose-pod/pod/internal/pod/auth"
	"github.com/prose-pod/pod/internal/pod/servermanager"
)

type factoryResetRequest struct {
	// Step (a): the acting admin's current password, verified before a
	// confirmation code is issued.
	Password string `json:"password"`
	// Step (b): the code returned by step (a).
	Confirmation string `json:"confirmation"`
}

type factoryResetConfirmationResponse struct {
	Confirmation string `json:"confirmation"`
}

// handleFactoryReset implements the spec's two-step confirm/execute
// challenge: a POST with the admin's password returns a short-lived
// confirmation code (202), and a second POST with that code performs
// the irreversible wipe (205), after which Manager.Restarting causes
// every subsequent request to fail with 503 until the new bootstrap
// configuration is in place.
func (s *Server) handleFactoryReset(w http.ResponseWriter, r *http.Request) {
	var req factoryResetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "factory_reset", err)
		return
	}

	if req.Confirmation != "" {
		bootstrap := servermanager.ServerConfig{
			Domain:                   s.NetConfig.ServerDomain,
			MessageArchiveEnabled:    true,
			FileUploadAllowed:        true,
			FederationEnabled:        true,
			PushNotificationsEnabled: true,
			TLSProfile:               servermanager.TLSModern,
			MessageArchiveRetention:  servermanager.InfiniteRetention(),
			FileStorageRetention:     servermanager.InfiniteRetention(),
		}
		err := s.Manager.ConfirmFactoryReset(r.Context(), req.Confirmation, bootstrap, s.Auth.LogIn)
		if err != nil {
			writeError(w, "factory_reset", err)
			return
		}
		w.WriteHeader(http.StatusResetContent)
		return
	}

	actor, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, "factory_reset", apperror.New(apperror.CodeUnauthorized, "missing authenticated actor"))
		return
	}
	if _, err := s.Auth.LogIn(r.Context(), actor.JID, req.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, "factory_reset", apperror.New(apperror.CodeInvalidCredentials, "invalid password"))
			return
		}
		writeError(w, "factory_reset", apperror.Wrap(apperror.CodeInternal, "password verification failed", err))
		return
	}
	code, err := s.Manager.RequestFactoryResetConfirmation(r.Context())
	if err != nil {
		writeError(w, "factory_reset", err)
		return
	}
	writeJSON(w, http.StatusAccepted, factoryResetConfirmationResponse{Confirmation: code})
}
