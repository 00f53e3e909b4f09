package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/prose-pod/pod/internal/pod/apperror"
	"github.com/prose-pod/pod/internal/pod/auth"
	"github.com/prose-pod/pod/internal/pod/members"
)

// userKey is the unexported context key carrying the authenticated
// caller, following the same WithX/FromContext idiom as common/trace.
type userKey struct{}

func withUser(ctx context.Context, u auth.UserInfo) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

func userFromContext(ctx context.Context) (auth.UserInfo, bool) {
	u, ok := ctx.Value(userKey{}).(auth.UserInfo)
	return u, ok
}

// requireAuth verifies the bearer token and stashes the resolved
// UserInfo in the request context before calling next.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || token == r.Header.Get("Authorization") {
			writeError(w, "require_auth", apperror.New(apperror.CodeUnauthorized, "missing bearer token"))
			return
		}
		info, err := s.Auth.Verify(r.Context(), token)
		if err != nil {
			writeError(w, "require_auth", classifyAuthError(err))
			return
		}
		next(w, r.WithContext(withUser(r.Context(), info)))
	}
}

func classifyAuthError(err error) error {
	switch {
	case err == auth.ErrInvalidAuthToken:
		return apperror.New(apperror.CodeInvalidAuthToken, "invalid or expired token")
	case err == auth.ErrForbidden:
		return apperror.New(apperror.CodeForbidden, "forbidden")
	default:
		return apperror.Wrap(apperror.CodeInternal, "token verification failed", err)
	}
}

// requireAdmin wraps a requireAuth-protected handler with a role check;
// it must be composed after requireAuth: s.requireAuth(s.requireAdmin(h)).
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, ok := userFromContext(r.Context())
		if !ok {
			writeError(w, "require_admin", apperror.New(apperror.CodeUnauthorized, "missing bearer token"))
			return
		}
		m, err := s.Members.Get(r.Context(), info.JID)
		if err != nil {
			writeError(w, "require_admin", apperror.New(apperror.CodeForbidden, "forbidden"))
			return
		}
		if m.Role != members.RoleAdmin {
			writeError(w, "require_admin", apperror.New(apperror.CodeForbidden, "admin role required"))
			return
		}
		next(w, r)
	}
}

// rejectWhileRestarting short-circuits every request with 503 while a
// factory reset is in progress, per spec's "restarting" flag design.
func (s *Server) rejectWhileRestarting(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Manager.Restarting.Load() {
			w.Header().Set("Retry-After", strconv.Itoa(1))
			writeError(w, "restarting", apperror.New(apperror.CodeRestarting, "server is restarting"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
