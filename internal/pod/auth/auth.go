// Package auth implements bearer-token issuance/verification and
// password reset by delegating to the XMPP server's own OAuth2 module.
// The pod never stores passwords itself beyond the process-lifetime
// secrets store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prose-pod/pod/internal/pod/onetimetoken"
)

// UserInfo is the identity a verified token resolves to.
type UserInfo struct {
	JID string
}

// ErrInvalidCredentials is returned by LogIn on a bad password.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// ErrForbidden is returned by Verify when the token is well-formed but
// the server rejects it as unauthorized for the requested scope.
var ErrForbidden = errors.New("auth: forbidden")

// ErrInvalidAuthToken is returned by Verify for a malformed/expired token.
var ErrInvalidAuthToken = errors.New("auth: invalid auth token")

// ErrInvalidOrExpiredResetToken is the single error returned by
// ResetPassword for every way a reset token can fail to redeem — unknown,
// expired, or already used are deliberately indistinguishable so a caller
// cannot enumerate valid tokens by observing which error comes back.
var ErrInvalidOrExpiredResetToken = errors.New("auth: invalid or expired password reset token")

// OAuthClient is the narrow surface of the XMPP server's OAuth2 module
// the auth service needs: a resource-owner-password grant and a
// token-introspection call. Implemented over plain net/http in
// production, faked in tests.
type OAuthClient interface {
	PasswordGrant(ctx context.Context, jid, password string) (token string, err error)
	Introspect(ctx context.Context, token string) (jid string, err error)
}

// ErrOAuthUnauthorized / ErrOAuthForbidden are the classification an
// OAuthClient implementation should return so Service can map them onto
// ErrInvalidCredentials/ErrForbidden per spec.
var (
	ErrOAuthUnauthorized = errors.New("auth: oauth http 401")
	ErrOAuthForbidden    = errors.New("auth: oauth http 403")
)

// Service implements log in, token verification, and password reset.
type Service struct {
	oauth            OAuthClient
	resetTokens      *onetimetoken.Store
	passwordResetTTL time.Duration
}

const resetPurpose = "password_reset"

func New(oauth OAuthClient, resetTokens *onetimetoken.Store, passwordResetTTL time.Duration) *Service {
	return &Service{oauth: oauth, resetTokens: resetTokens, passwordResetTTL: passwordResetTTL}
}

// LogIn exchanges jid/password for a bearer token via the server's
// resource-owner-password grant.
func (s *Service) LogIn(ctx context.Context, jid, password string) (string, error) {
	token, err := s.oauth.PasswordGrant(ctx, jid, password)
	if err != nil {
		if errors.Is(err, ErrOAuthUnauthorized) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("auth: password grant: %w", err)
	}
	return token, nil
}

// Verify resolves a bearer token to the JID it was issued for.
func (s *Service) Verify(ctx context.Context, token string) (UserInfo, error) {
	jid, err := s.oauth.Introspect(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, ErrOAuthUnauthorized):
			return UserInfo{}, ErrInvalidAuthToken
		case errors.Is(err, ErrOAuthForbidden):
			return UserInfo{}, ErrForbidden
		default:
			return UserInfo{}, fmt.Errorf("auth: introspect: %w", err)
		}
	}
	return UserInfo{JID: jid}, nil
}

// RequestPasswordReset issues an opaque, short-TTL reset token bound to
// jid. The token is returned so the invitation/notification layer can
// email it; it is never looked up by JID, only by its own value.
func (s *Service) RequestPasswordReset(ctx context.Context, jid string) (string, error) {
	tok, err := s.resetTokens.Issue(ctx, resetPurpose, jid, s.passwordResetTTL)
	if err != nil {
		return "", fmt.Errorf("auth: issue reset token: %w", err)
	}
	return tok.Value, nil
}

// ResetPassword redeems token and sets newPassword for the bound JID on
// the XMPP server. Any redemption failure — unknown, expired, or
// already-used token — surfaces as the single ErrInvalidOrExpiredResetToken.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string, setPassword func(ctx context.Context, jid, password string) error) error {
	tok, err := s.resetTokens.Redeem(ctx, resetPurpose, token)
	if err != nil {
		if onetimetoken.Invalid(err) {
			return ErrInvalidOrExpiredResetToken
		}
		return fmt.Errorf("auth: redeem reset token: %w", err)
	}
	if err := setPassword(ctx, tok.Subject, newPassword); err != nil {
		return fmt.Errorf("auth: set new password: %w", err)
	}
	return nil
}
