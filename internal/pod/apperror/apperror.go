// Package apperror defines the pod's stable error taxonomy and its
// mapping onto the HTTP JSON error envelope. Every component returns
// plain Go errors; apperror.Wrap pins one of these stable codes onto a
// cause so the HTTP layer can map it without each handler re-deriving a
// status code from scratch — the same sentinel-error/errors.Is dispatch
// idiom the control/server.go and kuze/server.go handlers use, pulled
// out into one shared mapper.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, wire-visible error identifier.
type Code string

const (
	CodeUnauthorized               Code = "unauthorized"
	CodeForbidden                  Code = "forbidden"
	CodeNotFound                   Code = "not_found"
	CodeBadRequest                 Code = "bad_request"
	CodeInvalidCredentials         Code = "invalid_credentials"
	CodeInvalidAuthToken           Code = "invalid_auth_token"
	CodeInvitationNotFound         Code = "invitation_not_found"
	CodeInvitationAlreadyExists    Code = "invitation_already_exists"
	CodeMemberAlreadyExists        Code = "member_already_exists"
	CodeWorkspaceNotInitialized    Code = "workspace_not_initialized"
	CodeServerConfigNotInitialized Code = "server_config_not_initialized"
	CodeMissingConfig              Code = "missing_config"
	CodeInvalidVCard               Code = "invalid_vcard"
	CodePasswordResetTokenExpired  Code = "password_reset_token_expired"
	CodeUserLimitReached           Code = "user_limit_reached"
	CodeInvalidConfirmationCode    Code = "invalid_confirmation_code"
	CodeRestarting                 Code = "restarting"
	CodeInternal                   Code = "internal"
)

var httpStatus = map[Code]int{
	CodeUnauthorized:               http.StatusUnauthorized,
	CodeForbidden:                  http.StatusForbidden,
	CodeNotFound:                   http.StatusNotFound,
	CodeBadRequest:                 http.StatusBadRequest,
	CodeInvalidCredentials:         http.StatusUnauthorized,
	CodeInvalidAuthToken:           http.StatusUnauthorized,
	CodeInvitationNotFound:         http.StatusNotFound,
	CodeInvitationAlreadyExists:    http.StatusConflict,
	CodeMemberAlreadyExists:        http.StatusConflict,
	CodeWorkspaceNotInitialized:    http.StatusPreconditionFailed,
	CodeServerConfigNotInitialized: http.StatusPreconditionFailed,
	CodeMissingConfig:              http.StatusPreconditionFailed,
	CodeInvalidVCard:               http.StatusUnprocessableEntity,
	CodePasswordResetTokenExpired:  http.StatusNotFound,
	CodeUserLimitReached:           http.StatusTooManyRequests,
	CodeInvalidConfirmationCode:    http.StatusBadRequest,
	CodeRestarting:                 http.StatusServiceUnavailable,
	CodeInternal:                   http.StatusInternalServerError,
}

// Error is a stable-coded error carrying an optional human message and
// the underlying cause, if any.
type Error struct {
	Code    Code
	Message string
	Cause   error

	// RecoverySuggestions and DebugInfo feed the HTTP JSON error
	// envelope's optional fields; both are nil unless a handler
	// attaches them with WithRecoverySuggestions/WithDebugInfo.
	RecoverySuggestions []string
	DebugInfo           map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// HTTPStatus returns the status code this error's Code maps to.
func (e *Error) HTTPStatus() int {
	if s, ok := httpStatus[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New builds an Error with no cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a stable code and message to cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// WithRecoverySuggestions attaches human-actionable next steps to the
// error envelope and returns e for chaining at the call site.
func (e *Error) WithRecoverySuggestions(suggestions ...string) *Error {
	e.RecoverySuggestions = suggestions
	return e
}

// WithDebugInfo attaches free-form diagnostic context to the error
// envelope and returns e for chaining at the call site.
func (e *Error) WithDebugInfo(info map[string]any) *Error {
	e.DebugInfo = info
	return e
}

// As extracts an *Error from err via errors.As, returning ok=false (and a
// CodeInternal fallback) when err does not carry one — the catch-all
// path for unexpected errors bubbling out of a component.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
