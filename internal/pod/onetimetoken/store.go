// Package onetimetoken provides a generic, single-use, expiring token
// store backed by SQLite. It underlies both the auth service's
// password-reset tokens and the server manager's factory-reset
// confirmation codes: both need "issue an opaque secret bound to a
// subject and an expiry, redeem it exactly once" and nothing more.
package onetimetoken

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when the token does not exist.
var ErrNotFound = errors.New("onetimetoken: not found")

// ErrExpired is returned when the token's TTL has elapsed.
var ErrExpired = errors.New("onetimetoken: expired")

// ErrUsed is returned when the token has already been redeemed.
var ErrUsed = errors.New("onetimetoken: already used")

// Invalid reports whether err is any of the three reasons a token lookup
// fails — callers that must not reveal which reason applies (to avoid
// enumeration) should collapse all three into one response, as auth.Service
// does.
func Invalid(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrExpired) || errors.Is(err, ErrUsed)
}

// Token is a pending (unredeemed) entry.
type Token struct {
	Value     string
	Purpose   string
	Subject   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store manages the onetime_tokens table.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store { return &Store{db: db} }

// Issue creates and persists a new token bound to subject under purpose,
// valid for ttl. Returns the raw token value.
func (s *Store) Issue(ctx context.Context, purpose, subject string, ttl time.Duration) (Token, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return Token{}, fmt.Errorf("onetimetoken: generate entropy: %w", err)
	}
	value := base64.RawURLEncoding.EncodeToString(raw)
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO onetime_tokens (token, purpose, subject, created_at, expires_at, used)
		VALUES (?, ?, ?, ?, ?, 0)
	`, value, purpose, subject, now.Format(time.RFC3339), expiresAt.Format(time.RFC3339))
	if err != nil {
		return Token{}, fmt.Errorf("onetimetoken: insert: %w", err)
	}

	return Token{Value: value, Purpose: purpose, Subject: subject, CreatedAt: now, ExpiresAt: expiresAt}, nil
}

// Redeem validates and burns value inside one transaction, preventing a
// concurrent double-redemption. purpose must match the token's purpose
// or ErrNotFound is returned (cross-purpose tokens are indistinguishable
// from absent ones).
func (s *Store) Redeem(ctx context.Context, purpose, value string) (Token, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Token{}, fmt.Errorf("onetimetoken: begin redeem: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var t Token
	var createdStr, expiresStr, gotPurpose string
	var usedInt int
	err = tx.QueryRowContext(ctx, `
		SELECT purpose, subject, created_at, expires_at, used FROM onetime_tokens WHERE token = ?
	`, value).Scan(&gotPurpose, &t.Subject, &createdStr, &expiresStr, &usedInt)
	if errors.Is(err, sql.ErrNoRows) {
		return Token{}, ErrNotFound
	}
	if err != nil {
		return Token{}, fmt.Errorf("onetimetoken: query for redeem: %w", err)
	}
	if gotPurpose != purpose {
		return Token{}, ErrNotFound
	}
	t.Value = value
	t.Purpose = gotPurpose
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	t.ExpiresAt, _ = time.Parse(time.RFC3339, expiresStr)

	if usedInt != 0 {
		return Token{}, ErrUsed
	}
	// Boundary: a token is invalid exactly AT its expiry instant, matching
	// the "inclusive boundary" rule for accept-token expiry.
	if !time.Now().UTC().Before(t.ExpiresAt) {
		return Token{}, ErrExpired
	}

	res, err := tx.ExecContext(ctx, `UPDATE onetime_tokens SET used = 1 WHERE token = ? AND used = 0`, value)
	if err != nil {
		return Token{}, fmt.Errorf("onetimetoken: burn: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Token{}, ErrUsed
	}
	if err := tx.Commit(); err != nil {
		return Token{}, fmt.Errorf("onetimetoken: commit redeem: %w", err)
	}
	return t, nil
}

// PruneExpired deletes used or expired tokens. Safe to call periodically.
func (s *Store) PruneExpired(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM onetime_tokens WHERE used = 1 OR expires_at < ?
	`, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("onetimetoken: prune: %w", err)
	}
	return nil
}
