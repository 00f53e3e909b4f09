// Package kv provides a lightweight key/value store backed by a SQLite
// table, used for small operator-facing or lifecycle state that doesn't
// warrant its own schema — currently onboarding_state tracking.
package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get when key has not been set.
var ErrNotFound = errors.New("kv: key not found")

// Store is the read/write interface over the kv_config table.
type Store struct {
	db *sql.DB
}

// New creates a Store backed by db. The kv_config table must already
// exist (created by the store package's migrations).
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_config WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("kv: get %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_config (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, now)
	if err != nil {
		return fmt.Errorf("kv: set %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_config WHERE key = ?`, key); err != nil {
		return fmt.Errorf("kv: delete %q: %w", key, err)
	}
	return nil
}

// --- onboarding state ---

// OnboardingStep names a one-way bootstrap milestone.
type OnboardingStep string

const (
	StepWorkspaceInitialized    OnboardingStep = "workspace_initialized"
	StepServerConfigInitialized OnboardingStep = "server_config_initialized"
	StepFirstAccountCreated     OnboardingStep = "first_account_created"
)

// MarkStepComplete records step as done. Idempotent.
func (s *Store) MarkStepComplete(ctx context.Context, step OnboardingStep) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO onboarding_state (step, completed_at) VALUES (?, ?)
		ON CONFLICT(step) DO NOTHING
	`, string(step), now)
	if err != nil {
		return fmt.Errorf("kv: mark onboarding step %q: %w", step, err)
	}
	return nil
}

// IsStepComplete reports whether step has been recorded as done.
func (s *Store) IsStepComplete(ctx context.Context, step OnboardingStep) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM onboarding_state WHERE step = ?`, string(step)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("kv: check onboarding step %q: %w", step, err)
	}
	return n > 0, nil
}
