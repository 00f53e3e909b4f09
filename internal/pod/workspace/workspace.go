// Package workspace owns the single Pod-level identity row (name,
// accent color, icon, vCard) displayed to members.
package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/prose-pod/pod/internal/pod/apperror"
)

// Workspace is the Pod's displayed identity.
type Workspace struct {
	Name        string
	AccentColor string
	Icon        []byte
	VCard       string
	UpdatedAt   time.Time
}

// Service reads and writes the single workspace row, mirroring
// servermanager's single-row-state pattern at a much smaller scale (no
// reload side effect, no composed-config comparison).
type Service struct {
	db *sql.DB
}

func New(db *sql.DB) *Service { return &Service{db: db} }

// Init creates the workspace row if one does not already exist.
func (s *Service) Init(ctx context.Context, ws Workspace) error {
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM workspace WHERE id = 1`).Scan(&exists); err != nil {
		return fmt.Errorf("workspace: check existing row: %w", err)
	}
	if exists > 0 {
		return apperror.New(apperror.CodeBadRequest, "workspace already initialized")
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workspace (id, name, accent_color, icon, vcard, updated_at) VALUES (1, ?, ?, ?, ?, ?)
	`, ws.Name, ws.AccentColor, ws.Icon, ws.VCard, now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("workspace: insert: %w", err)
	}
	return nil
}

// Get returns the workspace row, or CodeWorkspaceNotInitialized if
// Init has not run yet.
func (s *Service) Get(ctx context.Context) (Workspace, error) {
	var ws Workspace
	var accentColor, vcard sql.NullString
	var icon []byte
	var updatedAt string
	err := s.db.QueryRowContext(ctx, `SELECT name, accent_color, icon, vcard, updated_at FROM workspace WHERE id = 1`).
		Scan(&ws.Name, &accentColor, &icon, &vcard, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Workspace{}, apperror.New(apperror.CodeWorkspaceNotInitialized, "workspace not initialized")
	}
	if err != nil {
		return Workspace{}, fmt.Errorf("workspace: get: %w", err)
	}
	ws.AccentColor, ws.Icon, ws.VCard = accentColor.String, icon, vcard.String
	ws.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return ws, nil
}

// Update applies diff to the current workspace row, persisting the
// result.
func (s *Service) Update(ctx context.Context, diff func(*Workspace)) (Workspace, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return Workspace{}, err
	}
	diff(&current)
	current.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		UPDATE workspace SET name = ?, accent_color = ?, icon = ?, vcard = ?, updated_at = ? WHERE id = 1
	`, current.Name, current.AccentColor, current.Icon, current.VCard, current.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return Workspace{}, fmt.Errorf("workspace: update: %w", err)
	}
	return current, nil
}
