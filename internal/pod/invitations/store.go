package invitations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by the by-ID/by-token lookups when no live
// invitation matches.
var ErrNotFound = errors.New("invitations: not found")

// ErrAlreadyExists is returned by Create when a live invitation for the
// same JID already exists (the partial unique index enforces this at
// the database level; this error is the mapped, typed form of that
// constraint violation).
var ErrAlreadyExists = errors.New("invitations: live invitation already exists for jid")

// store is the persistence layer for invitations, shaped after
// approvals.Store's create/get/resolve pattern.
type store struct {
	db *sql.DB
}

func newStore(db *sql.DB) *store { return &store{db: db} }

func (s *store) create(ctx context.Context, form Form, ttl time.Duration) (Invitation, error) {
	now := time.Now().UTC()
	inv := Invitation{
		CreatedAt:            now,
		Status:               StatusToSend,
		JID:                  form.JID,
		PreAssignedRole:      form.PreAssignedRole,
		Contact:              form.Contact,
		AcceptToken:          uuid.NewString(),
		RejectToken:          uuid.NewString(),
		AcceptTokenExpiresAt: now.Add(ttl),
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO invitations (
			created_at, status, jid, pre_assigned_role, contact_kind, contact_address,
			accept_token, reject_token, accept_token_expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, inv.CreatedAt.Format(time.RFC3339), string(inv.Status), inv.JID, string(inv.PreAssignedRole),
		string(inv.Contact.Kind), inv.Contact.Address,
		inv.AcceptToken, inv.RejectToken, inv.AcceptTokenExpiresAt.Format(time.RFC3339))
	if err != nil {
		if isUniqueViolation(err) {
			return Invitation{}, ErrAlreadyExists
		}
		return Invitation{}, fmt.Errorf("insert invitation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Invitation{}, fmt.Errorf("read invitation id: %w", err)
	}
	inv.ID = id
	return inv, nil
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite wraps the underlying SQLite error message rather
	// than exposing a typed constraint-violation error; matching the
	// driver's own wording is the same approach the teacher's store.go
	// uses for its "likely ID collision; retry" check.
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func scanInvitation(row interface {
	Scan(dest ...any) error
}) (Invitation, error) {
	var inv Invitation
	var createdAt, expiresAt, status, role, kind string
	err := row.Scan(&inv.ID, &createdAt, &status, &inv.JID, &role, &kind, &inv.Contact.Address,
		&inv.AcceptToken, &inv.RejectToken, &expiresAt)
	if err != nil {
		return Invitation{}, err
	}
	inv.Status = Status(status)
	inv.PreAssignedRole = Role(role)
	inv.Contact.Kind = ContactKind(kind)
	inv.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	inv.AcceptTokenExpiresAt, _ = time.Parse(time.RFC3339, expiresAt)
	return inv, nil
}

const selectColumns = `id, created_at, status, jid, pre_assigned_role, contact_kind, contact_address, accept_token, reject_token, accept_token_expires_at`

func (s *store) getByID(ctx context.Context, id int64) (Invitation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM invitations WHERE id = ?`, id)
	inv, err := scanInvitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Invitation{}, ErrNotFound
	}
	if err != nil {
		return Invitation{}, fmt.Errorf("get invitation by id: %w", err)
	}
	return inv, nil
}

func (s *store) getByAcceptToken(ctx context.Context, token string) (Invitation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM invitations WHERE accept_token = ?`, token)
	inv, err := scanInvitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Invitation{}, ErrNotFound
	}
	if err != nil {
		return Invitation{}, fmt.Errorf("get invitation by accept token: %w", err)
	}
	// Defense-in-depth: re-compare the token even though the WHERE clause
	// already matched it, guarding against a future query-shape change
	// accidentally widening the match.
	if inv.AcceptToken != token {
		return Invitation{}, ErrNotFound
	}
	return inv, nil
}

func (s *store) getByRejectToken(ctx context.Context, token string) (Invitation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM invitations WHERE reject_token = ?`, token)
	inv, err := scanInvitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Invitation{}, ErrNotFound
	}
	if err != nil {
		return Invitation{}, fmt.Errorf("get invitation by reject token: %w", err)
	}
	if inv.RejectToken != token {
		return Invitation{}, ErrNotFound
	}
	return inv, nil
}

func (s *store) setStatus(ctx context.Context, id int64, status Status) error {
	_, err := s.db.ExecContext(ctx, `UPDATE invitations SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update invitation status: %w", err)
	}
	return nil
}

func (s *store) regenerateTokens(ctx context.Context, id int64, ttl time.Duration) (Invitation, error) {
	acceptToken, rejectToken := uuid.NewString(), uuid.NewString()
	expiresAt := time.Now().UTC().Add(ttl)
	_, err := s.db.ExecContext(ctx, `
		UPDATE invitations SET accept_token = ?, reject_token = ?, accept_token_expires_at = ?, status = ?
		WHERE id = ?
	`, acceptToken, rejectToken, expiresAt.Format(time.RFC3339), string(StatusToSend), id)
	if err != nil {
		if isUniqueViolation(err) {
			return Invitation{}, ErrAlreadyExists
		}
		return Invitation{}, fmt.Errorf("regenerate invitation tokens: %w", err)
	}
	return s.getByID(ctx, id)
}

// list returns live invitations created at or before until (if
// non-zero), newest first, offset/limited for paging.
func (s *store) list(ctx context.Context, until time.Time, offset, limit int) ([]Invitation, error) {
	query := `SELECT ` + selectColumns + ` FROM invitations`
	args := []any{}
	if !until.IsZero() {
		query += ` WHERE created_at <= ?`
		args = append(args, until.Format(time.RFC3339))
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	var out []Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *store) delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM invitations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	return nil
}

// deleteTx is used by Accept, which must delete the invitation in the
// same transaction that inserts the Member row.
func (s *store) deleteTx(ctx context.Context, tx *sql.Tx, id int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM invitations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete invitation in tx: %w", err)
	}
	return nil
}
