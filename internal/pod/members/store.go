package members

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no member exists for a given JID.
var ErrNotFound = errors.New("members: not found")

type store struct {
	db *sql.DB
}

func newStore(db *sql.DB) *store { return &store{db: db} }

func (s *store) get(ctx context.Context, jid string) (Member, error) {
	var m Member
	var role, createdAt string
	err := s.db.QueryRowContext(ctx, `SELECT jid, role, created_at FROM members WHERE jid = ?`, jid).
		Scan(&m.JID, &role, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Member{}, ErrNotFound
	}
	if err != nil {
		return Member{}, fmt.Errorf("members: get: %w", err)
	}
	m.Role = Role(role)
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return m, nil
}

// listAll loads every member row; filtering (search) and paging are
// applied in-process afterward, since the corpus size this pod manages
// (a single workspace's membership) never warrants SQL-side paging.
func (s *store) listAll(ctx context.Context) ([]Member, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT jid, role, created_at FROM members ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("members: list: %w", err)
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		var role, createdAt string
		if err := rows.Scan(&m.JID, &role, &createdAt); err != nil {
			return nil, fmt.Errorf("members: scan: %w", err)
		}
		m.Role = Role(role)
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *store) setRole(ctx context.Context, jid string, role Role) error {
	res, err := s.db.ExecContext(ctx, `UPDATE members SET role = ? WHERE jid = ?`, string(role), jid)
	if err != nil {
		return fmt.Errorf("members: set role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("members: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *store) delete(ctx context.Context, jid string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM members WHERE jid = ?`, jid)
	if err != nil {
		return fmt.Errorf("members: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("members: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
