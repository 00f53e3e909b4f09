package invitations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/prose-pod/pod/internal/pod/apperror"
	"github.com/prose-pod/pod/internal/pod/serverctl"
)

// Notifier dispatches an invitation to its contact channel. The single
// production implementation sends email; the interface exists so the
// notification service's tagged-dispatch design can add channels
// without this package noticing.
type Notifier interface {
	SendWorkspaceInvitation(ctx context.Context, contact Contact, payload InvitationPayload) error
}

// InvitationPayload is everything a Notifier needs to render and
// deliver an invitation message.
type InvitationPayload struct {
	AcceptToken      string
	RejectToken      string
	WorkspaceName    string
	DashboardURL     string
	OrganizationName string
}

// Service implements the invite/accept/reject/resend/cancel state
// machine described for C7.
type Service struct {
	db           *sql.DB
	store        *store
	ctl          serverctl.Controller
	notifier     Notifier
	ttl          time.Duration
	workspaceName func(ctx context.Context) (string, error)
	dashboardURL  string
	orgName       string
}

func New(db *sql.DB, ctl serverctl.Controller, notifier Notifier, invitationTTL time.Duration, dashboardURL, orgName string, workspaceName func(ctx context.Context) (string, error)) *Service {
	return &Service{
		db: db, store: newStore(db), ctl: ctl, notifier: notifier, ttl: invitationTTL,
		dashboardURL: dashboardURL, orgName: orgName, workspaceName: workspaceName,
	}
}

// Invite validates the form, persists a new invitation, and dispatches
// the notifier. A dispatch failure is non-fatal: the invitation is kept
// with status SendFailed and Invite still returns success so the admin
// can see it and retry via Resend.
func (s *Service) Invite(ctx context.Context, form Form) (Invitation, error) {
	var memberExists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM members WHERE jid = ?`, form.JID).Scan(&memberExists); err != nil {
		return Invitation{}, fmt.Errorf("invitations: check existing member: %w", err)
	}
	if memberExists > 0 {
		return Invitation{}, apperror.New(apperror.CodeMemberAlreadyExists, "a member with this JID already exists")
	}

	inv, err := s.store.create(ctx, form, s.ttl)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return Invitation{}, apperror.New(apperror.CodeInvitationAlreadyExists, "a live invitation for this JID already exists")
		}
		return Invitation{}, fmt.Errorf("invitations: create: %w", err)
	}

	if err := s.dispatch(ctx, inv); err != nil {
		if setErr := s.store.setStatus(ctx, inv.ID, StatusSendFailed); setErr != nil {
			return Invitation{}, fmt.Errorf("invitations: mark send_failed after dispatch error %v: %w", err, setErr)
		}
		inv.Status = StatusSendFailed
		return inv, nil
	}
	if err := s.store.setStatus(ctx, inv.ID, StatusSent); err != nil {
		return Invitation{}, fmt.Errorf("invitations: mark sent: %w", err)
	}
	inv.Status = StatusSent
	return inv, nil
}

func (s *Service) dispatch(ctx context.Context, inv Invitation) error {
	name := s.orgName
	if s.workspaceName != nil {
		if n, err := s.workspaceName(ctx); err == nil {
			name = n
		}
	}
	return s.notifier.SendWorkspaceInvitation(ctx, inv.Contact, InvitationPayload{
		AcceptToken:      inv.AcceptToken,
		RejectToken:      inv.RejectToken,
		WorkspaceName:    name,
		DashboardURL:     s.dashboardURL,
		OrganizationName: s.orgName,
	})
}

// GetByAcceptToken resolves a live, unexpired invitation by its accept
// token, returning ErrNotFound both for an unknown token and for an
// expired one — the taxonomy deliberately makes the two
// indistinguishable to a caller.
func (s *Service) GetByAcceptToken(ctx context.Context, token string) (Invitation, error) {
	inv, err := s.store.getByAcceptToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Invitation{}, apperror.New(apperror.CodeInvitationNotFound, "invitation not found")
		}
		return Invitation{}, fmt.Errorf("invitations: get by accept token: %w", err)
	}
	if !time.Now().UTC().Before(inv.AcceptTokenExpiresAt) {
		return Invitation{}, apperror.New(apperror.CodeInvitationNotFound, "invitation not found")
	}
	return inv, nil
}

// GetByRejectToken resolves a live invitation by its reject token.
// Reject tokens do not expire on their own schedule; only the row's
// existence matters.
func (s *Service) GetByRejectToken(ctx context.Context, token string) (Invitation, error) {
	inv, err := s.store.getByRejectToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Invitation{}, apperror.New(apperror.CodeInvitationNotFound, "invitation not found")
		}
		return Invitation{}, fmt.Errorf("invitations: get by reject token: %w", err)
	}
	return inv, nil
}

// Accept redeems token: inside a single DB transaction it inserts the
// Member row and deletes the Invitation row, then commits. XMPP user
// creation on C2 is the non-transactional tail — if it fails the
// transaction is never started; if commit fails after a successful C2
// call, the orphaned XMPP account is cleaned up on the next invite of
// the same JID (add_user on an existing account is idempotent).
func (s *Service) Accept(ctx context.Context, token string, acc Acceptance) error {
	inv, err := s.GetByAcceptToken(ctx, token)
	if err != nil {
		return err
	}

	if err := s.ctl.AddUser(ctx, inv.JID, acc.Password); err != nil {
		return fmt.Errorf("invitations: create xmpp user: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("invitations: begin accept tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `INSERT INTO members (jid, role, created_at) VALUES (?, ?, ?)`,
		inv.JID, string(inv.PreAssignedRole), now); err != nil {
		return fmt.Errorf("invitations: insert member: %w", err)
	}
	if err := s.store.deleteTx(ctx, tx, inv.ID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("invitations: commit accept tx: %w", err)
	}
	return nil
}

// Reject deletes the invitation. Idempotent: an absent token is treated
// as already-rejected rather than an error condition distinguishable
// from "never existed".
func (s *Service) Reject(ctx context.Context, token string) error {
	inv, err := s.store.getByRejectToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperror.New(apperror.CodeInvitationNotFound, "invitation not found")
		}
		return fmt.Errorf("invitations: reject lookup: %w", err)
	}
	if err := s.store.delete(ctx, inv.ID); err != nil {
		return fmt.Errorf("invitations: reject delete: %w", err)
	}
	return nil
}

// Resend regenerates both tokens and the expiry, keeps the same row id,
// and re-dispatches the notifier.
func (s *Service) Resend(ctx context.Context, id int64) (Invitation, error) {
	inv, err := s.store.regenerateTokens(ctx, id, s.ttl)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Invitation{}, apperror.New(apperror.CodeInvitationNotFound, "invitation not found")
		}
		return Invitation{}, fmt.Errorf("invitations: resend: %w", err)
	}
	if err := s.dispatch(ctx, inv); err != nil {
		if setErr := s.store.setStatus(ctx, inv.ID, StatusSendFailed); setErr != nil {
			return Invitation{}, fmt.Errorf("invitations: mark send_failed after resend dispatch error %v: %w", err, setErr)
		}
		inv.Status = StatusSendFailed
		return inv, nil
	}
	if err := s.store.setStatus(ctx, inv.ID, StatusSent); err != nil {
		return Invitation{}, fmt.Errorf("invitations: mark sent after resend: %w", err)
	}
	inv.Status = StatusSent
	return inv, nil
}

const defaultListPageSize = 20

// List returns live invitations created at or before until (zero value
// means no upper bound), paginated (1-indexed pageNumber).
func (s *Service) List(ctx context.Context, pageNumber, pageSize int, until time.Time) ([]Invitation, error) {
	if pageNumber < 1 {
		pageNumber = 1
	}
	if pageSize <= 0 {
		pageSize = defaultListPageSize
	}
	offset := (pageNumber - 1) * pageSize
	invs, err := s.store.list(ctx, until, offset, pageSize)
	if err != nil {
		return nil, fmt.Errorf("invitations: list: %w", err)
	}
	return invs, nil
}

// Cancel is an admin-only deletion of a pending invitation.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	if _, err := s.store.getByID(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperror.New(apperror.CodeInvitationNotFound, "invitation not found")
		}
		return fmt.Errorf("invitations: cancel lookup: %w", err)
	}
	return s.store.delete(ctx, id)
}
