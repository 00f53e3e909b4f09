package invitations_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/prose-pod/pod/internal/pod/apperror"
	"github.com/prose-pod/pod/internal/pod/invitations"
	"github.com/prose-pod/pod/internal/pod/serverctl"
	"github.com/prose-pod/pod/internal/pod/store"
)

type fakeController struct {
	serverctl.Controller
	users map[string]string
}

func newFakeController() *fakeController { return &fakeController{users: map[string]string{}} }

func (f *fakeController) AddUser(ctx context.Context, jid, password string) error {
	f.users[jid] = password
	return nil
}

type fakeNotifier struct {
	sent []invitations.Contact
	fail bool
}

func (f *fakeNotifier) SendWorkspaceInvitation(ctx context.Context, contact invitations.Contact, payload invitations.InvitationPayload) error {
	if f.fail {
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, contact)
	return nil
}

func newTestService(t *testing.T, notifier *fakeNotifier, ctl *fakeController) *invitations.Service {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "invitations-test-*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	f.Close()

	s, err := store.New(f.Name())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return invitations.New(s.DB(), ctl, notifier, time.Hour, "https://dashboard.example.com", "Acme", nil)
}

func TestInvite_SuccessMarksSent(t *testing.T) {
	svc := newTestService(t, &fakeNotifier{}, newFakeController())
	ctx := context.Background()

	inv, err := svc.Invite(ctx, invitations.Form{
		JID:             "alice@example.com",
		PreAssignedRole: invitations.RoleMember,
		Contact:         invitations.Contact{Kind: invitations.ContactKindEmail, Address: "alice@example.com"},
	})
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if inv.Status != invitations.StatusSent {
		t.Errorf("expected status SENT, got %q", inv.Status)
	}
	if inv.AcceptToken == inv.RejectToken {
		t.Error("accept and reject tokens must differ")
	}
}

func TestInvite_NotifierFailureMarksSendFailedButSucceeds(t *testing.T) {
	svc := newTestService(t, &fakeNotifier{fail: true}, newFakeController())
	ctx := context.Background()

	inv, err := svc.Invite(ctx, invitations.Form{
		JID:             "bob@example.com",
		PreAssignedRole: invitations.RoleMember,
		Contact:         invitations.Contact{Kind: invitations.ContactKindEmail, Address: "bob@example.com"},
	})
	if err != nil {
		t.Fatalf("Invite should not fail on notifier error: %v", err)
	}
	if inv.Status != invitations.StatusSendFailed {
		t.Errorf("expected status SEND_FAILED, got %q", inv.Status)
	}
}

func TestInvite_DuplicateLiveInvitationRejected(t *testing.T) {
	svc := newTestService(t, &fakeNotifier{}, newFakeController())
	ctx := context.Background()
	form := invitations.Form{
		JID:             "carol@example.com",
		PreAssignedRole: invitations.RoleMember,
		Contact:         invitations.Contact{Kind: invitations.ContactKindEmail, Address: "carol@example.com"},
	}
	if _, err := svc.Invite(ctx, form); err != nil {
		t.Fatalf("first Invite: %v", err)
	}
	_, err := svc.Invite(ctx, form)
	if err == nil {
		t.Fatal("expected second Invite for the same JID to fail")
	}
	appErr, ok := apperror.As(err)
	if !ok || appErr.Code != apperror.CodeInvitationAlreadyExists {
		t.Errorf("expected invitation_already_exists, got %v", err)
	}
}

func TestAccept_CreatesMemberAndDeletesInvitation(t *testing.T) {
	ctl := newFakeController()
	svc := newTestService(t, &fakeNotifier{}, ctl)
	ctx := context.Background()

	inv, err := svc.Invite(ctx, invitations.Form{
		JID:             "dave@example.com",
		PreAssignedRole: invitations.RoleAdmin,
		Contact:         invitations.Contact{Kind: invitations.ContactKindEmail, Address: "dave@example.com"},
	})
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}

	if err := svc.Accept(ctx, inv.AcceptToken, invitations.Acceptance{Nickname: "Dave", Password: "s3cret"}); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if _, ok := ctl.users["dave@example.com"]; !ok {
		t.Error("expected xmpp user to be created")
	}

	if _, err := svc.GetByAcceptToken(ctx, inv.AcceptToken); err == nil {
		t.Error("expected invitation to be gone after accept")
	}
}

func TestGetByAcceptToken_ExpiredLooksLikeNotFound(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "invitations-test-*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	f.Close()
	s, err := store.New(f.Name())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	svc := invitations.New(s.DB(), newFakeController(), &fakeNotifier{}, -time.Minute, "", "", nil)
	inv, err := svc.Invite(context.Background(), invitations.Form{
		JID:             "erin@example.com",
		PreAssignedRole: invitations.RoleMember,
		Contact:         invitations.Contact{Kind: invitations.ContactKindEmail, Address: "erin@example.com"},
	})
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}

	_, err = svc.GetByAcceptToken(context.Background(), inv.AcceptToken)
	if err == nil {
		t.Fatal("expected expired token lookup to fail")
	}
	appErr, ok := apperror.As(err)
	if !ok || appErr.Code != apperror.CodeInvitationNotFound {
		t.Errorf("expected invitation_not_found for expired token, got %v", err)
	}
}

// TestGetByAcceptToken_RejectsExactExpiryInstant pins down the inclusive
// boundary: a token looked up at exactly its accept_token_expires_at
// instant must be rejected, not accepted.
func TestGetByAcceptToken_RejectsExactExpiryInstant(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "invitations-test-*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	f.Close()
	s, err := store.New(f.Name())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	svc := invitations.New(s.DB(), newFakeController(), &fakeNotifier{}, time.Hour, "", "", nil)
	inv, err := svc.Invite(context.Background(), invitations.Form{
		JID:             "frank@example.com",
		PreAssignedRole: invitations.RoleMember,
		Contact:         invitations.Contact{Kind: invitations.ContactKindEmail, Address: "frank@example.com"},
	})
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.DB().Exec(`UPDATE invitations SET accept_token_expires_at = ? WHERE id = ?`, now, inv.ID); err != nil {
		t.Fatalf("force expiry to now: %v", err)
	}

	_, err = svc.GetByAcceptToken(context.Background(), inv.AcceptToken)
	if err == nil {
		t.Fatal("expected token expiring at this exact instant to be rejected")
	}
	appErr, ok := apperror.As(err)
	if !ok || appErr.Code != apperror.CodeInvitationNotFound {
		t.Errorf("expected invitation_not_found at the exact expiry instant, got %v", err)
	}
}

func TestReject_IdempotentForAbsentToken(t *testing.T) {
	svc := newTestService(t, &fakeNotifier{}, newFakeController())
	ctx := context.Background()

	err := svc.Reject(ctx, "nonexistent-token")
	if err == nil {
		t.Fatal("expected not-found error for unknown reject token")
	}
	appErr, ok := apperror.As(err)
	if !ok || appErr.Code != apperror.CodeInvitationNotFound {
		t.Errorf("expected invitation_not_found, got %v", err)
	}
}
