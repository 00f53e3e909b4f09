package httpapi_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prose-pod/pod/internal/pod/httpapi"
	"github.com/prose-pod/pod/internal/pod/invitations"
)

func newInvitationsServer(t *testing.T, db *sql.DB, ctl *fakeServerCtl, notifier *fakeNotifier) (*httpapi.Server, string, *invitations.Service) {
	t.Helper()
	srv, token := newAuthedServerWithManager(t, db, noopManager(db))
	invSvc := invitations.New(db, ctl, notifier, time.Hour, "https://dashboard.example.com", "Acme",
		func(ctx context.Context) (string, error) { return "Acme Workspace", nil })
	srv.Invitations = invSvc
	srv.NetConfig.ServerDomain = "example.com"
	return srv, token, invSvc
}

func TestHandleCreateInvitation(t *testing.T) {
	db := testDB(t)
	srv, token, _ := newInvitationsServer(t, db, &fakeServerCtl{}, &fakeNotifier{})

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	body := `{"username":"newuser","pre_assigned_role":"MEMBER","email":"newuser@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/invitations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d; want 201, body=%s", rec.Code, rec.Body.String())
	}
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out["jid"] != "newuser@example.com" {
		t.Errorf("jid = %v; want newuser@example.com", out["jid"])
	}
	if out["status"] != "SENT" {
		t.Errorf("status = %v; want SENT", out["status"])
	}
}

func TestHandleCreateInvitation_AlreadyMember(t *testing.T) {
	db := testDB(t)
	srv, token, _ := newInvitationsServer(t, db, &fakeServerCtl{}, &fakeNotifier{})
	seedMember(t, db, "existing@example.com", "MEMBER")

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	body := `{"username":"existing","pre_assigned_role":"MEMBER","email":"existing@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/invitations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d; want 409, body=%s", rec.Code, rec.Body.String())
	}
}

func TestHandleListInvitations(t *testing.T) {
	db := testDB(t)
	srv, token, invSvc := newInvitationsServer(t, db, &fakeServerCtl{}, &fakeNotifier{})
	if _, err := invSvc.Invite(context.Background(), invitations.Form{
		JID: "pending@example.com", PreAssignedRole: "MEMBER",
		Contact: invitations.Contact{Kind: invitations.ContactKindEmail, Address: "pending@example.com"},
	}); err != nil {
		t.Fatalf("Invite: %v", err)
	}

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/v1/invitations", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200, body=%s", rec.Code, rec.Body.String())
	}
	var out []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("len(out) = %d; want 1", len(out))
	}
}

func TestHandleAcceptInvitation(t *testing.T) {
	db := testDB(t)
	ctl := &fakeServerCtl{}
	srv, _, invSvc := newInvitationsServer(t, db, ctl, &fakeNotifier{})
	inv, err := invSvc.Invite(context.Background(), invitations.Form{
		JID: "joe@example.com", PreAssignedRole: "MEMBER",
		Contact: invitations.Contact{Kind: invitations.ContactKindEmail, Address: "joe@example.com"},
	})
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	body := `{"nickname":"Joe","password":"correct-horse-battery-staple"}`
	req := httptest.NewRequest(http.MethodPut, "/v1/invitations-tokens/"+inv.AcceptToken+"/accept", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d; want 204, body=%s", rec.Code, rec.Body.String())
	}
	if len(ctl.addUserCalls) != 1 || ctl.addUserCalls[0] != "joe@example.com" {
		t.Errorf("expected xmpp user creation for joe, got %v", ctl.addUserCalls)
	}
}

func TestHandleRejectInvitation(t *testing.T) {
	db := testDB(t)
	srv, _, invSvc := newInvitationsServer(t, db, &fakeServerCtl{}, &fakeNotifier{})
	inv, err := invSvc.Invite(context.Background(), invitations.Form{
		JID: "nope@example.com", PreAssignedRole: "MEMBER",
		Contact: invitations.Contact{Kind: invitations.ContactKindEmail, Address: "nope@example.com"},
	})
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodPut, "/v1/invitations-tokens/"+inv.RejectToken+"/reject", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d; want 204, body=%s", rec.Code, rec.Body.String())
	}
}

func TestHandleCancelInvitation(t *testing.T) {
	db := testDB(t)
	srv, token, invSvc := newInvitationsServer(t, db, &fakeServerCtl{}, &fakeNotifier{})
	inv, err := invSvc.Invite(context.Background(), invitations.Form{
		JID: "cancel@example.com", PreAssignedRole: "MEMBER",
		Contact: invitations.Contact{Kind: invitations.ContactKindEmail, Address: "cancel@example.com"},
	})
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodPut, "/v1/invitations/"+strconv.FormatInt(inv.ID, 10)+"/cancel", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d; want 204, body=%s", rec.Code, rec.Body.String())
	}
}
