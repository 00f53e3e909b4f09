package httpapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prose-pod/pod/internal/pod/members"
	"github.com/prose-pod/pod/internal/pod/serverctl"
)

func TestHandleListMembers(t *testing.T) {
	db := testDB(t)
	srv, token := newAuthedServerWithManager(t, db, noopManager(db))
	seedMember(t, db, "bob@example.com", members.RoleMember)
	srv.Members = members.New(db, &fakeServerCtl{}, time.Minute, nil, nil, nil)

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/v1/members", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200, body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		Items      []map[string]any `json:"items"`
		TotalItems int              `json:"total_items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.TotalItems != 2 {
		t.Errorf("total_items = %d; want 2 (admin + bob)", body.TotalItems)
	}
}

func TestHandleGetMember(t *testing.T) {
	db := testDB(t)
	srv, token := newAuthedServerWithManager(t, db, noopManager(db))
	srv.Members = members.New(db, &fakeServerCtl{}, time.Minute, nil, nil, nil)

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/v1/members/"+adminJID, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200, body=%s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["jid"] != adminJID {
		t.Errorf("jid = %v; want %v", body["jid"], adminJID)
	}
}

func TestHandleGetMember_NotFound(t *testing.T) {
	db := testDB(t)
	srv, token := newAuthedServerWithManager(t, db, noopManager(db))
	srv.Members = members.New(db, &fakeServerCtl{}, time.Minute, nil, nil, nil)

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/v1/members/ghost@example.com", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d; want 404, body=%s", rec.Code, rec.Body.String())
	}
}

func TestHandleSetMemberRole(t *testing.T) {
	db := testDB(t)
	srv, token := newAuthedServerWithManager(t, db, noopManager(db))
	seedMember(t, db, "bob@example.com", members.RoleMember)
	ctl := &fakeServerCtl{}
	srv.Members = members.New(db, ctl, time.Minute, nil, nil, nil)

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	body := `{"role":"ADMIN"}`
	req := httptest.NewRequest(http.MethodPut, "/v1/members/bob@example.com/role", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200, body=%s", rec.Code, rec.Body.String())
	}
	if ctl.setRoleCalls["bob@example.com"] != serverctl.RoleAdmin {
		t.Errorf("expected xmpp role update for bob, got %v", ctl.setRoleCalls)
	}
}

func TestHandleSetMemberRole_CannotChangeOwnRole(t *testing.T) {
	db := testDB(t)
	srv, token := newAuthedServerWithManager(t, db, noopManager(db))
	srv.Members = members.New(db, &fakeServerCtl{}, time.Minute, nil, nil, nil)

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	body := `{"role":"MEMBER"}`
	req := httptest.NewRequest(http.MethodPut, "/v1/members/"+adminJID+"/role", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d; want 403, body=%s", rec.Code, rec.Body.String())
	}
}

func TestHandleDeleteMember(t *testing.T) {
	db := testDB(t)
	srv, token := newAuthedServerWithManager(t, db, noopManager(db))
	seedMember(t, db, "bob@example.com", members.RoleMember)
	ctl := &fakeServerCtl{}
	srv.Members = members.New(db, ctl, time.Minute, nil, nil, nil)

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodDelete, "/v1/members/bob@example.com", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d; want 204, body=%s", rec.Code, rec.Body.String())
	}
	if len(ctl.removeTeamCalls) != 1 || ctl.removeTeamCalls[0] != "bob@example.com" {
		t.Errorf("expected xmpp removal for bob, got %v", ctl.removeTeamCalls)
	}
}
