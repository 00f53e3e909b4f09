package httpapi_test

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/prose-pod/pod/internal/pod/auth"
	"github.com/prose-pod/pod/internal/pod/httpapi"
	"github.com/prose-pod/pod/internal/pod/invitations"
	"github.com/prose-pod/pod/internal/pod/members"
	"github.com/prose-pod/pod/internal/pod/onetimetoken"
	"github.com/prose-pod/pod/internal/pod/prosody"
	"github.com/prose-pod/pod/internal/pod/secrets"
	"github.com/prose-pod/pod/internal/pod/serverctl"
	"github.com/prose-pod/pod/internal/pod/servermanager"
	"github.com/prose-pod/pod/internal/pod/store"
	"github.com/prose-pod/pod/internal/pod/workspace"
)

const adminJID = "admin@example.com"
const adminToken = "tok-admin"
const adminPassword = "s3cret"

// fakeOAuthClient resolves a fixed set of bearer tokens to JIDs and a
// fixed set of jid/password pairs to fresh tokens, the same
// narrow-interface fake shape members/service_test.go uses for
// serverctl.Controller.
type fakeOAuthClient struct {
	tokenToJID   map[string]string
	credentials  map[string]string // jid -> password
	loginCounter int
}

func (f *fakeOAuthClient) PasswordGrant(ctx context.Context, jid, password string) (string, error) {
	if want, ok := f.credentials[jid]; !ok || want != password {
		return "", auth.ErrOAuthUnauthorized
	}
	f.loginCounter++
	return jid + "-session-token", nil
}

func (f *fakeOAuthClient) Introspect(ctx context.Context, token string) (string, error) {
	jid, ok := f.tokenToJID[token]
	if !ok {
		return "", auth.ErrOAuthUnauthorized
	}
	return jid, nil
}

// fakeServerCtl is a no-op serverctl.Controller: embedding the
// interface means only the methods a given test actually exercises
// need overriding, the same "embed, override what's exercised" shape
// members/service_test.go's fakeController uses.
type fakeServerCtl struct {
	serverctl.Controller
	addUserCalls    []string
	removeTeamCalls []string
	setRoleCalls    map[string]serverctl.Role
}

func (f *fakeServerCtl) AddUser(ctx context.Context, jid, password string) error {
	f.addUserCalls = append(f.addUserCalls, jid)
	return nil
}

func (f *fakeServerCtl) RemoveUser(ctx context.Context, jid string) error { return nil }

func (f *fakeServerCtl) RemoveTeamMember(ctx context.Context, jid string) error {
	f.removeTeamCalls = append(f.removeTeamCalls, jid)
	return nil
}

func (f *fakeServerCtl) SetUserPassword(ctx context.Context, jid, password string) error { return nil }

func (f *fakeServerCtl) SetUserRole(ctx context.Context, jid string, role serverctl.Role) error {
	if f.setRoleCalls == nil {
		f.setRoleCalls = map[string]serverctl.Role{}
	}
	f.setRoleCalls[jid] = role
	return nil
}

func (f *fakeServerCtl) SaveConfig(ctx context.Context, renderedLua string) error { return nil }
func (f *fakeServerCtl) Reload(ctx context.Context) error                        { return nil }
func (f *fakeServerCtl) ResetConfig(ctx context.Context, bootstrapPassword string) error {
	return nil
}
func (f *fakeServerCtl) DeleteAllData(ctx context.Context) error { return nil }

// fakeNotifier discards every invitation dispatch, recording the last
// payload for assertions, mirroring the teacher's fake-collaborator
// test idiom.
type fakeNotifier struct {
	sent int
}

func (f *fakeNotifier) SendWorkspaceInvitation(ctx context.Context, contact invitations.Contact, payload invitations.InvitationPayload) error {
	f.sent++
	return nil
}

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "httpapi-test-*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	f.Close()
	s, err := store.New(f.Name())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s.DB()
}

func seedMember(t *testing.T, db *sql.DB, jid string, role members.Role) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO members (jid, role, created_at) VALUES (?, ?, ?)`,
		jid, string(role), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		t.Fatalf("seed member %s: %v", jid, err)
	}
}

// noopManager builds a Manager with no backing server_config row —
// enough for rejectWhileRestarting's Restarting flag check, for tests
// that never touch server-config endpoints.
func noopManager(db *sql.DB) *servermanager.Manager {
	return servermanager.New(db, nil, onetimetoken.New(db), secrets.New(), servermanager.AppConfig{})
}

// newAuthedServerWithManager wires an httpapi.Server over db with a
// real auth.Service and members.Service, seeding one admin member
// reachable with the returned bearer token, and the given Manager.
func newAuthedServerWithManager(t *testing.T, db *sql.DB, manager *servermanager.Manager) (*httpapi.Server, string) {
	t.Helper()
	seedMember(t, db, adminJID, members.RoleAdmin)
	oauth := &fakeOAuthClient{
		tokenToJID:  map[string]string{adminToken: adminJID},
		credentials: map[string]string{adminJID: adminPassword},
	}
	authSvc := auth.New(oauth, onetimetoken.New(db), time.Hour)
	memberSvc := members.New(db, nil, time.Minute, nil, nil, nil)

	return &httpapi.Server{
		Auth:    authSvc,
		Members: memberSvc,
		Manager: manager,
	}, adminToken
}

// newAuthedServer is newAuthedServerWithManager plus a workspace
// service and a no-op Manager, for tests that only exercise
// /v1/workspace.
func newAuthedServer(t *testing.T, db *sql.DB, ws *workspace.Service) (*httpapi.Server, string) {
	t.Helper()
	srv, token := newAuthedServerWithManager(t, db, noopManager(db))
	srv.Workspace = ws
	return srv, token
}

// authServiceFromOAuth builds an auth.Service directly over oauth, for
// tests that need bearer tokens beyond the single admin one
// newAuthedServerWithManager wires up.
func authServiceFromOAuth(db *sql.DB, oauth *fakeOAuthClient) *auth.Service {
	return auth.New(oauth, onetimetoken.New(db), time.Hour)
}

func mustDuration(t *testing.T) prosody.Duration {
	t.Helper()
	return prosody.DateLikeDuration(10, prosody.UnitDays)
}
