package workspace_test

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/prose-pod/pod/internal/pod/workspace"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec(`CREATE TABLE workspace (
		id INTEGER PRIMARY KEY CHECK (id = 1), name TEXT NOT NULL,
		accent_color TEXT, icon BLOB, vcard TEXT, updated_at TEXT NOT NULL
	)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

func TestService_GetBeforeInit(t *testing.T) {
	db := openTestDB(t)
	svc := workspace.New(db)
	if _, err := svc.Get(context.Background()); err == nil {
		t.Fatalf("expected error before Init")
	}
}

func TestService_InitThenGetThenUpdate(t *testing.T) {
	db := openTestDB(t)
	svc := workspace.New(db)
	ctx := context.Background()

	if err := svc.Init(ctx, workspace.Workspace{Name: "Acme"}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := svc.Init(ctx, workspace.Workspace{Name: "Acme2"}); err == nil {
		t.Fatalf("expected double Init to fail")
	}

	ws, err := svc.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ws.Name != "Acme" {
		t.Errorf("expected name Acme, got %q", ws.Name)
	}

	updated, err := svc.Update(ctx, func(w *workspace.Workspace) { w.AccentColor = "#ff0000" })
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.AccentColor != "#ff0000" {
		t.Errorf("expected updated accent color, got %q", updated.AccentColor)
	}
}
