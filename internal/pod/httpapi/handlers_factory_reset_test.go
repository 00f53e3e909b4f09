package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prose-pod/pod/internal/pod/onetimetoken"
	"github.com/prose-pod/pod/internal/pod/secrets"
	"github.com/prose-pod/pod/internal/pod/servermanager"
)

func TestHandleFactoryReset_RequestThenConfirm(t *testing.T) {
	db := testDB(t)
	ctl := &fakeServerCtl{}
	manager := servermanager.New(db, ctl, onetimetoken.New(db), secrets.New(), servermanager.AppConfig{})
	if err := manager.Init(context.Background(), servermanager.ServerConfig{
		Domain: "example.com", TLSProfile: servermanager.TLSModern,
		MessageArchiveRetention: servermanager.InfiniteRetention(),
		FileStorageRetention:    servermanager.InfiniteRetention(),
	}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	srv, token := newAuthedServerWithManager(t, db, manager)
	srv.NetConfig.ServerDomain = "example.com"

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	reqBody := `{"password":"` + adminPassword + `"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/server/factory-reset", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("request step: status = %d; want 202, body=%s", rec.Code, rec.Body.String())
	}
	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	code := out["confirmation"]
	if code == "" {
		t.Fatalf("expected a non-empty confirmation code")
	}

	if manager.Restarting.Load() {
		t.Fatalf("Restarting should still be false before confirmation")
	}

	confirmBody := `{"confirmation":"` + code + `"}`
	req2 := httptest.NewRequest(http.MethodPost, "/v1/server/factory-reset", strings.NewReader(confirmBody))
	req2.Header.Set("Content-Type", "application/json")
	req2.Header.Set("Authorization", "Bearer "+token)
	rec2 := httptest.NewRecorder()
	mux.ServeHTTP(rec2, req2)

	if rec2.Code != http.StatusResetContent {
		t.Fatalf("confirm step: status = %d; want 205, body=%s", rec2.Code, rec2.Body.String())
	}
	if !manager.Restarting.Load() {
		t.Errorf("expected Restarting to be true after a confirmed factory reset")
	}
}

func TestHandleFactoryReset_WrongPassword(t *testing.T) {
	db := testDB(t)
	manager := servermanager.New(db, &fakeServerCtl{}, onetimetoken.New(db), secrets.New(), servermanager.AppConfig{})
	if err := manager.Init(context.Background(), servermanager.ServerConfig{
		Domain: "example.com", TLSProfile: servermanager.TLSModern,
		MessageArchiveRetention: servermanager.InfiniteRetention(),
		FileStorageRetention:    servermanager.InfiniteRetention(),
	}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	srv, token := newAuthedServerWithManager(t, db, manager)

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	reqBody := `{"password":"not-the-password"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/server/factory-reset", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d; want 401, body=%s", rec.Code, rec.Body.String())
	}
}

func TestHandleFactoryReset_InvalidConfirmationCode(t *testing.T) {
	db := testDB(t)
	manager := servermanager.New(db, &fakeServerCtl{}, onetimetoken.New(db), secrets.New(), servermanager.AppConfig{})
	if err := manager.Init(context.Background(), servermanager.ServerConfig{
		Domain: "example.com", TLSProfile: servermanager.TLSModern,
		MessageArchiveRetention: servermanager.InfiniteRetention(),
		FileStorageRetention:    servermanager.InfiniteRetention(),
	}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	srv, token := newAuthedServerWithManager(t, db, manager)

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	confirmBody := `{"confirmation":"not-a-real-code"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/server/factory-reset", strings.NewReader(confirmBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want 400, body=%s", rec.Code, rec.Body.String())
	}
}
