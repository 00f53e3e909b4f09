package httpapi_test

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prose-pod/pod/internal/pod/auth"
	"github.com/prose-pod/pod/internal/pod/httpapi"
	"github.com/prose-pod/pod/internal/pod/onetimetoken"
)

func basicAuthHeader(jid, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(jid+":"+password))
}

func TestHandleLogin(t *testing.T) {
	db := testDB(t)
	oauth := &fakeOAuthClient{credentials: map[string]string{adminJID: adminPassword}}
	srv := &httpapi.Server{
		Auth:    auth.New(oauth, onetimetoken.New(db), time.Hour),
		Manager: noopManager(db),
	}

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, "/v1/login", nil)
	req.Header.Set("Authorization", basicAuthHeader(adminJID, adminPassword))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200, body=%s", rec.Code, rec.Body.String())
	}
}

func TestHandleLogin_WrongPassword(t *testing.T) {
	db := testDB(t)
	oauth := &fakeOAuthClient{credentials: map[string]string{adminJID: adminPassword}}
	srv := &httpapi.Server{
		Auth:    auth.New(oauth, onetimetoken.New(db), time.Hour),
		Manager: noopManager(db),
	}

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, "/v1/login", nil)
	req.Header.Set("Authorization", basicAuthHeader(adminJID, "wrong"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d; want 401, body=%s", rec.Code, rec.Body.String())
	}
}

func TestHandleLogin_MissingCredentials(t *testing.T) {
	db := testDB(t)
	oauth := &fakeOAuthClient{}
	srv := &httpapi.Server{
		Auth:    auth.New(oauth, onetimetoken.New(db), time.Hour),
		Manager: noopManager(db),
	}

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, "/v1/login", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d; want 401, body=%s", rec.Code, rec.Body.String())
	}
}
