package sse_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prose-pod/pod/internal/pod/sse"
)

func TestValidateRetryInterval(t *testing.T) {
	cases := []struct {
		d     time.Duration
		valid bool
	}{
		{999 * time.Millisecond, false},
		{1 * time.Second, true},
		{60 * time.Second, true},
		{60*time.Second + time.Millisecond, false},
	}
	for _, tc := range cases {
		err := sse.ValidateRetryInterval(tc.d)
		if tc.valid && err != nil {
			t.Errorf("ValidateRetryInterval(%s): expected nil, got %v", tc.d, err)
		}
		if !tc.valid && err == nil {
			t.Errorf("ValidateRetryInterval(%s): expected error, got nil", tc.d)
		}
	}
}

func TestStream_WritesEventsThenEnd(t *testing.T) {
	results := make(chan int, 2)
	results <- 1
	results <- 2
	close(results)

	req := httptest.NewRequest(http.MethodGet, "/v1/network/checks", nil)
	w := httptest.NewRecorder()

	err := sse.Stream(w, req, results, func(n int) sse.Event {
		return sse.Event{ID: "check", Name: "result", Data: map[string]int{"n": n}}
	})
	if err != nil {
		t.Fatalf("Stream returned error: %v", err)
	}

	body := w.Body.String()
	if !strings.Contains(body, `"n":1`) || !strings.Contains(body, `"n":2`) {
		t.Errorf("expected both results in body, got %q", body)
	}
	if !strings.Contains(body, "event: end") {
		t.Errorf("expected terminal end event, got %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected text/event-stream content type, got %q", ct)
	}
}

func TestStream_StopsOnContextCancellation(t *testing.T) {
	results := make(chan int)
	defer close(results)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/v1/network/checks", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	cancel()
	err := sse.Stream(w, req, results, func(n int) sse.Event {
		return sse.Event{ID: "x", Name: "result", Data: n}
	})
	if err == nil {
		t.Fatalf("expected Stream to return the cancellation error")
	}
}
