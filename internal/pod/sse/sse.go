// Package sse implements the network-check streaming pipeline (C11):
// it validates the client-requested retry interval, spawns a
// taskrunner.Run over the requested checks, maps each result onto an
// SSE event, and writes the stream with keep-alives and a terminal
// "end" event.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prose-pod/pod/internal/pod/apperror"
)

// RouteRegistrar is satisfied by *http.ServeMux and by any wrapper
// exposing the same Handle method — the same narrow mounting interface
// the teacher's kuze package uses to register routes without an import
// cycle back to the app package.
type RouteRegistrar interface {
	Handle(pattern string, handler http.Handler)
}

const (
	minRetryInterval = 1 * time.Second
	maxRetryInterval = 60 * time.Second
	keepAliveComment = ": keep-alive\n\n"
)

// Event is a single Server-Sent Event.
type Event struct {
	ID    string
	Name  string
	Data  any
}

// write serializes e as an SSE frame: "id: …\nevent: …\ndata: {…}\n\n".
func (e Event) write(w http.ResponseWriter) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("sse: marshal event data: %w", err)
	}
	if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", e.ID, e.Name, data); err != nil {
		return err
	}
	return nil
}

// ValidateRetryInterval enforces the 1s–60s inclusive bound, returning
// an apperror.CodeBadRequest error with a descriptive reason otherwise.
func ValidateRetryInterval(d time.Duration) error {
	if d < minRetryInterval || d > maxRetryInterval {
		return apperror.New(apperror.CodeBadRequest,
			fmt.Sprintf("retry_interval must be between %s and %s, got %s", minRetryInterval, maxRetryInterval, d))
	}
	return nil
}

// Stream drains results from a producer-order result channel, maps each
// value to an Event via mapEvent, writes it, and flushes after every
// event and on every keep-alive tick. isTerminal reports whether the
// channel closing (or the last value seen) means no further retry is
// scheduled; Stream always emits a final "end" event before returning.
func Stream[T any](w http.ResponseWriter, r *http.Request, results <-chan T, mapEvent func(T) Event) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("sse: response writer does not support flushing")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(15 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return r.Context().Err()
		case result, ok := <-results:
			if !ok {
				return writeEnd(w, flusher)
			}
			if err := mapEvent(result).write(w); err != nil {
				return err
			}
			flusher.Flush()
		case <-keepAlive.C:
			if _, err := w.Write([]byte(keepAliveComment)); err != nil {
				return err
			}
			flusher.Flush()
		}
	}
}

func writeEnd(w http.ResponseWriter, flusher http.Flusher) error {
	if _, err := fmt.Fprint(w, ": End of stream\n"); err != nil {
		return err
	}
	if err := (Event{ID: "end", Name: "end", Data: map[string]string{}}).write(w); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
