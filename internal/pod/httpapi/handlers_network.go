package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prose-pod/pod/internal/pod/apperror"
	"github.com/prose-pod/pod/internal/pod/netcheck"
	"github.com/prose-pod/pod/internal/pod/sse"
	"github.com/prose-pod/pod/internal/pod/taskrunner"
)

// retryIntervalFromQuery reads ?interval=<seconds>, validating it
// against sse's 1s-60s bound, or falls back to s.DefaultRetryInterval.
func (s *Server) retryIntervalFromQuery(r *http.Request) (time.Duration, error) {
	raw := r.URL.Query().Get("interval")
	if raw == "" {
		return s.DefaultRetryInterval().RetryInterval, nil
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.New(apperror.CodeBadRequest, "interval must be an integer number of seconds")
	}
	d := time.Duration(seconds) * time.Second
	if err := sse.ValidateRetryInterval(d); err != nil {
		return 0, err
	}
	return d, nil
}

func mapCheckEvent(r taskrunner.Result[netcheck.CheckEvent]) sse.Event {
	return sse.Event{ID: r.Value.ID, Name: r.Value.Kind, Data: r.Value}
}

func (s *Server) runCheckStream(w http.ResponseWriter, r *http.Request, tasks []taskrunner.Task[netcheck.CheckEvent]) {
	interval, err := s.retryIntervalFromQuery(r)
	if err != nil {
		writeError(w, "network_checks_stream", err)
		return
	}
	results := taskrunner.Run(r.Context(), tasks, taskrunner.Config{RetryInterval: interval})
	if err := sse.Stream(w, r, results, mapCheckEvent); err != nil {
		// The client disconnected or the stream write failed after
		// headers were already sent; nothing left to do but log.
		slog.Info("httpapi: network checks stream ended", "err", err)
	}
}

func (s *Server) dnsTasks() []taskrunner.Task[netcheck.CheckEvent] {
	checks := s.NetConfig.DNSRecordChecks()
	tasks := make([]taskrunner.Task[netcheck.CheckEvent], len(checks))
	for i, c := range checks {
		tasks[i] = netcheck.NewDNSTask(s.Checker, c)
	}
	return tasks
}

func (s *Server) portTasks() []taskrunner.Task[netcheck.CheckEvent] {
	checks := s.NetConfig.PortReachabilityChecks()
	tasks := make([]taskrunner.Task[netcheck.CheckEvent], len(checks))
	for i, c := range checks {
		tasks[i] = netcheck.NewPortTask(s.Checker, c)
	}
	return tasks
}

func (s *Server) ipTasks() []taskrunner.Task[netcheck.CheckEvent] {
	checks := s.NetConfig.IPConnectivityChecks()
	tasks := make([]taskrunner.Task[netcheck.CheckEvent], len(checks))
	for i, c := range checks {
		tasks[i] = netcheck.NewIPTask(s.Checker, c)
	}
	return tasks
}

func (s *Server) handleNetworkChecksStream(w http.ResponseWriter, r *http.Request) {
	var tasks []taskrunner.Task[netcheck.CheckEvent]
	tasks = append(tasks, s.dnsTasks()...)
	tasks = append(tasks, s.portTasks()...)
	tasks = append(tasks, s.ipTasks()...)
	s.runCheckStream(w, r, tasks)
}

func (s *Server) handleDNSChecksStream(w http.ResponseWriter, r *http.Request) {
	s.runCheckStream(w, r, s.dnsTasks())
}

func (s *Server) handlePortChecksStream(w http.ResponseWriter, r *http.Request) {
	s.runCheckStream(w, r, s.portTasks())
}

func (s *Server) handleIPConnectivityChecksStream(w http.ResponseWriter, r *http.Request) {
	s.runCheckStream(w, r, s.ipTasks())
}

type dnsRecordResponse struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Hostname string   `json:"hostname"`
	Expected []string `json:"expected"`
}

// handleDNSRecords returns the expected DNS record table (not the live
// check results, which belong to the streaming routes above) so an
// admin can configure their registrar before running checks.
func (s *Server) handleDNSRecords(w http.ResponseWriter, r *http.Request) {
	checks := s.NetConfig.DNSRecordChecks()
	out := make([]dnsRecordResponse, len(checks))
	for i, c := range checks {
		out[i] = dnsRecordResponse{ID: c.ID, Type: string(c.Type), Hostname: c.Hostname, Expected: c.Expected}
	}
	writeJSON(w, http.StatusOK, out)
}
