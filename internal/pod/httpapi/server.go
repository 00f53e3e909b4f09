// Package httpapi wires every component's HTTP surface onto a single
// net/http.ServeMux using Go 1.22+ method+pattern routing, the same
// stdlib-server idiom as the teacher's gitai/control/server.go and
// internal/ruriko/kuze/server.go.
package httpapi

import (
	"net/http"

	"github.com/prose-pod/pod/internal/pod/auth"
	"github.com/prose-pod/pod/internal/pod/invitations"
	"github.com/prose-pod/pod/internal/pod/kv"
	"github.com/prose-pod/pod/internal/pod/members"
	"github.com/prose-pod/pod/internal/pod/netcheck"
	"github.com/prose-pod/pod/internal/pod/serverctl"
	"github.com/prose-pod/pod/internal/pod/servermanager"
	"github.com/prose-pod/pod/internal/pod/taskrunner"
	"github.com/prose-pod/pod/internal/pod/workspace"
)

// Server bundles every collaborator a route handler needs. It holds no
// behavior of its own beyond dispatch — each field is an
// already-constructed component from the rest of internal/pod.
type Server struct {
	Auth        *auth.Service
	Members     *members.Service
	Invitations *invitations.Service
	Manager     *servermanager.Manager
	Workspace   *workspace.Service
	Controller  serverctl.Controller
	Checker     *netcheck.Checker
	NetConfig   netcheck.PodNetworkConfig
	KV          *kv.Store

	// DefaultRetryInterval seeds the SSE network-check stream when the
	// client omits ?interval=.
	DefaultRetryInterval func() taskrunner.Config

	DashboardURL string
	OrgName      string
}

// RegisterRoutes mounts every route onto r, matching the RouteRegistrar
// narrow-interface idiom servermanager/sse/kuze all share so app can
// wire routes without an import cycle.
func (s *Server) RegisterRoutes(r interface {
	Handle(pattern string, handler http.Handler)
}) {
	h := func(pattern string, fn http.HandlerFunc) {
		r.Handle(pattern, s.rejectWhileRestarting(fn))
	}

	h("POST /v1/login", s.handleLogin)

	h("PUT /v1/members/{jid}/role", s.requireAuth(s.requireAdmin(s.handleSetMemberRole)))
	h("DELETE /v1/members/{jid}", s.requireAuth(s.requireAdmin(s.handleDeleteMember)))
	h("GET /v1/members", s.requireAuth(s.handleListMembers))
	h("GET /v1/members/{jid}", s.requireAuth(s.handleGetMember))

	h("POST /v1/invitations", s.requireAuth(s.requireAdmin(s.handleCreateInvitation)))
	h("GET /v1/invitations", s.requireAuth(s.requireAdmin(s.handleListInvitations)))
	h("GET /v1/invitations-tokens/{token}/details", s.handleInvitationTokenDetails)
	h("PUT /v1/invitations-tokens/{token}/accept", s.handleAcceptInvitation)
	h("PUT /v1/invitations-tokens/{token}/reject", s.handleRejectInvitation)
	h("PUT /v1/invitations/{id}/resend", s.requireAuth(s.requireAdmin(s.handleResendInvitation)))
	h("PUT /v1/invitations/{id}/cancel", s.requireAuth(s.requireAdmin(s.handleCancelInvitation)))

	h("GET /v1/workspace", s.requireAuth(s.handleGetWorkspace))
	h("PUT /v1/workspace", s.requireAuth(s.requireAdmin(s.handlePutWorkspace)))

	h("GET /v1/server/config/{field}", s.requireAuth(s.requireAdmin(s.handleGetServerConfigField)))
	h("PUT /v1/server/config/{field}", s.requireAuth(s.requireAdmin(s.handlePutServerConfigField)))
	h("PUT /v1/server/config/{field}/reset", s.requireAuth(s.requireAdmin(s.handleResetServerConfigField)))

	h("GET /v1/network/checks", s.requireAuth(s.handleNetworkChecksStream))
	h("GET /v1/network/checks/dns", s.requireAuth(s.handleDNSChecksStream))
	h("GET /v1/network/checks/ports", s.requireAuth(s.handlePortChecksStream))
	h("GET /v1/network/checks/connectivity", s.requireAuth(s.handleIPConnectivityChecksStream))
	h("GET /v1/network/dns/records", s.requireAuth(s.requireAdmin(s.handleDNSRecords)))

	h("POST /v1/server/factory-reset", s.requireAuth(s.requireAdmin(s.handleFactoryReset)))
}
