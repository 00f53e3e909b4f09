package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prose-pod/pod/internal/pod/apperror"
	"github.com/prose-pod/pod/internal/pod/invitations"
)

type invitationResponse struct {
	ID                   int64  `json:"id"`
	Status               string `json:"status"`
	JID                  string `json:"jid"`
	PreAssignedRole      string `json:"pre_assigned_role"`
	ContactKind          string `json:"contact_kind"`
	ContactAddress       string `json:"contact_address"`
	AcceptTokenExpiresAt string `json:"accept_token_expires_at"`
}

func toInvitationResponse(inv invitations.Invitation) invitationResponse {
	return invitationResponse{
		ID: inv.ID, Status: string(inv.Status), JID: inv.JID,
		PreAssignedRole: string(inv.PreAssignedRole),
		ContactKind:     string(inv.Contact.Kind), ContactAddress: inv.Contact.Address,
		AcceptTokenExpiresAt: inv.AcceptTokenExpiresAt.Format(time.RFC3339),
	}
}

type createInvitationRequest struct {
	Username        string `json:"username"`
	PreAssignedRole string `json:"pre_assigned_role"`
	Email           string `json:"email"`
}

func (s *Server) handleCreateInvitation(w http.ResponseWriter, r *http.Request) {
	var req createInvitationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "create_invitation", err)
		return
	}
	form := invitations.Form{
		JID:             req.Username + "@" + s.NetConfig.ServerDomain,
		PreAssignedRole: invitations.Role(req.PreAssignedRole),
		Contact:         invitations.Contact{Kind: invitations.ContactKindEmail, Address: req.Email},
	}
	inv, err := s.Invitations.Invite(r.Context(), form)
	if err != nil {
		writeError(w, "create_invitation", err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvitationResponse(inv))
}

func (s *Server) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pageNumber, _ := strconv.Atoi(q.Get("page_number"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))
	var until time.Time
	if raw := q.Get("until"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, "list_invitations", apperror.New(apperror.CodeBadRequest, "until must be RFC3339"))
			return
		}
		until = parsed
	}
	invs, err := s.Invitations.List(r.Context(), pageNumber, pageSize, until)
	if err != nil {
		writeError(w, "list_invitations", err)
		return
	}
	out := make([]invitationResponse, len(invs))
	for i, inv := range invs {
		out[i] = toInvitationResponse(inv)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleInvitationTokenDetails(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	tokenType := r.URL.Query().Get("token_type")

	var inv invitations.Invitation
	var err error
	switch tokenType {
	case "reject":
		inv, err = s.Invitations.GetByRejectToken(r.Context(), token)
	default:
		inv, err = s.Invitations.GetByAcceptToken(r.Context(), token)
	}
	if err != nil {
		writeError(w, "invitation_token_details", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvitationResponse(inv))
}

type acceptInvitationRequest struct {
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

func (s *Server) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	var req acceptInvitationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "accept_invitation", err)
		return
	}
	err := s.Invitations.Accept(r.Context(), token, invitations.Acceptance{Nickname: req.Nickname, Password: req.Password})
	if err != nil {
		writeError(w, "accept_invitation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRejectInvitation(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if err := s.Invitations.Reject(r.Context(), token); err != nil {
		writeError(w, "reject_invitation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResendInvitation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, "resend_invitation", apperror.New(apperror.CodeBadRequest, "invalid invitation id"))
		return
	}
	inv, err := s.Invitations.Resend(r.Context(), id)
	if err != nil {
		writeError(w, "resend_invitation", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvitationResponse(inv))
}

func (s *Server) handleCancelInvitation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, "cancel_invitation", apperror.New(apperror.CodeBadRequest, "invalid invitation id"))
		return
	}
	if err := s.Invitations.Cancel(r.Context(), id); err != nil {
		writeError(w, "cancel_invitation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
