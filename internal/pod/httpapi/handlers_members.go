package httpapi

import (
	"net/http"
	"strconv"

	"github.com/prose-pod/pod/internal/pod/members"
)

type memberResponse struct {
	JID  string `json:"jid"`
	Role string `json:"role"`
}

type enrichedMemberResponse struct {
	JID      string  `json:"jid"`
	Role     string  `json:"role"`
	Online   *bool   `json:"online,omitempty"`
	Nickname *string `json:"nickname,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
}

type setRoleRequest struct {
	Role string `json:"role"`
}

type pageResponse[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
}

func (s *Server) handleSetMemberRole(w http.ResponseWriter, r *http.Request) {
	jid := r.PathValue("jid")
	var req setRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "set_member_role", err)
		return
	}
	actor, _ := userFromContext(r.Context())
	if err := s.Members.SetMemberRole(r.Context(), actor.JID, jid, members.Role(req.Role)); err != nil {
		writeError(w, "set_member_role", err)
		return
	}
	writeJSON(w, http.StatusOK, memberResponse{JID: jid, Role: req.Role})
}

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	jid := r.PathValue("jid")
	actor, _ := userFromContext(r.Context())
	if err := s.Members.DeleteUser(r.Context(), actor.JID, jid); err != nil {
		writeError(w, "delete_member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	var result members.Page[members.Member]
	var err error
	if q := r.URL.Query().Get("q"); q != "" {
		result, err = s.Members.SearchMembers(r.Context(), q, page)
	} else {
		result, err = s.Members.GetMembers(r.Context(), page)
	}
	if err != nil {
		writeError(w, "list_members", err)
		return
	}
	items := make([]memberResponse, len(result.Items))
	for i, m := range result.Items {
		items[i] = memberResponse{JID: m.JID, Role: string(m.Role)}
	}
	writeJSON(w, http.StatusOK, pageResponse[memberResponse]{
		Items: items, Page: result.Page, PerPage: result.PerPage, TotalItems: result.TotalItems,
	})
}

func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	jid := r.PathValue("jid")
	m, err := s.Members.Enrich(r.Context(), jid)
	if err != nil {
		writeError(w, "get_member", err)
		return
	}
	writeJSON(w, http.StatusOK, enrichedMemberResponse{
		JID: m.JID, Role: string(m.Role), Online: m.Online, Nickname: m.Nickname, Avatar: m.Avatar,
	})
}
