package httpapi

import (
	"encoding/base64"
	"encoding/xml"
	"io"
	"net/http"
	"strings"

	"github.com/prose-pod/pod/internal/pod/apperror"
	"github.com/prose-pod/pod/internal/pod/workspace"
)

type workspaceResponse struct {
	Name        string `json:"name"`
	AccentColor string `json:"accent_color,omitempty"`
	Icon        string `json:"icon,omitempty"`
	VCard       string `json:"vcard,omitempty"`
}

func toWorkspaceResponse(ws workspace.Workspace) workspaceResponse {
	resp := workspaceResponse{Name: ws.Name, AccentColor: ws.AccentColor, VCard: ws.VCard}
	if len(ws.Icon) > 0 {
		resp.Icon = base64.StdEncoding.EncodeToString(ws.Icon)
	}
	return resp
}

func (s *Server) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := s.Workspace.Get(r.Context())
	if err != nil {
		writeError(w, "get_workspace", err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkspaceResponse(ws))
}

type putWorkspaceRequest struct {
	Name        *string `json:"name"`
	AccentColor *string `json:"accent_color"`
}

// handlePutWorkspace dispatches on Content-Type: a vCard body
// (text/vcard or application/xml) replaces the stored vCard after a
// well-formedness check only — semantic interpretation of vCard fields
// is out of scope. Anything else is decoded as a JSON partial update.
func (s *Server) handlePutWorkspace(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "text/vcard") || strings.HasPrefix(contentType, "application/xml") || strings.HasPrefix(contentType, "text/xml") {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, "put_workspace", apperror.Wrap(apperror.CodeBadRequest, "could not read body", err))
			return
		}
		var probe any
		if err := xml.Unmarshal(body, &probe); err != nil {
			writeError(w, "put_workspace", apperror.New(apperror.CodeInvalidVCard, "vCard body is not well-formed XML"))
			return
		}
		ws, err := s.Workspace.Update(r.Context(), func(ws *workspace.Workspace) {
			ws.VCard = string(body)
		})
		if err != nil {
			writeError(w, "put_workspace", err)
			return
		}
		writeJSON(w, http.StatusOK, toWorkspaceResponse(ws))
		return
	}

	var req putWorkspaceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "put_workspace", err)
		return
	}
	ws, err := s.Workspace.Update(r.Context(), func(ws *workspace.Workspace) {
		if req.Name != nil {
			ws.Name = *req.Name
		}
		if req.AccentColor != nil {
			ws.AccentColor = *req.AccentColor
		}
	})
	if err != nil {
		writeError(w, "put_workspace", err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkspaceResponse(ws))
}
