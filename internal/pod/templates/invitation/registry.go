// Package invitation holds the embedded invitation email templates,
// re-themed from the Gosuto config templates' registry shape: embedded
// filesystem, text/template with "missingkey=error", render into bytes.
package invitation

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed invite.html.tmpl invite.txt.tmpl
var templatesFS embed.FS

// Vars holds values interpolated into the invitation templates.
type Vars struct {
	WorkspaceName    string
	OrganizationName string
	DashboardURL     string
	AcceptToken      string
	RejectToken      string
}

var htmlTmpl = template.Must(template.New("invite.html.tmpl").Option("missingkey=error").ParseFS(templatesFS, "invite.html.tmpl"))
var textTmpl = template.Must(template.New("invite.txt.tmpl").Option("missingkey=error").ParseFS(templatesFS, "invite.txt.tmpl"))

// RenderHTML renders the HTML body of the workspace invitation email.
func RenderHTML(vars Vars) (string, error) {
	var buf bytes.Buffer
	if err := htmlTmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("invitation templates: render html: %w", err)
	}
	return buf.String(), nil
}

// RenderText renders the plain-text body of the workspace invitation email.
func RenderText(vars Vars) (string, error) {
	var buf bytes.Buffer
	if err := textTmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("invitation templates: render text: %w", err)
	}
	return buf.String(), nil
}
