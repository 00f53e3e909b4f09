package notify

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/smtp"
	"time"

	"github.com/prose-pod/pod/common/retry"
	"github.com/prose-pod/pod/internal/pod/invitations"
	"github.com/prose-pod/pod/internal/pod/templates/invitation"
)

// SMTPConfig is the subset of notifiers.email configuration an
// EmailSender needs.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailSender delivers workspace invitations over SMTP as a
// multipart/alternative (text + HTML) message, retrying transient send
// failures with the teacher's exponential-backoff helper.
type EmailSender struct {
	cfg        SMTPConfig
	retryCfg   retry.Config
	dialAndSend func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailSender(cfg SMTPConfig) *EmailSender {
	return &EmailSender{
		cfg:         cfg,
		retryCfg:    retry.Config{MaxAttempts: 3, InitialDelay: 500 * time.Millisecond, MaxDelay: 5 * time.Second},
		dialAndSend: smtp.SendMail,
	}
}

func (e *EmailSender) Send(ctx context.Context, contact invitations.Contact, payload invitations.InvitationPayload) error {
	msg, err := buildMessage(e.cfg.From, contact.Address, payload)
	if err != nil {
		return fmt.Errorf("notify: build email: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)
	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	}

	return retry.Do(ctx, e.retryCfg, func() error {
		return e.dialAndSend(addr, auth, e.cfg.From, []string{contact.Address}, msg)
	})
}

func buildMessage(from, to string, payload invitations.InvitationPayload) ([]byte, error) {
	htmlBody, err := invitation.RenderHTML(invitation.Vars{
		WorkspaceName:    payload.WorkspaceName,
		OrganizationName: payload.OrganizationName,
		DashboardURL:     payload.DashboardURL,
		AcceptToken:      payload.AcceptToken,
		RejectToken:      payload.RejectToken,
	})
	if err != nil {
		return nil, err
	}
	textBody, err := invitation.RenderText(invitation.Vars{
		WorkspaceName:    payload.WorkspaceName,
		OrganizationName: payload.OrganizationName,
		DashboardURL:     payload.DashboardURL,
		AcceptToken:      payload.AcceptToken,
		RejectToken:      payload.RejectToken,
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", fmt.Sprintf("You're invited to join %s", payload.WorkspaceName)))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mw.Boundary())

	if err := writePart(mw, "text/plain; charset=utf-8", textBody); err != nil {
		return nil, err
	}
	if err := writePart(mw, "text/html; charset=utf-8", htmlBody); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	return buf.Bytes(), nil
}

func writePart(mw *multipart.Writer, contentType, body string) error {
	header := make(map[string][]string)
	header["Content-Type"] = []string{contentType}
	header["Content-Transfer-Encoding"] = []string{"quoted-printable"}
	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create mime part: %w", err)
	}
	qp := quotedprintable.NewWriter(part)
	if _, err := qp.Write([]byte(body)); err != nil {
		return fmt.Errorf("write quoted-printable body: %w", err)
	}
	return qp.Close()
}
