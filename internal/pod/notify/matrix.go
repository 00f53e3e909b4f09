package notify

import (
	"context"
	"fmt"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"

	"github.com/prose-pod/pod/internal/pod/invitations"
)

// ContactKindMatrix is a speculative second contact channel — not
// named anywhere in the operations spec.md describes, but the tagged
// dispatch design exists precisely so adding one is additive. No route
// registers it today.
const ContactKindMatrix invitations.ContactKind = "MATRIX"

// MatrixSender delivers a workspace invitation as a direct message over
// Matrix, for a contact whose Address is a Matrix user ID. It mirrors
// the audit notifier's "resolve or create a DM room, then send a
// notice" shape.
type MatrixSender struct {
	client *mautrix.Client
}

func NewMatrixSender(client *mautrix.Client) *MatrixSender {
	return &MatrixSender{client: client}
}

func (m *MatrixSender) Send(ctx context.Context, contact invitations.Contact, payload invitations.InvitationPayload) error {
	resp, err := m.client.CreateRoom(ctx, &mautrix.ReqCreateRoom{
		Preset:   "trusted_private_chat",
		IsDirect: true,
		Invitees: []id.UserID{id.UserID(contact.Address)},
	})
	if err != nil {
		return fmt.Errorf("notify: create matrix dm room: %w", err)
	}

	msg := fmt.Sprintf(
		"You're invited to join %s. Accept: %s/invitations/%s/accept",
		payload.WorkspaceName, payload.DashboardURL, payload.AcceptToken,
	)
	if _, err := m.client.SendText(ctx, resp.RoomID, msg); err != nil {
		return fmt.Errorf("notify: send matrix invitation: %w", err)
	}
	return nil
}
