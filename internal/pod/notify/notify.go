// Package notify implements workspace invitation dispatch (C8): a
// tagged-dispatch interface with one production sender (email) today,
// shaped so a future channel is an additive implementation rather than
// a breaking change.
package notify

import (
	"context"

	"github.com/prose-pod/pod/internal/pod/apperror"
	"github.com/prose-pod/pod/internal/pod/invitations"
)

// ErrMissingConfiguration is returned when the configured channel for a
// contact kind has no backing transport set up (e.g. no SMTP server
// configured). Callers map this to 412 Precondition Failed.
var ErrMissingConfiguration = apperror.New(apperror.CodeMissingConfig, "no notifier configured for this contact channel")

// Sender dispatches a single rendered invitation to one contact. Each
// supported invitations.ContactKind has exactly one Sender registered
// in a Dispatcher.
type Sender interface {
	Send(ctx context.Context, contact invitations.Contact, payload invitations.InvitationPayload) error
}

// Dispatcher routes SendWorkspaceInvitation calls to the Sender
// registered for the contact's kind. It implements invitations.Notifier.
type Dispatcher struct {
	senders map[invitations.ContactKind]Sender
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{senders: make(map[invitations.ContactKind]Sender)}
}

// Register wires sender as the handler for kind. Call once per kind at
// startup; a second call for the same kind replaces the first.
func (d *Dispatcher) Register(kind invitations.ContactKind, sender Sender) {
	d.senders[kind] = sender
}

func (d *Dispatcher) SendWorkspaceInvitation(ctx context.Context, contact invitations.Contact, payload invitations.InvitationPayload) error {
	sender, ok := d.senders[contact.Kind]
	if !ok {
		return ErrMissingConfiguration
	}
	if err := sender.Send(ctx, contact, payload); err != nil {
		return apperror.Wrap(apperror.CodeInternal, "notification transport failed", err)
	}
	return nil
}
