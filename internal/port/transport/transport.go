// Package transport defines the chat transport port. The actual WhatsApp
// session lives in an external bridge process; this interface is everything
// the moderation core needs from it.
package transport

import (
	"context"
	"time"

	"github.com/Strob0t/GroupWarden/internal/domain/member"
	"github.com/Strob0t/GroupWarden/internal/domain/moderation"
)

// Reaction is an emoji reaction to a message, as seen by the transport.
// It carries the original message's identifier, never a review id.
type Reaction struct {
	MessageID string    `json:"message_id"`
	ReactorID string    `json:"reactor_id"`
	Emoji     string    `json:"emoji"`
	Timestamp time.Time `json:"timestamp"`
}

// MembershipChange reports members joining or leaving a group.
type MembershipChange struct {
	GroupID   string    `json:"group_id"`
	MemberIDs []string  `json:"member_ids"`
	Joined    bool      `json:"joined"`
	Timestamp time.Time `json:"timestamp"`
}

// Handlers receives the transport's event streams. Events for a single
// group arrive serialized; a nil handler drops that stream.
type Handlers struct {
	Message    func(ctx context.Context, msg moderation.IncomingMessage)
	Reaction   func(ctx context.Context, r Reaction)
	Membership func(ctx context.Context, ch MembershipChange)
}

// Transport is the port interface to the external messaging client.
// All calls are fallible and return errors rather than panicking; the
// coordinator decides how to degrade.
type Transport interface {
	// Start subscribes the handlers to the event streams. The returned
	// function cancels the subscriptions.
	Start(ctx context.Context, h Handlers) (stop func(), err error)

	// SendMessage delivers text to a user or group chat.
	SendMessage(ctx context.Context, recipientID, text string) error

	// DeleteMessage removes a message for everyone in the group.
	DeleteMessage(ctx context.Context, messageID string) error

	// GroupRoster fetches the full participant list of a group.
	GroupRoster(ctx context.Context, groupID string) ([]member.Member, error)

	// ContactName resolves a display name for a user id. Implementations
	// may fall back to the bare id when the contact is unknown.
	ContactName(ctx context.Context, userID string) (string, error)
}
