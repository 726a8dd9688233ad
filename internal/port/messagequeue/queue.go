// Package messagequeue defines the message queue port (interface).
package messagequeue

import "context"

// Handler processes a message received from the queue.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue is the port interface for publishing and subscribing to messages.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Request performs a request/reply exchange on the given subject.
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)

	// Drain gracefully drains all subscriptions before closing.
	Drain() error

	// Close shuts down the queue connection immediately.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// Subjects of the WhatsApp bridge protocol. Events flow bridge → core,
// commands core → bridge, RPCs are request/reply.
const (
	SubjectEventMessage    = "wa.event.message"
	SubjectEventReaction   = "wa.event.reaction"
	SubjectEventMembership = "wa.event.membership"

	SubjectCmdSend   = "wa.cmd.send"
	SubjectCmdDelete = "wa.cmd.delete"

	SubjectRPCRoster  = "wa.rpc.roster"
	SubjectRPCContact = "wa.rpc.contact"
)

// Subjects for moderation events published by the core (consumed by
// dashboards and any external audit listeners).
const (
	SubjectModerationVerdict = "moderation.verdict"
	SubjectReviewOpened      = "moderation.review.opened"
	SubjectReviewResolved    = "moderation.review.resolved"
	SubjectReviewExpired     = "moderation.review.expired"
)
