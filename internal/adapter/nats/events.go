package nats

import (
	"context"
	"encoding/json"
	"log/slog"
)

// EventPublisher adapts the queue into a coordinator event sink: moderation
// events go out as JSON on their subject so external listeners (dashboards,
// audit consumers) can follow along.
type EventPublisher struct {
	q *Queue
}

// NewEventPublisher creates an event sink backed by the queue.
func NewEventPublisher(q *Queue) *EventPublisher {
	return &EventPublisher{q: q}
}

// Publish marshals the payload and publishes it on the event's subject.
// Failures are logged; event fan-out is never load-bearing.
func (p *EventPublisher) Publish(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal event payload", "type", eventType, "error", err)
		return
	}
	if err := p.q.Publish(ctx, eventType, data); err != nil {
		slog.Warn("event publish failed", "type", eventType, "error", err)
	}
}
