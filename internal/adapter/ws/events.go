package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Publish marshals a typed event and broadcasts it to all clients. It
// satisfies the coordinator's event sink alongside the queue publisher,
// so dashboards see the same moderation.* feed the queue carries.
func (h *Hub) Publish(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
