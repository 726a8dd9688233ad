// Package wabridge implements the chat transport port against the WhatsApp
// bridge sidecar (a whatsapp-web.js process) over the message queue.
// Events stream in on wa.event.>, commands go out on wa.cmd.>, and roster
// and contact lookups are request/reply RPCs.
package wabridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Strob0t/GroupWarden/internal/domain/member"
	"github.com/Strob0t/GroupWarden/internal/domain/moderation"
	"github.com/Strob0t/GroupWarden/internal/port/messagequeue"
	"github.com/Strob0t/GroupWarden/internal/port/transport"
)

// Transport bridges the moderation core to the WhatsApp sidecar.
type Transport struct {
	queue messagequeue.Queue
}

// New creates a bridge-backed transport.
func New(queue messagequeue.Queue) *Transport {
	return &Transport{queue: queue}
}

// messageEvent is the bridge's wire shape for one group message.
type messageEvent struct {
	ID        string `json:"id"`
	SenderID  string `json:"sender_id"`
	Body      string `json:"body"`
	GroupID   string `json:"group_id"`
	Timestamp int64  `json:"timestamp"` // unix seconds
	HasMedia  bool   `json:"has_media"`
	MimeType  string `json:"mimetype,omitempty"`
	FromMe    bool   `json:"from_me"`
	System    bool   `json:"system"`
}

type reactionEvent struct {
	MessageID string `json:"message_id"`
	ReactorID string `json:"reactor_id"`
	Emoji     string `json:"emoji"`
	Timestamp int64  `json:"timestamp"`
}

type membershipEvent struct {
	GroupID   string   `json:"group_id"`
	MemberIDs []string `json:"member_ids"`
	Joined    bool     `json:"joined"`
	Timestamp int64    `json:"timestamp"`
}

type sendCmd struct {
	RecipientID string `json:"recipient_id"`
	Text        string `json:"text"`
}

type deleteCmd struct {
	MessageID string `json:"message_id"`
}

type rosterRequest struct {
	GroupID string `json:"group_id"`
}

type rosterReply struct {
	Members []member.Member `json:"members"`
	Error   string          `json:"error,omitempty"`
}

type contactRequest struct {
	UserID string `json:"user_id"`
}

type contactReply struct {
	Name  string `json:"name"`
	Error string `json:"error,omitempty"`
}

// Start subscribes the handlers to the bridge event subjects. The bridge's
// own and system messages are filtered here, before the pipeline sees them.
func (t *Transport) Start(ctx context.Context, h transport.Handlers) (func(), error) {
	var stops []func()
	stopAll := func() {
		for _, stop := range stops {
			stop()
		}
	}

	if h.Message != nil {
		stop, err := t.queue.Subscribe(ctx, messagequeue.SubjectEventMessage, func(ctx context.Context, _ string, data []byte) error {
			var ev messageEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				return fmt.Errorf("decode message event: %w", err)
			}
			if ev.FromMe || ev.System {
				return nil
			}
			h.Message(ctx, toIncoming(ev))
			return nil
		})
		if err != nil {
			stopAll()
			return nil, fmt.Errorf("subscribe messages: %w", err)
		}
		stops = append(stops, stop)
	}

	if h.Reaction != nil {
		stop, err := t.queue.Subscribe(ctx, messagequeue.SubjectEventReaction, func(ctx context.Context, _ string, data []byte) error {
			var ev reactionEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				return fmt.Errorf("decode reaction event: %w", err)
			}
			h.Reaction(ctx, transport.Reaction{
				MessageID: ev.MessageID,
				ReactorID: ev.ReactorID,
				Emoji:     ev.Emoji,
				Timestamp: time.Unix(ev.Timestamp, 0),
			})
			return nil
		})
		if err != nil {
			stopAll()
			return nil, fmt.Errorf("subscribe reactions: %w", err)
		}
		stops = append(stops, stop)
	}

	if h.Membership != nil {
		stop, err := t.queue.Subscribe(ctx, messagequeue.SubjectEventMembership, func(ctx context.Context, _ string, data []byte) error {
			var ev membershipEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				return fmt.Errorf("decode membership event: %w", err)
			}
			h.Membership(ctx, transport.MembershipChange{
				GroupID:   ev.GroupID,
				MemberIDs: ev.MemberIDs,
				Joined:    ev.Joined,
				Timestamp: time.Unix(ev.Timestamp, 0),
			})
			return nil
		})
		if err != nil {
			stopAll()
			return nil, fmt.Errorf("subscribe membership: %w", err)
		}
		stops = append(stops, stop)
	}

	slog.Info("whatsapp bridge subscribed", "handlers", len(stops))
	return stopAll, nil
}

// toIncoming maps a wire event to the pipeline's message. Media messages
// get a "[mimetype] caption" placeholder body, matching what the
// classifier expects.
func toIncoming(ev messageEvent) moderation.IncomingMessage {
	content := ev.Body
	if ev.HasMedia {
		label := "[media]"
		if ev.MimeType != "" {
			label = "[" + ev.MimeType + "]"
		}
		if content == "" {
			content = label
		} else {
			content = label + " " + content
		}
	}
	return moderation.IncomingMessage{
		ID:        ev.ID,
		SenderID:  ev.SenderID,
		Content:   content,
		Timestamp: time.Unix(ev.Timestamp, 0),
		GroupID:   ev.GroupID,
		HasMedia:  ev.HasMedia,
	}
}

// SendMessage asks the bridge to deliver text to a chat.
func (t *Transport) SendMessage(ctx context.Context, recipientID, text string) error {
	data, err := json.Marshal(sendCmd{RecipientID: recipientID, Text: text})
	if err != nil {
		return fmt.Errorf("wabridge: marshal send: %w", err)
	}
	if err := t.queue.Publish(ctx, messagequeue.SubjectCmdSend, data); err != nil {
		return fmt.Errorf("wabridge: publish send: %w", err)
	}
	return nil
}

// DeleteMessage asks the bridge to delete a group message for everyone.
// Request/reply: the bridge reports whether WhatsApp accepted the delete,
// so a failed delete surfaces as an error the coordinator can re-route.
func (t *Transport) DeleteMessage(ctx context.Context, messageID string) error {
	data, err := json.Marshal(deleteCmd{MessageID: messageID})
	if err != nil {
		return fmt.Errorf("wabridge: marshal delete: %w", err)
	}

	reply, err := t.queue.Request(ctx, messagequeue.SubjectCmdDelete, data)
	if err != nil {
		return fmt.Errorf("wabridge: delete rpc: %w", err)
	}

	var resp struct {
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(reply, &resp); err != nil {
		return fmt.Errorf("wabridge: decode delete reply: %w", err)
	}
	if resp.Error != "" {
		return errors.New("wabridge: delete rejected: " + resp.Error)
	}
	return nil
}

// GroupRoster fetches the full participant list from the bridge.
func (t *Transport) GroupRoster(ctx context.Context, groupID string) ([]member.Member, error) {
	data, err := json.Marshal(rosterRequest{GroupID: groupID})
	if err != nil {
		return nil, fmt.Errorf("wabridge: marshal roster request: %w", err)
	}

	reply, err := t.queue.Request(ctx, messagequeue.SubjectRPCRoster, data)
	if err != nil {
		return nil, fmt.Errorf("wabridge: roster rpc: %w", err)
	}

	var resp rosterReply
	if err := json.Unmarshal(reply, &resp); err != nil {
		return nil, fmt.Errorf("wabridge: decode roster reply: %w", err)
	}
	if resp.Error != "" {
		return nil, errors.New("wabridge: roster: " + resp.Error)
	}
	return resp.Members, nil
}

// ContactName resolves a display name via the bridge.
func (t *Transport) ContactName(ctx context.Context, userID string) (string, error) {
	data, err := json.Marshal(contactRequest{UserID: userID})
	if err != nil {
		return "", fmt.Errorf("wabridge: marshal contact request: %w", err)
	}

	reply, err := t.queue.Request(ctx, messagequeue.SubjectRPCContact, data)
	if err != nil {
		return "", fmt.Errorf("wabridge: contact rpc: %w", err)
	}

	var resp contactReply
	if err := json.Unmarshal(reply, &resp); err != nil {
		return "", fmt.Errorf("wabridge: decode contact reply: %w", err)
	}
	if resp.Error != "" {
		return "", errors.New("wabridge: contact: " + resp.Error)
	}
	return resp.Name, nil
}
