// Package wanotify implements a notifier.Notifier that direct-messages
// every current group admin through the chat transport.
package wanotify

import (
	"context"
	"errors"
	"fmt"

	"github.com/Strob0t/GroupWarden/internal/port/notifier"
	"github.com/Strob0t/GroupWarden/internal/port/transport"
)

const providerName = "wa-dm"

// AdminSource supplies the current admin id set. Resolved per send, not
// cached, so demoted admins stop receiving alerts immediately.
type AdminSource interface {
	AllAdmins() []string
}

// Notifier fans one notification out as a direct message to each admin.
type Notifier struct {
	tp     transport.Transport
	admins AdminSource
}

// New creates an admin DM notifier.
func New(tp transport.Transport, admins AdminSource) *Notifier {
	return &Notifier{tp: tp, admins: admins}
}

func (n *Notifier) Name() string { return providerName }

// Send delivers the notification to every admin. A failed send to one
// admin does not stop delivery to the rest; the last error is returned.
func (n *Notifier) Send(ctx context.Context, notification notifier.Notification) error {
	admins := n.admins.AllAdmins()
	if len(admins) == 0 {
		return notifier.ErrNotConfigured
	}

	text := notification.Message
	if notification.Title != "" {
		text = fmt.Sprintf("*%s*\n\n%s", notification.Title, notification.Message)
	}

	var lastErr error
	for _, adminID := range admins {
		if err := n.tp.SendMessage(ctx, adminID, text); err != nil {
			lastErr = errors.Join(lastErr, fmt.Errorf("send to %s: %w", adminID, err))
		}
	}
	return lastErr
}
