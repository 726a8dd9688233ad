// Package notifier defines the notification port (interface) for admin alerts.
package notifier

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when a notifier is not properly configured.
var ErrNotConfigured = errors.New("notifier: not configured")

// Event source constants used to filter notifications.
const (
	SourceStartup        = "bot.startup"
	SourceDeleted        = "moderation.deleted"
	SourceReviewOpened   = "review.opened"
	SourceReviewResolved = "review.resolved"
	SourceReviewExpired  = "review.expired"
	SourceMemberJoined   = "roster.joined"
	SourceDailyReport    = "report.daily"
	SourceError          = "moderation.error"
)

// Notification is the payload sent through a Notifier.
type Notification struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Level   string `json:"level"`  // "info", "success", "warning", "error"
	Source  string `json:"source"` // e.g. "review.opened", "moderation.deleted"
}

// Notifier is the port interface for delivering admin notifications.
type Notifier interface {
	// Name returns the unique identifier for this notifier (e.g. "wa-dm").
	Name() string

	// Send delivers a notification.
	Send(ctx context.Context, notification Notification) error
}
