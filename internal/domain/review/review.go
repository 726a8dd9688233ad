// Package review defines the human-review escalation domain: pending review
// records and the admin feedback that resolves them.
package review

import (
	"time"

	"github.com/Strob0t/GroupWarden/internal/domain/moderation"
)

// Status represents the lifecycle state of a review record.
// OPEN is the only non-terminal state.
type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
	StatusExpired  Status = "expired"
)

// FeedbackKind is the admin's judgment on an open review.
type FeedbackKind string

const (
	FeedbackCorrect   FeedbackKind = "CORRECT"
	FeedbackIncorrect FeedbackKind = "INCORRECT"
	FeedbackComplex   FeedbackKind = "COMPLEX"
	FeedbackReanalyze FeedbackKind = "REANALYZE"
)

// emojiFeedback maps the reaction emoji admins use in the group to a
// feedback kind. Anything else is ignored.
var emojiFeedback = map[string]FeedbackKind{
	"✅":  FeedbackCorrect,
	"❌":  FeedbackIncorrect,
	"⚠️": FeedbackComplex,
	"🔄":  FeedbackReanalyze,
}

// KindFromEmoji translates a reaction emoji into a feedback kind.
func KindFromEmoji(emoji string) (FeedbackKind, bool) {
	k, ok := emojiFeedback[emoji]
	return k, ok
}

// Emoji returns the reaction emoji associated with a feedback kind,
// for display in admin-facing messages.
func (k FeedbackKind) Emoji() string {
	for e, kind := range emojiFeedback {
		if kind == k {
			return e
		}
	}
	return ""
}

// Describe returns the admin-facing explanation of a feedback kind.
func (k FeedbackKind) Describe() string {
	switch k {
	case FeedbackCorrect:
		return "agent was right, message handled correctly"
	case FeedbackIncorrect:
		return "agent was wrong, message should be reconsidered"
	case FeedbackComplex:
		return "complex case, needs further discussion"
	case FeedbackReanalyze:
		return "re-analysis requested"
	default:
		return "unknown"
	}
}

// Record is one pending or adjudicated escalation, keyed by the original
// message identifier. The ReviewID is generated for human display only;
// all machine matching goes through MessageID, because the reaction
// channel only ever carries the original message's identity.
type Record struct {
	ReviewID   string                     `json:"review_id"`
	MessageID  string                     `json:"message_id"`
	Message    moderation.IncomingMessage `json:"message"`
	Verdict    moderation.Verdict         `json:"verdict"`
	Status     Status                     `json:"status"`
	Feedback   FeedbackKind               `json:"feedback,omitempty"`
	ReactorID  string                     `json:"reactor_id,omitempty"`
	CreatedAt  time.Time                  `json:"created_at"`
	ResolvedAt *time.Time                 `json:"resolved_at,omitempty"`
}

// FeedbackEvent is an admin reaction targeting an open review.
type FeedbackEvent struct {
	ReactorID string       `json:"reactor_id"`
	MessageID string       `json:"message_id"`
	Kind      FeedbackKind `json:"kind"`
	Timestamp time.Time    `json:"timestamp"`
}
