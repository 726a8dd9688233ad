// Package moderation defines the message and verdict types flowing through
// the moderation pipeline.
package moderation

import (
	"strings"
	"time"
)

// Action is the directive a verdict carries for the coordinator.
type Action string

const (
	ActionApprove       Action = "APPROVE"
	ActionDeleteMessage Action = "DELETE_MESSAGE"
	ActionFlagForReview Action = "FLAG_FOR_REVIEW"
)

// Known classification labels. The set is open: the external classifier may
// emit labels not listed here and they are passed through verbatim.
const (
	ClassSafe           = "SAFE"
	ClassViolation      = "VIOLATION"
	ClassUncertain      = "UNCERTAIN"
	ClassTechnicalError = "TECHNICAL_ERROR"
)

// IncomingMessage is one group message as received from the transport.
// It is immutable once constructed; the pipeline only ever reads it.
type IncomingMessage struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	GroupID   string    `json:"group_id"`
	HasMedia  bool      `json:"has_media,omitempty"`
}

// Verdict is the structured output of one classification. A re-analysis
// produces a new Verdict; verdicts are never edited in place.
type Verdict struct {
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
	Action         Action  `json:"action"`
	Reasoning      string  `json:"reasoning"`
}

// FallbackVerdict is substituted whenever the decision client fails
// (spawn error, deadline, non-zero exit, malformed output). The message is
// never dropped; it goes to manual review instead.
func FallbackVerdict(reason string) Verdict {
	if reason == "" {
		reason = "message could not be analyzed; manual review required"
	}
	return Verdict{
		Classification: ClassTechnicalError,
		Confidence:     0,
		Action:         ActionFlagForReview,
		Reasoning:      reason,
	}
}

// ValidAction reports whether a is one of the three known directives.
func ValidAction(a Action) bool {
	switch a {
	case ActionApprove, ActionDeleteMessage, ActionFlagForReview:
		return true
	}
	return false
}

// NeedsMediaReminder reports whether approved content should still trigger
// the in-group media reminder, based on the configured keyword list.
func NeedsMediaReminder(content string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(content, kw) {
			return true
		}
	}
	return false
}

// Truncate shortens content for admin notifications and audit rows.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	// Cut on a rune boundary so multi-byte content stays valid.
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
