// Package decision defines the port to the external moderation decision
// process. Classification, scoring, and learning all happen outside this
// service; the port only shapes the invocation.
package decision

import (
	"context"
	"errors"

	"github.com/Strob0t/GroupWarden/internal/domain/moderation"
	"github.com/Strob0t/GroupWarden/internal/domain/report"
	"github.com/Strob0t/GroupWarden/internal/domain/review"
)

// ErrTimeout is returned when the decision process misses its deadline.
// The process is killed; no partial result is kept.
var ErrTimeout = errors.New("decision: process deadline exceeded")

// ErrProcessFailure is returned when the process cannot be started or
// exits with a non-zero status.
var ErrProcessFailure = errors.New("decision: process failed")

// ErrParseFailure is returned when the process output does not parse into
// a well-formed verdict.
var ErrParseFailure = errors.New("decision: malformed verdict")

// Client invokes the external decision process. Exactly one invocation per
// Classify call; retry policy, if any, belongs to the caller.
type Client interface {
	// Classify runs the classifier on one message under the configured
	// deadline. On any failure it returns one of the sentinel errors above;
	// the caller substitutes the fallback verdict.
	Classify(ctx context.Context, msg moderation.IncomingMessage) (moderation.Verdict, error)

	// SubmitFeedback forwards an admin's judgment to the learning
	// component. Best-effort: the in-process resolution already happened.
	SubmitFeedback(ctx context.Context, messageID string, kind review.FeedbackKind) error

	// DailyStats fetches the learning component's daily statistics.
	DailyStats(ctx context.Context) (report.Stats, error)
}
