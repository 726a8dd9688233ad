// Package audit defines the port to the optional moderation audit store.
// The live ledger and roster are in-memory; the audit store is a write-
// behind record of what the pipeline did, and backs the stats queries.
package audit

import (
	"context"
	"time"

	"github.com/Strob0t/GroupWarden/internal/domain/moderation"
	"github.com/Strob0t/GroupWarden/internal/domain/report"
	"github.com/Strob0t/GroupWarden/internal/domain/review"
)

// Outcome values recorded per analyzed message.
const (
	OutcomeApproved  = "approved"
	OutcomeDeleted   = "deleted"
	OutcomeEscalated = "escalated"
)

// Store persists the moderation audit trail. All writes are best-effort
// from the caller's point of view: a failed write is logged, never fatal.
type Store interface {
	// RecordMessage stores one analyzed message with its verdict and the
	// pipeline outcome.
	RecordMessage(ctx context.Context, msg moderation.IncomingMessage, v moderation.Verdict, outcome string) error

	// RecordReviewOpened stores a newly opened review.
	RecordReviewOpened(ctx context.Context, rec review.Record) error

	// RecordReviewClosed stores a review's terminal transition
	// (resolved or expired).
	RecordReviewClosed(ctx context.Context, rec review.Record) error

	// DailyStats aggregates counts for the day containing t.
	DailyStats(ctx context.Context, t time.Time) (report.Stats, error)
}
