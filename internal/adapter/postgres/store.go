package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/GroupWarden/internal/domain/moderation"
	"github.com/Strob0t/GroupWarden/internal/domain/report"
	"github.com/Strob0t/GroupWarden/internal/domain/review"
	"github.com/Strob0t/GroupWarden/internal/port/audit"
)

// Store implements the audit trail on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// RecordMessage inserts one analyzed message with its verdict and outcome.
func (s *Store) RecordMessage(ctx context.Context, msg moderation.IncomingMessage, v moderation.Verdict, outcome string) error {
	const q = `
		INSERT INTO moderated_messages
			(message_id, sender_id, group_id, content, has_media, sent_at,
			 classification, confidence, action, reasoning, outcome)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (message_id) DO UPDATE SET
			classification = EXCLUDED.classification,
			confidence = EXCLUDED.confidence,
			action = EXCLUDED.action,
			reasoning = EXCLUDED.reasoning,
			outcome = EXCLUDED.outcome`

	_, err := s.pool.Exec(ctx, q,
		msg.ID, msg.SenderID, msg.GroupID, msg.Content, msg.HasMedia, msg.Timestamp,
		v.Classification, v.Confidence, string(v.Action), v.Reasoning, outcome,
	)
	if err != nil {
		return fmt.Errorf("record message: %w", err)
	}
	return nil
}

// RecordReviewOpened inserts a newly opened review.
func (s *Store) RecordReviewOpened(ctx context.Context, rec review.Record) error {
	const q = `
		INSERT INTO reviews (review_id, message_id, status, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (review_id) DO NOTHING`

	_, err := s.pool.Exec(ctx, q, rec.ReviewID, rec.MessageID, string(rec.Status), rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("record review opened: %w", err)
	}
	return nil
}

// RecordReviewClosed updates a review with its terminal state.
func (s *Store) RecordReviewClosed(ctx context.Context, rec review.Record) error {
	const q = `
		UPDATE reviews
		SET status = $2, feedback = $3, reactor_id = $4, resolved_at = $5
		WHERE review_id = $1`

	_, err := s.pool.Exec(ctx, q,
		rec.ReviewID, string(rec.Status), nullIfEmpty(string(rec.Feedback)),
		nullIfEmpty(rec.ReactorID), rec.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("record review closed: %w", err)
	}
	return nil
}

// DailyStats aggregates message outcomes for the day containing t.
func (s *Store) DailyStats(ctx context.Context, t time.Time) (report.Stats, error) {
	dayStart := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	const q = `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE outcome = $3),
			COUNT(*) FILTER (WHERE outcome = $4),
			COUNT(*) FILTER (WHERE outcome = $5)
		FROM moderated_messages
		WHERE sent_at >= $1 AND sent_at < $2`

	var stats report.Stats
	err := s.pool.QueryRow(ctx, q, dayStart, dayEnd,
		audit.OutcomeApproved, audit.OutcomeEscalated, audit.OutcomeDeleted,
	).Scan(&stats.DailyMessages, &stats.Approved, &stats.Flagged, &stats.Deleted)
	if err != nil {
		return report.Stats{}, fmt.Errorf("daily stats: %w", err)
	}
	return stats, nil
}

// nullIfEmpty returns nil for empty strings (for nullable columns).
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
