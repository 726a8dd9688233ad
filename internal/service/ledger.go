package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/GroupWarden/internal/domain"
	"github.com/Strob0t/GroupWarden/internal/domain/moderation"
	"github.com/Strob0t/GroupWarden/internal/domain/review"
)

// AdminChecker answers whether an id is a current group admin. Checked at
// resolve time, never cached on the record.
type AdminChecker interface {
	IsAdmin(id string) bool
}

// ReviewLedger owns the review lifecycle: open → resolved | expired.
// Records are keyed by the original message id: the reaction channel only
// ever carries the message's identity, so the message id is the sole match
// key. The generated review id exists for human display only.
//
// A single mutex guards all transitions. Volume is one group's chatter, so
// per-message locking would buy nothing; the global lock is what preserves
// the at-most-one-open-review-per-message invariant under concurrent opens.
type ReviewLedger struct {
	mu        sync.Mutex
	latest    map[string]*review.Record // message id → most recent record
	admins    AdminChecker
	retention time.Duration

	now   func() time.Time
	newID func() string
}

// NewReviewLedger creates a ledger with the given retention window for
// unresolved reviews.
func NewReviewLedger(admins AdminChecker, retention time.Duration) *ReviewLedger {
	return &ReviewLedger{
		latest:    make(map[string]*review.Record),
		admins:    admins,
		retention: retention,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

// Open creates an OPEN record for the message. Returns ErrDuplicateReview
// when an open record already exists; callers suppress the duplicate
// notification instead of escalating again. A message whose previous review
// reached a terminal state may be opened again (the REANALYZE path) and
// gets a fresh review id.
func (l *ReviewLedger) Open(msg moderation.IncomingMessage, verdict moderation.Verdict) (review.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, ok := l.latest[msg.ID]; ok && cur.Status == review.StatusOpen {
		return *cur, fmt.Errorf("open review %s: %w", msg.ID, domain.ErrDuplicateReview)
	}

	rec := &review.Record{
		ReviewID:  l.newID(),
		MessageID: msg.ID,
		Message:   msg,
		Verdict:   verdict,
		Status:    review.StatusOpen,
		CreatedAt: l.now(),
	}
	l.latest[msg.ID] = rec

	slog.Info("review opened",
		"review_id", rec.ReviewID,
		"message_id", rec.MessageID,
		"classification", verdict.Classification,
	)
	return *rec, nil
}

// Resolve applies admin feedback to the open record for the message.
// The reactor must be a current admin; otherwise the record is left
// untouched and ErrNotAdmin is returned so the caller can ignore the
// reaction. Feedback lands exactly once: a second resolution attempt gets
// ErrAlreadyResolved and the recorded feedback kind is unchanged.
func (l *ReviewLedger) Resolve(fb review.FeedbackEvent) (review.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.latest[fb.MessageID]
	if !ok {
		return review.Record{}, fmt.Errorf("resolve %s: %w", fb.MessageID, domain.ErrNotFound)
	}
	if !l.admins.IsAdmin(fb.ReactorID) {
		return review.Record{}, fmt.Errorf("resolve %s by %s: %w", fb.MessageID, fb.ReactorID, domain.ErrNotAdmin)
	}
	if rec.Status != review.StatusOpen {
		return *rec, fmt.Errorf("resolve %s: %w", fb.MessageID, domain.ErrAlreadyResolved)
	}

	resolvedAt := l.now()
	rec.Status = review.StatusResolved
	rec.Feedback = fb.Kind
	rec.ReactorID = fb.ReactorID
	rec.ResolvedAt = &resolvedAt

	slog.Info("review resolved",
		"review_id", rec.ReviewID,
		"message_id", rec.MessageID,
		"feedback", rec.Feedback,
		"reactor", rec.ReactorID,
	)
	return *rec, nil
}

// Expire transitions all open records older than the retention window to
// EXPIRED and returns the expired batch. It also prunes terminal records
// whose resolution is older than the retention window, so the map does
// not grow for the process lifetime. It runs under the same mutex as
// Open and Resolve, so a record resolved first is never expired and a
// record expired first reports AlreadyResolved to a late reaction.
func (l *ReviewLedger) Expire(now time.Time) []review.Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	var expired []review.Record
	for id, rec := range l.latest {
		if rec.Status != review.StatusOpen {
			// Terminal records stick around for one more retention window
			// so a late reaction still gets AlreadyResolved instead of
			// NotFound, then get dropped to keep the map bounded.
			if rec.ResolvedAt != nil && now.Sub(*rec.ResolvedAt) >= l.retention {
				delete(l.latest, id)
			}
			continue
		}
		if now.Sub(rec.CreatedAt) < l.retention {
			continue
		}
		expiredAt := now
		rec.Status = review.StatusExpired
		rec.ResolvedAt = &expiredAt
		expired = append(expired, *rec)
	}

	if len(expired) > 0 {
		slog.Info("reviews expired", "count", len(expired), "retention", l.retention)
	}
	return expired
}

// Lookup returns the most recent record for the message id.
func (l *ReviewLedger) Lookup(messageID string) (review.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.latest[messageID]
	if !ok {
		return review.Record{}, fmt.Errorf("lookup %s: %w", messageID, domain.ErrNotFound)
	}
	return *rec, nil
}

// OpenRecords returns all currently open records, for the admin API.
func (l *ReviewLedger) OpenRecords() []review.Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []review.Record
	for _, rec := range l.latest {
		if rec.Status == review.StatusOpen {
			out = append(out, *rec)
		}
	}
	return out
}

// StartSweeper runs the expiry sweep on a fixed interval until ctx is done.
// The sweep cadence is unrelated to message traffic. onExpired receives
// each non-empty batch so admins can be told which reviews were dropped.
func (l *ReviewLedger) StartSweeper(ctx context.Context, interval time.Duration, onExpired func(context.Context, []review.Record)) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if batch := l.Expire(l.now()); len(batch) > 0 && onExpired != nil {
					onExpired(ctx, batch)
				}
			}
		}
	}()
}
