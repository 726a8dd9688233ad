package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Strob0t/GroupWarden/internal/config"
	"github.com/Strob0t/GroupWarden/internal/domain"
	"github.com/Strob0t/GroupWarden/internal/domain/moderation"
	"github.com/Strob0t/GroupWarden/internal/domain/review"
	"github.com/Strob0t/GroupWarden/internal/port/audit"
	"github.com/Strob0t/GroupWarden/internal/port/cache"
	"github.com/Strob0t/GroupWarden/internal/port/decision"
	"github.com/Strob0t/GroupWarden/internal/port/notifier"
	"github.com/Strob0t/GroupWarden/internal/port/transport"
	"github.com/Strob0t/GroupWarden/internal/resilience"
)

// EventSink receives moderation events for fan-out (websocket hub, queue).
type EventSink interface {
	Publish(ctx context.Context, eventType string, payload any)
}

// MetricsRecorder counts pipeline outcomes. Nil-safe via the coordinator.
type MetricsRecorder interface {
	MessageAnalyzed(ctx context.Context, outcome string)
	DecisionFailed(ctx context.Context)
	ReviewClosed(ctx context.Context, status review.Status)
}

// Coordinator orchestrates the per-message moderation pipeline:
// RECEIVED → CLASSIFIED → { APPROVED | DELETED | ESCALATED }, terminal
// after one pass. Classifications run concurrently under a bounded
// semaphore so a slow decision process never stalls unrelated events;
// all ledger mutations stay behind the ledger's own lock.
type Coordinator struct {
	cfg     config.Moderation
	tp      transport.Transport
	client  decision.Client
	roster  *RosterStore
	ledger  *ReviewLedger
	notify  *NotificationService
	breaker *resilience.Breaker

	sem      *semaphore.Weighted
	contacts cache.Cache     // optional
	store    audit.Store     // optional
	metrics  MetricsRecorder // optional
	events   []EventSink

	contactTTL time.Duration
	wg         sync.WaitGroup
}

// NewCoordinator wires the moderation pipeline. contacts, store, metrics
// and events may be nil/empty; the pipeline degrades to logging.
func NewCoordinator(
	cfg config.Moderation,
	tp transport.Transport,
	client decision.Client,
	roster *RosterStore,
	ledger *ReviewLedger,
	notify *NotificationService,
	breaker *resilience.Breaker,
	maxConcurrent int64,
) *Coordinator {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Coordinator{
		cfg:     cfg,
		tp:      tp,
		client:  client,
		roster:  roster,
		ledger:  ledger,
		notify:  notify,
		breaker: breaker,
		sem:     semaphore.NewWeighted(maxConcurrent),
	}
}

// WithContacts attaches the contact-name cache.
func (c *Coordinator) WithContacts(contacts cache.Cache, ttl time.Duration) *Coordinator {
	c.contacts = contacts
	c.contactTTL = ttl
	return c
}

// WithAudit attaches the audit store.
func (c *Coordinator) WithAudit(store audit.Store) *Coordinator {
	c.store = store
	return c
}

// WithMetrics attaches the metrics recorder.
func (c *Coordinator) WithMetrics(m MetricsRecorder) *Coordinator {
	c.metrics = m
	return c
}

// WithEvents attaches event sinks.
func (c *Coordinator) WithEvents(sinks ...EventSink) *Coordinator {
	c.events = append(c.events, sinks...)
	return c
}

// Startup syncs the roster from the transport and sends the admin banner.
func (c *Coordinator) Startup(ctx context.Context) error {
	if err := c.RefreshRoster(ctx); err != nil {
		return err
	}

	total, admins := c.roster.Counts()
	slog.Info("group roster synced", "group", c.cfg.GroupID, "members", total, "admins", admins)

	c.notify.Notify(ctx, notifier.Notification{
		Title:   "Moderation agent active",
		Message: formatStartup(c.cfg.GroupName, total, admins),
		Level:   "info",
		Source:  notifier.SourceStartup,
	})
	return nil
}

// RefreshRoster re-fetches the group participant list and atomically
// replaces the roster (startup and the manual admin API refresh).
func (c *Coordinator) RefreshRoster(ctx context.Context) error {
	members, err := c.tp.GroupRoster(ctx, c.cfg.GroupID)
	if err != nil {
		return err
	}
	c.roster.Sync(members)
	return nil
}

// HandleMessage is the transport's message callback. Gating happens
// inline; the classification itself runs on its own goroutine under the
// concurrency bound so the event stream keeps flowing.
func (c *Coordinator) HandleMessage(ctx context.Context, msg moderation.IncomingMessage) {
	if !c.shouldProcess(msg) {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.recoverPipeline(ctx, msg.ID)

		if err := c.sem.Acquire(ctx, 1); err != nil {
			return // shutting down
		}
		defer c.sem.Release(1)

		c.process(ctx, msg)
	}()
}

// Wait blocks until all in-flight message pipelines finish. Used on
// shutdown and by tests.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// shouldProcess applies the RECEIVED-state gates: right group, body above
// the minimal length. Ignored messages are terminal with no state recorded.
func (c *Coordinator) shouldProcess(msg moderation.IncomingMessage) bool {
	if msg.GroupID != c.cfg.GroupID {
		return false
	}
	if len([]rune(msg.Content)) < c.cfg.MinMessageLen {
		return false
	}
	if !c.roster.IsMember(msg.SenderID) {
		// Still processed: the roster may lag behind a recent join.
		slog.Warn("message from untracked sender", "sender", msg.SenderID)
	}
	return true
}

// process runs one message through classification and action dispatch.
func (c *Coordinator) process(ctx context.Context, msg moderation.IncomingMessage) {
	verdict := c.classify(ctx, msg)

	c.publish(ctx, "moderation.verdict", struct {
		MessageID string             `json:"message_id"`
		Verdict   moderation.Verdict `json:"verdict"`
	}{msg.ID, verdict})

	c.dispatch(ctx, msg, verdict)
}

// classify calls the decision client through the circuit breaker. Every
// failure mode (spawn error, deadline, bad output, open breaker) maps to
// the safe-default verdict; a message is never silently dropped.
func (c *Coordinator) classify(ctx context.Context, msg moderation.IncomingMessage) moderation.Verdict {
	var verdict moderation.Verdict
	err := c.breaker.Execute(func() error {
		v, cerr := c.client.Classify(ctx, msg)
		if cerr != nil {
			return cerr
		}
		verdict = v
		return nil
	})
	if err == nil {
		return verdict
	}

	if c.metrics != nil {
		c.metrics.DecisionFailed(ctx)
	}
	slog.Error("classification failed, routing to manual review",
		"message_id", msg.ID, "error", err)

	reason := "message could not be analyzed; manual review required"
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		reason = "decision service unavailable (circuit open); manual review required"
	case errors.Is(err, decision.ErrTimeout):
		reason = "analysis timed out; manual review required"
	case errors.Is(err, decision.ErrParseFailure):
		reason = "analysis produced an unreadable result; manual review required"
	}
	return moderation.FallbackVerdict(reason)
}

// dispatch executes the verdict's action. Unknown directives fail safe to
// review rather than being ignored.
func (c *Coordinator) dispatch(ctx context.Context, msg moderation.IncomingMessage, verdict moderation.Verdict) {
	switch verdict.Action {
	case moderation.ActionApprove:
		c.approve(ctx, msg, verdict)
	case moderation.ActionDeleteMessage:
		c.delete(ctx, msg, verdict)
	case moderation.ActionFlagForReview:
		c.escalate(ctx, msg, verdict)
	default:
		slog.Warn("unknown action directive, flagging for review",
			"message_id", msg.ID, "action", verdict.Action)
		c.escalate(ctx, msg, verdict)
	}
}

func (c *Coordinator) approve(ctx context.Context, msg moderation.IncomingMessage, verdict moderation.Verdict) {
	c.record(ctx, msg, verdict, audit.OutcomeApproved)

	if moderation.NeedsMediaReminder(msg.Content, c.cfg.MediaKeywords) {
		if err := c.tp.SendMessage(ctx, c.cfg.GroupID, mediaReminder); err != nil {
			slog.Warn("media reminder failed", "error", err)
		}
	}
}

// delete removes the message via the transport. A failed deletion is never
// swallowed: the message is re-routed to review with the failure noted in
// the reasoning.
func (c *Coordinator) delete(ctx context.Context, msg moderation.IncomingMessage, verdict moderation.Verdict) {
	if err := c.tp.DeleteMessage(ctx, msg.ID); err != nil {
		slog.Error("automatic deletion failed, escalating to review",
			"message_id", msg.ID, "error", err)
		amended := verdict
		amended.Reasoning = "automatic deletion failed: " + err.Error() + ". " + verdict.Reasoning
		c.escalate(ctx, msg, amended)
		return
	}

	c.record(ctx, msg, verdict, audit.OutcomeDeleted)
	c.notify.Notify(ctx, notifier.Notification{
		Title:   "Message deleted automatically",
		Message: formatDeleted(c.contactName(ctx, msg.SenderID), verdict, msg.Content, c.cfg.NotifyTruncateAt),
		Level:   "warning",
		Source:  notifier.SourceDeleted,
	})
}

// escalate opens a review. A DuplicateReview result suppresses the second
// admin notification for the same message.
func (c *Coordinator) escalate(ctx context.Context, msg moderation.IncomingMessage, verdict moderation.Verdict) {
	rec, err := c.ledger.Open(msg, verdict)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateReview) {
			slog.Debug("review already open, suppressing duplicate notification",
				"message_id", msg.ID)
			return
		}
		slog.Error("review open failed", "message_id", msg.ID, "error", err)
		return
	}

	c.record(ctx, msg, verdict, audit.OutcomeEscalated)
	if c.store != nil {
		if aerr := c.store.RecordReviewOpened(ctx, rec); aerr != nil {
			slog.Warn("audit review write failed", "review_id", rec.ReviewID, "error", aerr)
		}
	}
	c.publish(ctx, "moderation.review.opened", rec)

	c.notify.Notify(ctx, notifier.Notification{
		Title:   "Message flagged for review",
		Message: formatReview(rec, c.contactName(ctx, msg.SenderID), c.cfg.NotifyTruncateAt),
		Level:   "warning",
		Source:  notifier.SourceReviewOpened,
	})
}

// HandleReaction is the transport's reaction callback. Reactions from
// non-admins, with unknown emoji, or targeting unknown/settled reviews are
// silent no-ops.
func (c *Coordinator) HandleReaction(ctx context.Context, r transport.Reaction) {
	defer recoverHandler("reaction", r.MessageID)

	kind, ok := review.KindFromEmoji(r.Emoji)
	if !ok {
		slog.Debug("unknown reaction emoji", "emoji", r.Emoji)
		return
	}

	_, err := c.ResolveReview(ctx, review.FeedbackEvent{
		ReactorID: r.ReactorID,
		MessageID: r.MessageID,
		Kind:      kind,
		Timestamp: r.Timestamp,
	})
	if err != nil {
		// Expected outcomes, not errors: the reaction is simply ignored.
		slog.Debug("reaction ignored", "message_id", r.MessageID, "error", err)
	}
}

// ResolveReview closes the open review for the message and runs the side
// effects every resolution carries, regardless of where it came from (a
// group reaction or the dashboard): metrics, the audit write, event
// fan-out, the feedback hand-off, the admin acknowledgement, and a fresh
// classification on REANALYZE.
func (c *Coordinator) ResolveReview(ctx context.Context, fb review.FeedbackEvent) (review.Record, error) {
	rec, err := c.ledger.Resolve(fb)
	if err != nil {
		return review.Record{}, err
	}

	if c.metrics != nil {
		c.metrics.ReviewClosed(ctx, review.StatusResolved)
	}
	if c.store != nil {
		if aerr := c.store.RecordReviewClosed(ctx, rec); aerr != nil {
			slog.Warn("audit review write failed", "review_id", rec.ReviewID, "error", aerr)
		}
	}
	c.publish(ctx, "moderation.review.resolved", rec)

	// Best-effort hand-off to the learning component; the in-process
	// resolution above already happened.
	if err := c.client.SubmitFeedback(ctx, rec.MessageID, fb.Kind); err != nil {
		slog.Warn("feedback hand-off failed", "message_id", rec.MessageID, "error", err)
	}

	c.notify.Notify(ctx, notifier.Notification{
		Title:   "Feedback received",
		Message: formatFeedbackAck(rec),
		Level:   "success",
		Source:  notifier.SourceReviewResolved,
	})

	if fb.Kind == review.FeedbackReanalyze {
		c.reanalyze(ctx, rec.Message)
	}
	return rec, nil
}

// reanalyze runs a fresh classification for a message whose review was
// just resolved with REANALYZE. This is an explicit new attempt, not a
// retry: a new escalation opens a brand-new record with a fresh review id.
func (c *Coordinator) reanalyze(ctx context.Context, msg moderation.IncomingMessage) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.recoverPipeline(ctx, msg.ID)

		if err := c.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer c.sem.Release(1)

		slog.Info("re-analysis requested", "message_id", msg.ID)
		c.process(ctx, msg)
	}()
}

// HandleMembership is the transport's membership-change callback.
func (c *Coordinator) HandleMembership(ctx context.Context, ch transport.MembershipChange) {
	defer recoverHandler("membership", ch.GroupID)

	if ch.GroupID != c.cfg.GroupID {
		return
	}

	if !ch.Joined {
		for _, id := range ch.MemberIDs {
			c.roster.RemoveMember(id)
		}
		total, _ := c.roster.Counts()
		slog.Info("members left", "count", len(ch.MemberIDs), "tracked", total)
		return
	}

	for _, id := range ch.MemberIDs {
		c.roster.AddMember(id, false)
	}
	total, _ := c.roster.Counts()
	slog.Info("members joined", "count", len(ch.MemberIDs), "tracked", total)

	c.notify.Notify(ctx, notifier.Notification{
		Title:   "New members joined",
		Message: formatJoined(ch.MemberIDs, total),
		Level:   "info",
		Source:  notifier.SourceMemberJoined,
	})
}

// HandleExpired receives expired review batches from the ledger sweeper.
func (c *Coordinator) HandleExpired(ctx context.Context, batch []review.Record) {
	defer recoverHandler("expire", "")

	for _, rec := range batch {
		if c.metrics != nil {
			c.metrics.ReviewClosed(ctx, review.StatusExpired)
		}
		if c.store != nil {
			if err := c.store.RecordReviewClosed(ctx, rec); err != nil {
				slog.Warn("audit review write failed", "review_id", rec.ReviewID, "error", err)
			}
		}
		c.publish(ctx, "moderation.review.expired", rec)
	}

	c.notify.Notify(ctx, notifier.Notification{
		Title:   "Reviews expired",
		Message: formatExpired(batch),
		Level:   "warning",
		Source:  notifier.SourceReviewExpired,
	})
}

// record writes the per-message audit row and bumps the outcome counter.
func (c *Coordinator) record(ctx context.Context, msg moderation.IncomingMessage, v moderation.Verdict, outcome string) {
	if c.metrics != nil {
		c.metrics.MessageAnalyzed(ctx, outcome)
	}
	if c.store == nil {
		return
	}
	if err := c.store.RecordMessage(ctx, msg, v, outcome); err != nil {
		slog.Warn("audit message write failed", "message_id", msg.ID, "error", err)
	}
}

// contactName resolves a display name for notifications, through the
// cache when one is attached.
func (c *Coordinator) contactName(ctx context.Context, userID string) string {
	if c.contacts != nil {
		if name, ok := c.contacts.Get(ctx, userID); ok {
			return name
		}
	}

	name, err := c.tp.ContactName(ctx, userID)
	if err != nil || name == "" {
		// Bare id prefix beats an opaque failure in an admin alert.
		if at := strings.IndexByte(userID, '@'); at > 0 {
			return userID[:at]
		}
		return userID
	}

	if c.contacts != nil {
		c.contacts.Set(ctx, userID, name, c.contactTTL)
	}
	return name
}

func (c *Coordinator) publish(ctx context.Context, eventType string, payload any) {
	for _, sink := range c.events {
		sink.Publish(ctx, eventType, payload)
	}
}

// recoverHandler isolates one event handler's failure from the rest of the
// event loop.
func recoverHandler(handler, key string) {
	if r := recover(); r != nil {
		slog.Error("event handler panic", "handler", handler, "key", key, "panic", r)
	}
}

// recoverPipeline is recoverHandler for the message pipeline goroutines,
// where a dropped message means a moderation gap: admins are told to check
// the message by hand.
func (c *Coordinator) recoverPipeline(ctx context.Context, messageID string) {
	r := recover()
	if r == nil {
		return
	}
	slog.Error("message pipeline panic", "message_id", messageID, "panic", r)
	c.notify.Notify(ctx, notifier.Notification{
		Title:   "Moderation error",
		Message: formatError(messageID, fmt.Errorf("%v", r)),
		Level:   "error",
		Source:  notifier.SourceError,
	})
}
