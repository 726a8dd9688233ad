package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/GroupWarden/internal/config"
	"github.com/Strob0t/GroupWarden/internal/domain/member"
	"github.com/Strob0t/GroupWarden/internal/domain/moderation"
	"github.com/Strob0t/GroupWarden/internal/domain/report"
	"github.com/Strob0t/GroupWarden/internal/domain/review"
	"github.com/Strob0t/GroupWarden/internal/port/decision"
	"github.com/Strob0t/GroupWarden/internal/port/notifier"
	"github.com/Strob0t/GroupWarden/internal/port/transport"
	"github.com/Strob0t/GroupWarden/internal/resilience"
)

const testGroup = "group@g.us"

// mockTransport records outgoing calls and returns configurable results.
type mockTransport struct {
	mu        sync.Mutex
	sent      []string // "recipient|text"
	deleted   []string
	deleteErr error
	roster    []member.Member
	rosterErr error
	names     map[string]string
}

func (m *mockTransport) Start(context.Context, transport.Handlers) (func(), error) {
	return func() {}, nil
}

func (m *mockTransport) SendMessage(_ context.Context, recipientID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, recipientID+"|"+text)
	return nil
}

func (m *mockTransport) DeleteMessage(_ context.Context, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *mockTransport) GroupRoster(context.Context, string) ([]member.Member, error) {
	if m.rosterErr != nil {
		return nil, m.rosterErr
	}
	return m.roster, nil
}

func (m *mockTransport) ContactName(_ context.Context, userID string) (string, error) {
	if name, ok := m.names[userID]; ok {
		return name, nil
	}
	return "", errors.New("unknown contact")
}

func (m *mockTransport) sentMessages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

func (m *mockTransport) deletedMessages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

// mockDecision returns a fixed verdict or error per call.
type mockDecision struct {
	mu       sync.Mutex
	verdict  moderation.Verdict
	err      error
	panicMsg string
	feedback []string // "messageID|kind"
	calls    int
}

func (m *mockDecision) Classify(context.Context, moderation.IncomingMessage) (moderation.Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	if m.err != nil {
		return moderation.Verdict{}, m.err
	}
	return m.verdict, nil
}

func (m *mockDecision) SubmitFeedback(_ context.Context, messageID string, kind review.FeedbackKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedback = append(m.feedback, messageID+"|"+string(kind))
	return nil
}

func (m *mockDecision) DailyStats(context.Context) (report.Stats, error) {
	return report.Stats{}, errors.New("not implemented")
}

func (m *mockDecision) classifyCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockDecision) submitted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.feedback...)
}

// captureNotifier records every notification it receives.
type captureNotifier struct {
	mu   sync.Mutex
	seen []notifier.Notification
}

func (n *captureNotifier) Name() string { return "capture" }

func (n *captureNotifier) Send(_ context.Context, msg notifier.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = append(n.seen, msg)
	return nil
}

func (n *captureNotifier) bySource(source string) []notifier.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notifier.Notification
	for _, msg := range n.seen {
		if msg.Source == source {
			out = append(out, msg)
		}
	}
	return out
}

type coordFixture struct {
	coord  *Coordinator
	tp     *mockTransport
	client *mockDecision
	roster *RosterStore
	ledger *ReviewLedger
	notes  *captureNotifier
}

func newFixture(t *testing.T) *coordFixture {
	t.Helper()

	cfg := config.Moderation{
		GroupID:          testGroup,
		GroupName:        "Test Group",
		MinMessageLen:    2,
		ReviewRetention:  24 * time.Hour,
		MediaKeywords:    []string{"full movie"},
		NotifyTruncateAt: 300,
	}

	tp := &mockTransport{
		roster: []member.Member{
			{ID: "admin@c.us", IsAdmin: true},
			{ID: "user@c.us", IsAdmin: false},
		},
		names: map[string]string{"user@c.us": "Alice"},
	}
	client := &mockDecision{verdict: moderation.Verdict{
		Classification: moderation.ClassSafe,
		Confidence:     0.95,
		Action:         moderation.ActionApprove,
	}}
	roster := NewRosterStore()
	ledger := NewReviewLedger(roster, cfg.ReviewRetention)
	notes := &captureNotifier{}
	notify := NewNotificationService([]notifier.Notifier{notes}, nil)
	breaker := resilience.NewBreaker(3, time.Minute)

	coord := NewCoordinator(cfg, tp, client, roster, ledger, notify, breaker, 2)
	if err := coord.RefreshRoster(context.Background()); err != nil {
		t.Fatalf("refresh roster: %v", err)
	}

	return &coordFixture{coord: coord, tp: tp, client: client, roster: roster, ledger: ledger, notes: notes}
}

func groupMessage(id, content string) moderation.IncomingMessage {
	return moderation.IncomingMessage{
		ID:        id,
		SenderID:  "user@c.us",
		Content:   content,
		Timestamp: time.Now(),
		GroupID:   testGroup,
	}
}

func TestApproveLeavesNoReview(t *testing.T) {
	f := newFixture(t)

	f.coord.HandleMessage(context.Background(), groupMessage("msg-1", "hello there"))
	f.coord.Wait()

	if _, err := f.ledger.Lookup("msg-1"); err == nil {
		t.Error("approved message must not open a review")
	}
	if len(f.tp.deletedMessages()) != 0 {
		t.Error("approved message must not be deleted")
	}
	if len(f.tp.sentMessages()) != 0 {
		t.Errorf("no reminder expected, got %v", f.tp.sentMessages())
	}
}

func TestApproveSendsMediaReminder(t *testing.T) {
	f := newFixture(t)

	f.coord.HandleMessage(context.Background(), groupMessage("msg-1", "anyone got the full movie?"))
	f.coord.Wait()

	sent := f.tp.sentMessages()
	if len(sent) != 1 || !strings.HasPrefix(sent[0], testGroup+"|") {
		t.Fatalf("expected one group reminder, got %v", sent)
	}
}

func TestDeleteNotifiesAdmins(t *testing.T) {
	f := newFixture(t)
	f.client.verdict = moderation.Verdict{
		Classification: moderation.ClassViolation,
		Confidence:     0.99,
		Action:         moderation.ActionDeleteMessage,
		Reasoning:      "spam link",
	}

	f.coord.HandleMessage(context.Background(), groupMessage("msg-1", "buy cheap stuff"))
	f.coord.Wait()

	if got := f.tp.deletedMessages(); len(got) != 1 || got[0] != "msg-1" {
		t.Fatalf("deleted = %v, want [msg-1]", got)
	}
	if len(f.notes.bySource(notifier.SourceDeleted)) != 1 {
		t.Error("expected a deletion notification")
	}
	if _, err := f.ledger.Lookup("msg-1"); err == nil {
		t.Error("clean delete must not open a review")
	}
}

func TestDeleteFailureEscalatesWithAmendedReasoning(t *testing.T) {
	f := newFixture(t)
	f.tp.deleteErr = errors.New("message too old")
	f.client.verdict = moderation.Verdict{
		Classification: moderation.ClassViolation,
		Confidence:     0.99,
		Action:         moderation.ActionDeleteMessage,
		Reasoning:      "spam link",
	}

	f.coord.HandleMessage(context.Background(), groupMessage("msg-1", "buy cheap stuff"))
	f.coord.Wait()

	rec, err := f.ledger.Lookup("msg-1")
	if err != nil {
		t.Fatalf("expected review after failed delete: %v", err)
	}
	if rec.Status != review.StatusOpen {
		t.Errorf("status = %s, want open", rec.Status)
	}
	if !strings.Contains(rec.Verdict.Reasoning, "automatic deletion failed") {
		t.Errorf("reasoning %q lacks deletion-failure note", rec.Verdict.Reasoning)
	}
	if !strings.Contains(rec.Verdict.Reasoning, "spam link") {
		t.Errorf("reasoning %q lost the original verdict text", rec.Verdict.Reasoning)
	}
}

func TestClassifierTimeoutFallsBackToReview(t *testing.T) {
	f := newFixture(t)
	f.client.err = decision.ErrTimeout

	f.coord.HandleMessage(context.Background(), groupMessage("msg-1", "ordinary message"))
	f.coord.Wait()

	rec, err := f.ledger.Lookup("msg-1")
	if err != nil {
		t.Fatalf("expected review after classifier failure: %v", err)
	}
	if rec.Verdict.Classification != moderation.ClassTechnicalError {
		t.Errorf("classification = %s, want TECHNICAL_ERROR", rec.Verdict.Classification)
	}
	if rec.Verdict.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", rec.Verdict.Confidence)
	}
	if !strings.Contains(rec.Verdict.Reasoning, "timed out") {
		t.Errorf("reasoning %q does not mention the timeout", rec.Verdict.Reasoning)
	}
}

func TestOpenBreakerShortCircuits(t *testing.T) {
	f := newFixture(t)
	f.client.err = decision.ErrProcessFailure

	// Trip the breaker, then send one more message.
	for i := 0; i < 4; i++ {
		f.coord.HandleMessage(context.Background(), groupMessage("msg-"+strings.Repeat("x", i+1), "some text"))
		f.coord.Wait()
	}

	calls := f.client.classifyCalls()
	if calls > 3 {
		t.Errorf("classifier called %d times, breaker should cap at 3", calls)
	}
}

func TestUnknownActionEscalates(t *testing.T) {
	f := newFixture(t)
	f.client.verdict = moderation.Verdict{
		Classification: moderation.ClassUncertain,
		Confidence:     0.5,
		Action:         moderation.Action("BAN_USER"),
	}

	f.coord.HandleMessage(context.Background(), groupMessage("msg-1", "odd one"))
	f.coord.Wait()

	if _, err := f.ledger.Lookup("msg-1"); err != nil {
		t.Fatalf("unknown action must flag for review: %v", err)
	}
}

func TestDuplicateEscalationSuppressed(t *testing.T) {
	f := newFixture(t)
	f.client.verdict = moderation.Verdict{
		Classification: moderation.ClassUncertain,
		Confidence:     0.4,
		Action:         moderation.ActionFlagForReview,
	}

	msg := groupMessage("msg-1", "borderline content")
	f.coord.HandleMessage(context.Background(), msg)
	f.coord.Wait()
	f.coord.HandleMessage(context.Background(), msg)
	f.coord.Wait()

	if got := len(f.notes.bySource(notifier.SourceReviewOpened)); got != 1 {
		t.Errorf("review notifications = %d, want 1 (duplicate suppressed)", got)
	}
}

func TestIgnoresOtherGroupsAndShortMessages(t *testing.T) {
	f := newFixture(t)

	other := groupMessage("msg-1", "hello")
	other.GroupID = "another@g.us"
	f.coord.HandleMessage(context.Background(), other)

	f.coord.HandleMessage(context.Background(), groupMessage("msg-2", "k"))
	f.coord.Wait()

	if f.client.classifyCalls() != 0 {
		t.Errorf("classifier called %d times for gated messages", f.client.classifyCalls())
	}
}

func TestAdminReactionResolvesAndForwardsFeedback(t *testing.T) {
	f := newFixture(t)
	f.client.verdict = moderation.Verdict{
		Classification: moderation.ClassUncertain,
		Confidence:     0.4,
		Action:         moderation.ActionFlagForReview,
	}

	f.coord.HandleMessage(context.Background(), groupMessage("msg-1", "borderline content"))
	f.coord.Wait()

	f.coord.HandleReaction(context.Background(), transport.Reaction{
		MessageID: "msg-1",
		ReactorID: "admin@c.us",
		Emoji:     "✅",
		Timestamp: time.Now(),
	})

	rec, err := f.ledger.Lookup("msg-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rec.Status != review.StatusResolved || rec.Feedback != review.FeedbackCorrect {
		t.Errorf("record = %+v, want resolved/CORRECT", rec)
	}
	if got := f.client.submitted(); len(got) != 1 || got[0] != "msg-1|CORRECT" {
		t.Errorf("feedback hand-off = %v", got)
	}
	if len(f.notes.bySource(notifier.SourceReviewResolved)) != 1 {
		t.Error("expected a feedback acknowledgement")
	}
}

func TestNonAdminReactionIgnored(t *testing.T) {
	f := newFixture(t)
	f.client.verdict = moderation.Verdict{
		Classification: moderation.ClassUncertain,
		Confidence:     0.4,
		Action:         moderation.ActionFlagForReview,
	}

	f.coord.HandleMessage(context.Background(), groupMessage("msg-1", "borderline content"))
	f.coord.Wait()

	f.coord.HandleReaction(context.Background(), transport.Reaction{
		MessageID: "msg-1",
		ReactorID: "user@c.us",
		Emoji:     "✅",
		Timestamp: time.Now(),
	})

	rec, _ := f.ledger.Lookup("msg-1")
	if rec.Status != review.StatusOpen {
		t.Errorf("status = %s, non-admin reaction must not resolve", rec.Status)
	}
	if len(f.client.submitted()) != 0 {
		t.Error("no feedback should be forwarded for a non-admin reaction")
	}
}

func TestUnknownEmojiIgnored(t *testing.T) {
	f := newFixture(t)
	f.client.verdict = moderation.Verdict{
		Classification: moderation.ClassUncertain,
		Confidence:     0.4,
		Action:         moderation.ActionFlagForReview,
	}

	f.coord.HandleMessage(context.Background(), groupMessage("msg-1", "borderline content"))
	f.coord.Wait()

	f.coord.HandleReaction(context.Background(), transport.Reaction{
		MessageID: "msg-1",
		ReactorID: "admin@c.us",
		Emoji:     "👍",
		Timestamp: time.Now(),
	})

	rec, _ := f.ledger.Lookup("msg-1")
	if rec.Status != review.StatusOpen {
		t.Errorf("status = %s, unmapped emoji must not resolve", rec.Status)
	}
}

func TestReanalyzeOpensFreshReview(t *testing.T) {
	f := newFixture(t)
	f.client.verdict = moderation.Verdict{
		Classification: moderation.ClassUncertain,
		Confidence:     0.4,
		Action:         moderation.ActionFlagForReview,
	}

	f.coord.HandleMessage(context.Background(), groupMessage("msg-1", "borderline content"))
	f.coord.Wait()

	first, err := f.ledger.Lookup("msg-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	f.coord.HandleReaction(context.Background(), transport.Reaction{
		MessageID: "msg-1",
		ReactorID: "admin@c.us",
		Emoji:     "🔄",
		Timestamp: time.Now(),
	})
	f.coord.Wait()

	second, err := f.ledger.Lookup("msg-1")
	if err != nil {
		t.Fatalf("lookup after reanalyze: %v", err)
	}
	if second.Status != review.StatusOpen {
		t.Fatalf("status = %s, want a fresh open review", second.Status)
	}
	if second.ReviewID == first.ReviewID {
		t.Error("re-analysis must mint a new review id")
	}
}

func TestResolveReviewCarriesReactionSideEffects(t *testing.T) {
	f := newFixture(t)
	f.client.verdict = moderation.Verdict{
		Classification: moderation.ClassUncertain,
		Confidence:     0.4,
		Action:         moderation.ActionFlagForReview,
	}

	f.coord.HandleMessage(context.Background(), groupMessage("msg-1", "borderline content"))
	f.coord.Wait()

	// Direct resolution (the dashboard path) must behave exactly like a
	// group reaction: feedback hand-off, acknowledgement, re-analysis.
	rec, err := f.coord.ResolveReview(context.Background(), review.FeedbackEvent{
		ReactorID: "admin@c.us",
		MessageID: "msg-1",
		Kind:      review.FeedbackReanalyze,
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if rec.Status != review.StatusResolved {
		t.Fatalf("status = %s, want resolved", rec.Status)
	}
	f.coord.Wait()

	if got := f.client.submitted(); len(got) != 1 || got[0] != "msg-1|REANALYZE" {
		t.Errorf("feedback hand-offs = %v, want [msg-1|REANALYZE]", got)
	}
	if len(f.notes.bySource(notifier.SourceReviewResolved)) != 1 {
		t.Error("expected a feedback acknowledgement")
	}
	reopened, err := f.ledger.Lookup("msg-1")
	if err != nil {
		t.Fatalf("lookup after reanalyze: %v", err)
	}
	if reopened.Status != review.StatusOpen || reopened.ReviewID == rec.ReviewID {
		t.Errorf("record = %+v, want a fresh open review", reopened)
	}
}

func TestMembershipChangesUpdateRoster(t *testing.T) {
	f := newFixture(t)

	f.coord.HandleMembership(context.Background(), transport.MembershipChange{
		GroupID:   testGroup,
		MemberIDs: []string{"new@c.us"},
		Joined:    true,
	})
	if !f.roster.IsMember("new@c.us") {
		t.Error("joined member not tracked")
	}
	if f.roster.IsAdmin("new@c.us") {
		t.Error("joined member must not be admin by default")
	}
	if len(f.notes.bySource(notifier.SourceMemberJoined)) != 1 {
		t.Error("expected a join notification")
	}

	f.coord.HandleMembership(context.Background(), transport.MembershipChange{
		GroupID:   testGroup,
		MemberIDs: []string{"new@c.us"},
		Joined:    false,
	})
	if f.roster.IsMember("new@c.us") {
		t.Error("departed member still tracked")
	}
}

func TestPipelinePanicNotifiesAdmins(t *testing.T) {
	f := newFixture(t)
	f.client.panicMsg = "classifier blew up"

	f.coord.HandleMessage(context.Background(), groupMessage("msg-panic", "hello there"))
	f.coord.Wait()

	errs := f.notes.bySource(notifier.SourceError)
	if len(errs) != 1 {
		t.Fatalf("error notifications = %d, want 1", len(errs))
	}
	if !strings.Contains(errs[0].Message, "msg-panic") {
		t.Errorf("error notification lacks message id: %q", errs[0].Message)
	}
}
