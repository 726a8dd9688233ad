package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Strob0t/GroupWarden/internal/domain/moderation"
	"github.com/Strob0t/GroupWarden/internal/domain/report"
	"github.com/Strob0t/GroupWarden/internal/domain/review"
	"github.com/Strob0t/GroupWarden/internal/port/notifier"
)

type stubStatsClient struct {
	stats report.Stats
	err   error
}

func (s *stubStatsClient) Classify(context.Context, moderation.IncomingMessage) (moderation.Verdict, error) {
	return moderation.Verdict{}, errors.New("not used")
}

func (s *stubStatsClient) SubmitFeedback(context.Context, string, review.FeedbackKind) error {
	return nil
}

func (s *stubStatsClient) DailyStats(context.Context) (report.Stats, error) {
	return s.stats, s.err
}

type stubAuditStats struct {
	stats report.Stats
	err   error
}

func (s *stubAuditStats) RecordMessage(context.Context, moderation.IncomingMessage, moderation.Verdict, string) error {
	return nil
}
func (s *stubAuditStats) RecordReviewOpened(context.Context, review.Record) error { return nil }
func (s *stubAuditStats) RecordReviewClosed(context.Context, review.Record) error { return nil }
func (s *stubAuditStats) DailyStats(context.Context, time.Time) (report.Stats, error) {
	return s.stats, s.err
}

func reportFixture(client *stubStatsClient) (*ReportService, *captureNotifier) {
	roster := NewRosterStore()
	roster.AddMember("admin@c.us", true)
	roster.AddMember("user@c.us", false)

	notes := &captureNotifier{}
	notify := NewNotificationService([]notifier.Notifier{notes}, nil)
	svc := NewReportService(report.Schedule{Hour: 20, Minute: 0}, client, roster, notify)
	return svc, notes
}

func TestSendUsesClientStats(t *testing.T) {
	svc, notes := reportFixture(&stubStatsClient{stats: report.Stats{
		DailyMessages: 42,
		Approved:      40,
		Flagged:       1,
		Deleted:       1,
		Accuracy:      0.97,
	}})

	svc.Send(context.Background())

	got := notes.bySource(notifier.SourceDailyReport)
	if len(got) != 1 {
		t.Fatalf("report notifications = %d, want 1", len(got))
	}
	if !strings.Contains(got[0].Message, "42") {
		t.Errorf("report %q missing message count", got[0].Message)
	}
}

func TestSendFallsBackToAuditStore(t *testing.T) {
	svc, notes := reportFixture(&stubStatsClient{err: errors.New("script broken")})
	svc.WithAudit(&stubAuditStats{stats: report.Stats{DailyMessages: 7, Approved: 7}})

	svc.Send(context.Background())

	got := notes.bySource(notifier.SourceDailyReport)
	if len(got) != 1 {
		t.Fatalf("report notifications = %d, want 1", len(got))
	}
	if !strings.Contains(got[0].Message, "7") {
		t.Errorf("report %q missing audit-store counts", got[0].Message)
	}
}

func TestSendSurvivesAllStatsFailures(t *testing.T) {
	svc, notes := reportFixture(&stubStatsClient{err: errors.New("script broken")})
	svc.WithAudit(&stubAuditStats{err: errors.New("db down")})

	svc.Send(context.Background())

	// Report still goes out, with zeroed counts.
	if len(notes.bySource(notifier.SourceDailyReport)) != 1 {
		t.Fatal("report must be sent even when stats are unavailable")
	}
}

func TestStartFiresOnSchedule(t *testing.T) {
	svc, notes := reportFixture(&stubStatsClient{stats: report.Stats{DailyMessages: 1}})

	fire := make(chan time.Time)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC) }
	svc.timer = func(time.Duration) <-chan time.Time { return fire }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	fire <- time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	deadline := time.After(2 * time.Second)
	for {
		if len(notes.bySource(notifier.SourceDailyReport)) >= 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("scheduled report never sent")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
