package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/Strob0t/GroupWarden/internal/domain/report"
	"github.com/Strob0t/GroupWarden/internal/port/audit"
	"github.com/Strob0t/GroupWarden/internal/port/decision"
	"github.com/Strob0t/GroupWarden/internal/port/notifier"
)

// ReportService sends the daily moderation summary to admins at a fixed
// local time, decoupled from the message-handling path.
type ReportService struct {
	schedule report.Schedule
	client   decision.Client
	store    audit.Store // optional fallback when the stats script fails
	roster   *RosterStore
	notify   *NotificationService

	now   func() time.Time
	timer func(d time.Duration) <-chan time.Time
}

// NewReportService creates a report service firing at the given schedule.
func NewReportService(sched report.Schedule, client decision.Client, roster *RosterStore, notify *NotificationService) *ReportService {
	return &ReportService{
		schedule: sched,
		client:   client,
		roster:   roster,
		notify:   notify,
		now:      time.Now,
		timer:    func(d time.Duration) <-chan time.Time { return time.After(d) },
	}
}

// WithAudit attaches the audit store as a stats fallback.
func (s *ReportService) WithAudit(store audit.Store) *ReportService {
	s.store = store
	return s
}

// Start launches the scheduler loop until ctx is done.
func (s *ReportService) Start(ctx context.Context) {
	go func() {
		for {
			next := s.schedule.NextAfter(s.now())
			slog.Info("daily report scheduled", "at", next)

			select {
			case <-ctx.Done():
				return
			case <-s.timer(next.Sub(s.now())):
				s.Send(ctx)
			}
		}
	}()
}

// Send gathers statistics and notifies admins. Exposed for the admin API's
// on-demand report trigger.
func (s *ReportService) Send(ctx context.Context) {
	stats := s.gather(ctx)
	total, admins := s.roster.Counts()

	s.notify.Notify(ctx, notifier.Notification{
		Title:   "Daily moderation report",
		Message: formatDailyReport(stats, total, admins, s.now()),
		Level:   "info",
		Source:  notifier.SourceDailyReport,
	})
}

// gather asks the learning component for its daily numbers, falling back
// to the audit store's aggregation when the script fails.
func (s *ReportService) gather(ctx context.Context) report.Stats {
	stats, err := s.client.DailyStats(ctx)
	if err == nil {
		return stats
	}
	slog.Warn("stats script failed", "error", err)

	if s.store != nil {
		if fromStore, serr := s.store.DailyStats(ctx, s.now()); serr == nil {
			return fromStore
		} else {
			slog.Warn("audit stats query failed", "error", serr)
		}
	}
	return report.Stats{}
}
