package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/GroupWarden/internal/domain/review"
	"github.com/Strob0t/GroupWarden/internal/port/audit"
	"github.com/Strob0t/GroupWarden/internal/port/messagequeue"
	"github.com/Strob0t/GroupWarden/internal/service"
)

// Handlers holds the admin API handler dependencies.
type Handlers struct {
	Roster      *service.RosterStore
	Ledger      *service.ReviewLedger
	Coordinator *service.Coordinator
	Reports     *service.ReportService
	Queue       messagequeue.Queue
	Audit       audit.Store // optional

	StartedAt time.Time
}

// Health reports process liveness and the bridge connection state.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"uptime_seconds":   int(time.Since(h.StartedAt).Seconds()),
		"bridge_connected": h.Queue != nil && h.Queue.IsConnected(),
	})
}

// ListReviews returns all currently open reviews.
func (h *Handlers) ListReviews(w http.ResponseWriter, _ *http.Request) {
	records := h.Ledger.OpenRecords()
	writeJSON(w, http.StatusOK, map[string]any{
		"reviews": records,
		"count":   len(records),
	})
}

// GetReview returns the latest review record for a message.
func (h *Handlers) GetReview(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageID")

	rec, err := h.Ledger.Lookup(messageID)
	if err != nil {
		writeDomainError(w, err, "no review for message "+messageID)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type resolveReviewRequest struct {
	ReactorID string `json:"reactor_id"`
	Feedback  string `json:"feedback"`
}

// ResolveReview closes an open review from the dashboard, equivalent to an
// admin reacting in the group. It goes through the coordinator so a
// dashboard resolution carries the same side effects as a reaction.
func (h *Handlers) ResolveReview(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageID")

	req, ok := readJSON[resolveReviewRequest](w, r)
	if !ok {
		return
	}

	kind := review.FeedbackKind(req.Feedback)
	if kind.Emoji() == "" {
		writeError(w, http.StatusBadRequest, "unknown feedback kind "+req.Feedback)
		return
	}

	rec, err := h.Coordinator.ResolveReview(r.Context(), review.FeedbackEvent{
		ReactorID: req.ReactorID,
		MessageID: messageID,
		Kind:      kind,
		Timestamp: time.Now(),
	})
	if err != nil {
		writeDomainError(w, err, "no open review for message "+messageID)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetRoster returns the current group roster snapshot.
func (h *Handlers) GetRoster(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Roster.Snapshot())
}

// RefreshRoster re-fetches the participant list from the bridge.
func (h *Handlers) RefreshRoster(w http.ResponseWriter, r *http.Request) {
	if err := h.Coordinator.RefreshRoster(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, "roster refresh failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.Roster.Snapshot())
}

// GetStats returns the roster counts, open review backlog and, when the
// audit store is attached, today's moderation counts.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	total, admins := h.Roster.Counts()
	resp := map[string]any{
		"members":      total,
		"admins":       admins,
		"open_reviews": len(h.Ledger.OpenRecords()),
	}

	if h.Audit != nil {
		if stats, err := h.Audit.DailyStats(r.Context(), time.Now()); err == nil {
			resp["today"] = stats
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// TriggerReport sends the daily report immediately.
func (h *Handlers) TriggerReport(w http.ResponseWriter, r *http.Request) {
	h.Reports.Send(r.Context())
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "report sent"})
}
