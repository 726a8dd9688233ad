// Package report defines the daily report schedule and payload types.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Schedule is a once-a-day firing time in the configured location.
type Schedule struct {
	Hour   int
	Minute int
}

// ParseSchedule parses a "HH:MM" daily schedule expression.
func ParseSchedule(expr string) (Schedule, error) {
	expr = strings.TrimSpace(expr)
	parts := strings.SplitN(expr, ":", 2)
	if len(parts) != 2 {
		return Schedule{}, fmt.Errorf("expected HH:MM, got %q", expr)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return Schedule{}, fmt.Errorf("invalid hour %q", parts[0])
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return Schedule{}, fmt.Errorf("invalid minute %q", parts[1])
	}
	return Schedule{Hour: h, Minute: m}, nil
}

// NextAfter returns the next occurrence of the schedule strictly after t,
// in t's location.
func (s Schedule) NextAfter(t time.Time) time.Time {
	candidate := time.Date(t.Year(), t.Month(), t.Day(), s.Hour, s.Minute, 0, 0, t.Location())
	if !candidate.After(t) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

// Stats is the daily statistics payload produced by the learning component
// (and enriched with roster counts before rendering).
type Stats struct {
	DailyMessages int     `json:"daily_messages"`
	Approved      int     `json:"approved"`
	Flagged       int     `json:"flagged"`
	Deleted       int     `json:"deleted"`
	Accuracy      float64 `json:"accuracy"`
	Improvement   float64 `json:"improvement"`
}
