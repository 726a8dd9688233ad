package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Strob0t/GroupWarden/internal/domain/review"
)

const meterName = "groupwarden"

// Metrics holds the moderation pipeline's metric instruments.
type Metrics struct {
	messagesAnalyzed metric.Int64Counter
	decisionFailures metric.Int64Counter
	reviewsClosed    metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.messagesAnalyzed, err = meter.Int64Counter("groupwarden.messages.analyzed",
		metric.WithDescription("Messages run through the moderation pipeline, by outcome"))
	if err != nil {
		return nil, err
	}

	m.decisionFailures, err = meter.Int64Counter("groupwarden.decision.failures",
		metric.WithDescription("Classification attempts that fell back to the safe default"))
	if err != nil {
		return nil, err
	}

	m.reviewsClosed, err = meter.Int64Counter("groupwarden.reviews.closed",
		metric.WithDescription("Review records reaching a terminal state, by status"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// MessageAnalyzed counts one pipeline completion with its outcome.
func (m *Metrics) MessageAnalyzed(ctx context.Context, outcome string) {
	m.messagesAnalyzed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome)))
}

// DecisionFailed counts one fallback to the safe-default verdict.
func (m *Metrics) DecisionFailed(ctx context.Context) {
	m.decisionFailures.Add(ctx, 1)
}

// ReviewClosed counts one terminal review transition.
func (m *Metrics) ReviewClosed(ctx context.Context, status review.Status) {
	m.reviewsClosed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", string(status))))
}
