package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "selfai"

// Metrics holds all SelfAI metric instruments.
type Metrics struct {
	PostsGenerated metric.Int64Counter
	FallbacksUsed  metric.Int64Counter
	PostsApproved  metric.Int64Counter
	PostsRejected  metric.Int64Counter
	AgentsCreated  metric.Int64Counter
	GenerateTime   metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.PostsGenerated, err = meter.Int64Counter("selfai.posts.generated",
		metric.WithDescription("Number of drafts generated"))
	if err != nil {
		return nil, err
	}

	m.FallbacksUsed, err = meter.Int64Counter("selfai.posts.fallbacks",
		metric.WithDescription("Number of drafts produced by the local fallback"))
	if err != nil {
		return nil, err
	}

	m.PostsApproved, err = meter.Int64Counter("selfai.posts.approved",
		metric.WithDescription("Number of drafts approved"))
	if err != nil {
		return nil, err
	}

	m.PostsRejected, err = meter.Int64Counter("selfai.posts.rejected",
		metric.WithDescription("Number of drafts rejected"))
	if err != nil {
		return nil, err
	}

	m.AgentsCreated, err = meter.Int64Counter("selfai.agents.created",
		metric.WithDescription("Number of agents created"))
	if err != nil {
		return nil, err
	}

	m.GenerateTime, err = meter.Float64Histogram("selfai.generate.duration_seconds",
		metric.WithDescription("Generation call duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
