package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "selfai"

// StartGenerateSpan starts a span for a post generation call.
func StartGenerateSpan(ctx context.Context, agentID int64) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "generate_post",
		trace.WithAttributes(
			attribute.Int64("agent.id", agentID),
		),
	)
}

// StartReviewSpan starts a span for an approve or reject decision.
func StartReviewSpan(ctx context.Context, draftID, outcome string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "review_draft",
		trace.WithAttributes(
			attribute.String("draft.id", draftID),
			attribute.String("review.outcome", outcome),
		),
	)
}
