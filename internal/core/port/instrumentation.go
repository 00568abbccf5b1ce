package port

import "context"

// Instrumentation records application-level metrics.
type Instrumentation interface {
	RecordParseDuration(ctx context.Context, ms float64)
	IncrementParseCount(ctx context.Context)
	IncrementParseErrors(ctx context.Context)
	IncrementRemoteFallbacks(ctx context.Context)
	RecordToolDuration(ctx context.Context, ms float64)
}

// NoopInstrumentation discards all metrics.
type NoopInstrumentation struct{}

func (NoopInstrumentation) RecordParseDuration(context.Context, float64) {}
func (NoopInstrumentation) IncrementParseCount(context.Context)         {}
func (NoopInstrumentation) IncrementParseErrors(context.Context)        {}
func (NoopInstrumentation) IncrementRemoteFallbacks(context.Context)    {}
func (NoopInstrumentation) RecordToolDuration(context.Context, float64) {}
