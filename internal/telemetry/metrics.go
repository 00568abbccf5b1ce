package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/guillermoBallester/estuary"

// Instruments holds pre-created OTel metric instruments.
type Instruments struct {
	ParseCount      metric.Int64Counter
	ParseDuration   metric.Float64Histogram
	ParseErrors     metric.Int64Counter
	RemoteFallbacks metric.Int64Counter
	ToolDuration    metric.Float64Histogram
}

// NewInstruments creates metric instruments from the global MeterProvider.
// Returns nil-safe instruments: if creation fails, noop instruments are used.
func NewInstruments() *Instruments {
	meter := otel.Meter(meterName)
	return newInstrumentsFromMeter(meter)
}

// NoopInstruments returns instruments that record nothing.
func NoopInstruments() *Instruments {
	meter := noop.NewMeterProvider().Meter(meterName)
	return newInstrumentsFromMeter(meter)
}

func newInstrumentsFromMeter(meter metric.Meter) *Instruments {
	// OTel SDK returns noop instruments on error; safe to discard.
	parseCount, _ := meter.Int64Counter("estuary.parse.count",
		metric.WithDescription("Total number of statements parsed"),
	)
	parseDuration, _ := meter.Float64Histogram("estuary.parse.duration",
		metric.WithDescription("Lineage extraction duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	parseErrors, _ := meter.Int64Counter("estuary.parse.errors",
		metric.WithDescription("Total number of rejected parse requests"),
	)
	remoteFallbacks, _ := meter.Int64Counter("estuary.remote.fallbacks",
		metric.WithDescription("Total number of remote parser failures served by local extraction"),
	)
	toolDuration, _ := meter.Float64Histogram("estuary.tool.duration",
		metric.WithDescription("MCP tool call duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return &Instruments{
		ParseCount:      parseCount,
		ParseDuration:   parseDuration,
		ParseErrors:     parseErrors,
		RemoteFallbacks: remoteFallbacks,
		ToolDuration:    toolDuration,
	}
}

func (i *Instruments) RecordParseDuration(ctx context.Context, ms float64) {
	i.ParseDuration.Record(ctx, ms)
}

func (i *Instruments) IncrementParseCount(ctx context.Context) {
	i.ParseCount.Add(ctx, 1)
}

func (i *Instruments) IncrementParseErrors(ctx context.Context) {
	i.ParseErrors.Add(ctx, 1)
}

func (i *Instruments) IncrementRemoteFallbacks(ctx context.Context) {
	i.RemoteFallbacks.Add(ctx, 1)
}

func (i *Instruments) RecordToolDuration(ctx context.Context, ms float64) {
	i.ToolDuration.Record(ctx, ms)
}
