package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/guillermoBallester/estuary/internal/core/domain"
	"github.com/guillermoBallester/estuary/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type toolNameKey struct{}

// WithToolName returns a context carrying the MCP tool name for audit logging.
func WithToolName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, toolNameKey{}, name)
}

func toolNameFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(toolNameKey{}).(string); ok {
		return v
	}
	return ""
}

// LineageService orchestrates lineage extraction: remote parser first when
// configured, local extraction (domain) as the fallback, catalog annotation
// on the way out.
type LineageService struct {
	remote    port.LineageParser // nil when no remote parser is configured
	auditor   port.ParseAuditor
	annotator port.GraphAnnotator
	logger    *slog.Logger
	tracer    trace.Tracer
	inst      port.Instrumentation
}

func NewLineageService(remote port.LineageParser, auditor port.ParseAuditor, annotator port.GraphAnnotator, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *LineageService {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	if annotator == nil {
		annotator = port.NoopAnnotator{}
	}
	return &LineageService{
		remote:    remote,
		auditor:   auditor,
		annotator: annotator,
		logger:    logger,
		tracer:    tracer,
		inst:      inst,
	}
}

// Parse extracts the lineage graph of a single statement. A remote parser
// failure is never fatal: the local engine takes over silently apart from a
// warning log and a fallback counter.
func (s *LineageService) Parse(ctx context.Context, sql string) (*domain.LineageGraph, error) {
	ctx, span := s.tracer.Start(ctx, "LineageService.Parse",
		trace.WithAttributes(
			attribute.String("db.statement", sql),
		),
	)
	defer span.End()

	if domain.Normalize(sql) == "" {
		s.logger.WarnContext(ctx, "parse rejected",
			slog.String("error.type", "invalid_input"),
		)
		span.RecordError(domain.ErrInvalidInput)
		span.SetStatus(codes.Error, domain.ErrInvalidInput.Error())
		s.inst.IncrementParseErrors(ctx)
		return nil, domain.ErrInvalidInput
	}

	start := time.Now()
	graph, remote, err := s.extract(ctx, sql)
	durationMS := time.Since(start).Milliseconds()

	s.inst.RecordParseDuration(ctx, float64(durationMS))

	entry := port.ParseEntry{
		Tool:       toolNameFromCtx(ctx),
		SQL:        sql,
		DurationMS: durationMS,
		Remote:     remote,
		Err:        err,
	}
	if graph != nil {
		entry.Nodes = len(graph.Nodes)
		entry.Edges = len(graph.Edges)
	}
	s.auditor.Record(ctx, entry)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.inst.IncrementParseErrors(ctx)
		return nil, err
	}

	s.annotator.Annotate(graph)
	s.inst.IncrementParseCount(ctx)
	span.SetAttributes(
		attribute.Int("lineage.nodes", len(graph.Nodes)),
		attribute.Int("lineage.edges", len(graph.Edges)),
		attribute.Bool("lineage.remote", remote),
	)
	return graph, nil
}

func (s *LineageService) extract(ctx context.Context, sql string) (*domain.LineageGraph, bool, error) {
	if s.remote != nil {
		graph, err := s.remote.Parse(ctx, sql)
		if err == nil {
			return graph, true, nil
		}
		s.logger.WarnContext(ctx, "remote parser unavailable, falling back to local extraction",
			slog.String("error", err.Error()),
		)
		s.inst.IncrementRemoteFallbacks(ctx)
	}
	graph, err := domain.Extract(sql)
	return graph, false, err
}

// ParseAll extracts one merged graph from a batch of statements. Batches
// always use the local engine; the remote boundary is per-statement.
func (s *LineageService) ParseAll(ctx context.Context, sqls []string) (*domain.LineageGraph, error) {
	ctx, span := s.tracer.Start(ctx, "LineageService.ParseAll",
		trace.WithAttributes(
			attribute.Int("lineage.statements", len(sqls)),
		),
	)
	defer span.End()

	start := time.Now()
	graph, err := domain.ExtractAll(sqls)
	durationMS := time.Since(start).Milliseconds()

	s.inst.RecordParseDuration(ctx, float64(durationMS))

	entry := port.ParseEntry{
		Tool:       toolNameFromCtx(ctx),
		SQL:        "(batch)",
		DurationMS: durationMS,
		Err:        err,
	}
	if graph != nil {
		entry.Nodes = len(graph.Nodes)
		entry.Edges = len(graph.Edges)
	}
	s.auditor.Record(ctx, entry)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.inst.IncrementParseErrors(ctx)
		return nil, err
	}

	s.annotator.Annotate(graph)
	s.inst.IncrementParseCount(ctx)
	span.SetAttributes(
		attribute.Int("lineage.nodes", len(graph.Nodes)),
		attribute.Int("lineage.edges", len(graph.Edges)),
	)
	return graph, nil
}
