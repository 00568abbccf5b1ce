package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guillermoBallester/estuary/internal/core/domain"
	"github.com/guillermoBallester/estuary/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DatabaseLineage pairs the merged graph of a database's hottest statements
// with the statements it was derived from.
type DatabaseLineage struct {
	Graph      *domain.LineageGraph  `json:"graph"`
	Statements []port.StatementStats `json:"statements"`
}

// StatementService derives lineage from the statement statistics of a live
// database instead of user-supplied SQL.
type StatementService struct {
	source       port.StatementSource
	annotator    port.GraphAnnotator
	logger       *slog.Logger
	tracer       trace.Tracer
	defaultLimit int
}

func NewStatementService(source port.StatementSource, annotator port.GraphAnnotator, logger *slog.Logger, tracer trace.Tracer, defaultLimit int) *StatementService {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if annotator == nil {
		annotator = port.NoopAnnotator{}
	}
	return &StatementService{
		source:       source,
		annotator:    annotator,
		logger:       logger,
		tracer:       tracer,
		defaultLimit: defaultLimit,
	}
}

// Lineage fetches the top statements by call count and merges their
// extracted graphs. Statements the local engine cannot derive anything from
// still contribute a query node; only an empty statement set fails. A
// non-positive limit falls back to the configured default.
func (s *StatementService) Lineage(ctx context.Context, limit int) (*DatabaseLineage, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	ctx, span := s.tracer.Start(ctx, "StatementService.Lineage",
		trace.WithAttributes(
			attribute.Int("lineage.statement_limit", limit),
		),
	)
	defer span.End()

	stats, err := s.source.TopStatements(ctx, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("fetch statements: %w", err)
	}
	if len(stats) == 0 {
		return &DatabaseLineage{Graph: &domain.LineageGraph{}}, nil
	}

	sqls := make([]string, 0, len(stats))
	for _, st := range stats {
		sqls = append(sqls, st.SQL)
	}

	graph, err := domain.ExtractAll(sqls)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	s.annotator.Annotate(graph)

	s.logger.InfoContext(ctx, "database lineage derived",
		slog.Int("statements", len(stats)),
		slog.Int("nodes", len(graph.Nodes)),
		slog.Int("edges", len(graph.Edges)),
	)
	span.SetAttributes(
		attribute.Int("lineage.nodes", len(graph.Nodes)),
		attribute.Int("lineage.edges", len(graph.Edges)),
	)
	return &DatabaseLineage{Graph: graph, Statements: stats}, nil
}
