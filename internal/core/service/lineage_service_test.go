package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/guillermoBallester/estuary/internal/core/domain"
	"github.com/guillermoBallester/estuary/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- mock LineageParser ---

type mockRemote struct {
	called  bool
	lastSQL string
	graph   *domain.LineageGraph
	err     error
}

func (m *mockRemote) Parse(_ context.Context, sql string) (*domain.LineageGraph, error) {
	m.called = true
	m.lastSQL = sql
	return m.graph, m.err
}

// --- mock ParseAuditor ---

type mockAuditor struct {
	entries []port.ParseEntry
}

func (m *mockAuditor) Record(_ context.Context, entry port.ParseEntry) {
	m.entries = append(m.entries, entry)
}

func (m *mockAuditor) Close() error { return nil }

// --- mock Instrumentation ---

type mockInst struct {
	parses    int
	errors    int
	fallbacks int
}

func (m *mockInst) RecordParseDuration(context.Context, float64) {}
func (m *mockInst) IncrementParseCount(context.Context)          { m.parses++ }
func (m *mockInst) IncrementParseErrors(context.Context)         { m.errors++ }
func (m *mockInst) IncrementRemoteFallbacks(context.Context)     { m.fallbacks++ }
func (m *mockInst) RecordToolDuration(context.Context, float64)  {}

// --- mock GraphAnnotator ---

type mockAnnotator struct {
	called bool
}

func (m *mockAnnotator) Annotate(*domain.LineageGraph) { m.called = true }

// --- tests ---

func TestLineageService_LocalParse(t *testing.T) {
	aud := &mockAuditor{}
	svc := NewLineageService(nil, aud, nil, testLogger(), nil, nil)

	graph, err := svc.Parse(context.Background(), "SELECT u.id FROM users u")
	require.NoError(t, err)
	require.NotNil(t, graph)
	assert.NotEmpty(t, graph.Nodes)

	require.Len(t, aud.entries, 1)
	entry := aud.entries[0]
	assert.Equal(t, "SELECT u.id FROM users u", entry.SQL)
	assert.False(t, entry.Remote)
	assert.Equal(t, len(graph.Nodes), entry.Nodes)
	assert.Equal(t, len(graph.Edges), entry.Edges)
	assert.NoError(t, entry.Err)
}

func TestLineageService_RejectsEmptyInput(t *testing.T) {
	aud := &mockAuditor{}
	inst := &mockInst{}
	svc := NewLineageService(nil, aud, nil, testLogger(), nil, inst)

	_, err := svc.Parse(context.Background(), "  -- comments only\n")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, aud.entries, "rejected input should not reach the auditor")
	assert.Equal(t, 1, inst.errors)
}

func TestLineageService_RemotePreferred(t *testing.T) {
	remoteGraph := &domain.LineageGraph{
		Nodes: []domain.Node{{ID: "table_users", Name: "users", Kind: domain.NodeTable}},
	}
	remote := &mockRemote{graph: remoteGraph}
	aud := &mockAuditor{}
	svc := NewLineageService(remote, aud, nil, testLogger(), nil, nil)

	graph, err := svc.Parse(context.Background(), "SELECT id FROM users")
	require.NoError(t, err)
	assert.True(t, remote.called)
	assert.Same(t, remoteGraph, graph)

	require.Len(t, aud.entries, 1)
	assert.True(t, aud.entries[0].Remote)
}

func TestLineageService_RemoteFailureFallsBackToLocal(t *testing.T) {
	remote := &mockRemote{err: errors.New("connection refused")}
	aud := &mockAuditor{}
	inst := &mockInst{}
	svc := NewLineageService(remote, aud, nil, testLogger(), nil, inst)

	graph, err := svc.Parse(context.Background(), "SELECT u.id FROM users u")
	require.NoError(t, err, "remote failure must not surface to the caller")
	require.NotNil(t, graph)
	assert.NotEmpty(t, graph.Nodes)
	assert.Equal(t, 1, inst.fallbacks)

	require.Len(t, aud.entries, 1)
	assert.False(t, aud.entries[0].Remote)
}

func TestLineageService_AnnotatorApplied(t *testing.T) {
	ann := &mockAnnotator{}
	svc := NewLineageService(nil, &mockAuditor{}, ann, testLogger(), nil, nil)

	_, err := svc.Parse(context.Background(), "SELECT id FROM users")
	require.NoError(t, err)
	assert.True(t, ann.called)
}

func TestLineageService_ToolNameReachesAudit(t *testing.T) {
	aud := &mockAuditor{}
	svc := NewLineageService(nil, aud, nil, testLogger(), nil, nil)

	ctx := WithToolName(context.Background(), "parse_query")
	_, err := svc.Parse(ctx, "SELECT id FROM users")
	require.NoError(t, err)
	require.Len(t, aud.entries, 1)
	assert.Equal(t, "parse_query", aud.entries[0].Tool)
}

func TestLineageService_ParseAll(t *testing.T) {
	aud := &mockAuditor{}
	svc := NewLineageService(nil, aud, nil, testLogger(), nil, nil)

	graph, err := svc.ParseAll(context.Background(), []string{
		"SELECT id FROM users",
		"DELETE FROM users WHERE id = 1",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, graph.Metadata.Statements)

	require.Len(t, aud.entries, 1)
	assert.Equal(t, "(batch)", aud.entries[0].SQL)
}

func TestLineageService_ParseAllAllBlank(t *testing.T) {
	inst := &mockInst{}
	svc := NewLineageService(nil, &mockAuditor{}, nil, testLogger(), nil, inst)

	_, err := svc.ParseAll(context.Background(), []string{"", "  "})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 1, inst.errors)
}
