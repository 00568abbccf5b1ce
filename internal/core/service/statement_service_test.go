package service

import (
	"context"
	"errors"
	"testing"

	"github.com/guillermoBallester/estuary/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock StatementSource ---

type mockSource struct {
	lastLimit int
	stats     []port.StatementStats
	err       error
}

func (m *mockSource) TopStatements(_ context.Context, limit int) ([]port.StatementStats, error) {
	m.lastLimit = limit
	return m.stats, m.err
}

func TestStatementService_Lineage(t *testing.T) {
	src := &mockSource{stats: []port.StatementStats{
		{SQL: "SELECT id FROM users", Calls: 420},
		{SQL: "UPDATE users SET active = false WHERE id = 1", Calls: 7},
	}}
	svc := NewStatementService(src, nil, testLogger(), nil, 25)

	result, err := svc.Lineage(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, 25, src.lastLimit)
	assert.Equal(t, src.stats, result.Statements)
	assert.Equal(t, 2, result.Graph.Metadata.Statements)
	assert.Equal(t, 1, result.Graph.Metadata.Tables)
}

func TestStatementService_SourceError(t *testing.T) {
	src := &mockSource{err: errors.New("pg_stat_statements not installed")}
	svc := NewStatementService(src, nil, testLogger(), nil, 25)

	_, err := svc.Lineage(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch statements")
}

func TestStatementService_NoStatements(t *testing.T) {
	svc := NewStatementService(&mockSource{}, nil, testLogger(), nil, 25)

	result, err := svc.Lineage(context.Background(), 10)
	require.NoError(t, err)
	require.NotNil(t, result.Graph)
	assert.Empty(t, result.Graph.Nodes)
	assert.Empty(t, result.Statements)
}

func TestStatementService_AnnotatorApplied(t *testing.T) {
	src := &mockSource{stats: []port.StatementStats{{SQL: "SELECT id FROM users", Calls: 1}}}
	ann := &mockAnnotator{}
	svc := NewStatementService(src, ann, testLogger(), nil, 25)

	_, err := svc.Lineage(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, ann.called)
}

func TestStatementService_DefaultLimitWhenUnset(t *testing.T) {
	src := &mockSource{stats: []port.StatementStats{{SQL: "SELECT id FROM users", Calls: 1}}}
	svc := NewStatementService(src, nil, testLogger(), nil, 40)

	_, err := svc.Lineage(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 40, src.lastLimit, "configured default applies when the caller passes no limit")

	_, err = svc.Lineage(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 5, src.lastLimit, "an explicit limit wins over the default")
}
