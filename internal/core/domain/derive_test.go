package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodeByID(t *testing.T, g *LineageGraph, id string) Node {
	t.Helper()
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	t.Fatalf("node %q not in graph", id)
	return Node{}
}

func hasNode(g *LineageGraph, id string) bool {
	for _, n := range g.Nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

func hasEdge(g *LineageGraph, source, target string, kind EdgeKind) bool {
	for _, e := range g.Edges {
		if e.Source == source && e.Target == target && e.Kind == kind {
			return true
		}
	}
	return false
}

func TestExtract_EmptyInput(t *testing.T) {
	t.Parallel()
	for _, sql := range []string{"", "   \n\t", "-- just a comment", "/* block */"} {
		_, err := Extract(sql)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestExtract_UnrecognizedTextYieldsQueryNodeOnly(t *testing.T) {
	t.Parallel()
	g, err := Extract("hello world")
	require.NoError(t, err)
	require.Len(t, g.Nodes, 1)
	assert.Equal(t, NodeQuery, g.Nodes[0].Kind)
	assert.Empty(t, g.Edges)
	assert.Equal(t, Metadata{Statements: 1}, g.Metadata)
}

func TestExtract_SelectSimple(t *testing.T) {
	t.Parallel()
	g, err := Extract("SELECT u.id, u.name FROM users u WHERE u.active = true")
	require.NoError(t, err)

	assert.True(t, hasNode(g, "table_users"))
	assert.True(t, hasNode(g, "column_users_id"))
	assert.True(t, hasNode(g, "column_users_name"))
	assert.True(t, hasNode(g, "column_users_active"))
	assert.True(t, hasNode(g, "query_1"))

	assert.True(t, hasEdge(g, "table_users", "query_1", EdgeSources))
	assert.True(t, hasEdge(g, "table_users", "column_users_id", EdgeProvides))
	assert.True(t, hasEdge(g, "column_users_id", "query_1", EdgeFlowsTo))
	assert.True(t, hasEdge(g, "column_users_name", "query_1", EdgeFlowsTo))
	assert.True(t, hasEdge(g, "column_users_active", "query_1", EdgeConstrains))

	assert.Equal(t, Metadata{Statements: 1, Tables: 1, Columns: 3}, g.Metadata)
}

func TestExtract_QueryNodeName(t *testing.T) {
	t.Parallel()
	g, err := Extract("SELECT id FROM users")
	require.NoError(t, err)
	assert.Equal(t, "SELECT query", nodeByID(t, g, "query_1").Name)
}

func TestExtract_AliasedProjectionChains(t *testing.T) {
	t.Parallel()
	g, err := Extract("SELECT u.name AS username FROM users u")
	require.NoError(t, err)

	alias := nodeByID(t, g, "alias_username")
	assert.True(t, alias.IsAlias)
	assert.Equal(t, NodeColumn, alias.Kind)

	// Column flows through the alias, never directly into the query.
	assert.True(t, hasEdge(g, "column_users_name", "alias_username", EdgeFlowsTo))
	assert.True(t, hasEdge(g, "alias_username", "query_1", EdgeFlowsTo))
	assert.False(t, hasEdge(g, "column_users_name", "query_1", EdgeFlowsTo))
}

func TestExtract_SelectStar(t *testing.T) {
	t.Parallel()
	g, err := Extract("SELECT * FROM users")
	require.NoError(t, err)
	star := nodeByID(t, g, "column_users_*")
	assert.Equal(t, "*", star.Name)
	assert.Equal(t, "users", star.SourceTable)
	assert.True(t, hasEdge(g, "table_users", "column_users_*", EdgeProvides))
	assert.True(t, hasEdge(g, "column_users_*", "query_1", EdgeFlowsTo))
}

func TestExtract_JoinSymmetricUses(t *testing.T) {
	t.Parallel()
	g, err := Extract("SELECT o.id FROM orders o JOIN users u ON o.user_id = u.id")
	require.NoError(t, err)

	assert.True(t, hasEdge(g, "table_orders", "query_1", EdgeSources))
	assert.True(t, hasEdge(g, "table_users", "query_1", EdgeSources))
	assert.True(t, hasEdge(g, "column_orders_user_id", "column_users_id", EdgeUses))
	assert.True(t, hasEdge(g, "column_users_id", "column_orders_user_id", EdgeUses))

	for _, e := range g.Edges {
		if e.Kind == EdgeUses {
			assert.Equal(t, "JOIN", e.Label)
		}
	}
}

func TestExtract_JoinInequalityNoUsesEdge(t *testing.T) {
	t.Parallel()
	g, err := Extract("SELECT a.x FROM a JOIN b ON a.ts >= b.ts")
	require.NoError(t, err)
	for _, e := range g.Edges {
		assert.NotEqual(t, EdgeUses, e.Kind)
	}
}

func TestExtract_SchemaQualifiedTable(t *testing.T) {
	t.Parallel()
	g, err := Extract("SELECT p.id FROM public.products p")
	require.NoError(t, err)
	table := nodeByID(t, g, "table_products")
	assert.Equal(t, "products", table.Name)
	assert.Equal(t, "public", table.Schema)
	assert.True(t, hasNode(g, "column_products_id"))
}

func TestExtract_GroupByOrderByProvideOnly(t *testing.T) {
	t.Parallel()
	g, err := Extract("SELECT dept, COUNT(*) FROM emp GROUP BY dept ORDER BY hired DESC")
	require.NoError(t, err)

	assert.True(t, hasNode(g, "column_emp_hired"))
	assert.True(t, hasEdge(g, "table_emp", "column_emp_hired", EdgeProvides))
	assert.False(t, hasEdge(g, "column_emp_hired", "query_1", EdgeFlowsTo))
	assert.False(t, hasEdge(g, "column_emp_hired", "query_1", EdgeConstrains))
}

func TestExtract_HavingConstrains(t *testing.T) {
	t.Parallel()
	g, err := Extract("SELECT dept FROM emp GROUP BY dept HAVING COUNT(emp.id) > 3")
	require.NoError(t, err)
	assert.True(t, hasEdge(g, "column_emp_id", "query_1", EdgeConstrains))
}

func TestExtract_UnqualifiedColumnFirstTable(t *testing.T) {
	t.Parallel()
	g, err := Extract("SELECT name FROM users u JOIN orders o ON u.id = o.uid")
	require.NoError(t, err)
	n := nodeByID(t, g, "column_users_name")
	assert.Equal(t, "users", n.SourceTable)
}

func TestExtract_InsertSelect(t *testing.T) {
	t.Parallel()
	g, err := Extract("INSERT INTO archive (id, name) SELECT u.id, u.name FROM users u")
	require.NoError(t, err)

	assert.Equal(t, "INSERT query", nodeByID(t, g, "query_1").Name)
	assert.True(t, hasEdge(g, "query_1", "table_archive", EdgeModifies))
	assert.True(t, hasEdge(g, "table_archive", "column_archive_id", EdgeProvides))
	assert.True(t, hasEdge(g, "table_users", "query_1", EdgeSources))
	assert.True(t, hasEdge(g, "column_users_id", "query_1", EdgeFlowsTo))
	assert.Equal(t, 1, g.Metadata.Statements)
}

func TestExtract_Update(t *testing.T) {
	t.Parallel()
	g, err := Extract("UPDATE users SET name = nickname, active = true WHERE id = 5")
	require.NoError(t, err)

	assert.True(t, hasEdge(g, "query_1", "table_users", EdgeModifies))
	assert.True(t, hasNode(g, "column_users_name"))
	assert.True(t, hasNode(g, "column_users_active"))
	assert.True(t, hasEdge(g, "column_users_nickname", "column_users_name", EdgeFlowsTo))
	assert.True(t, hasEdge(g, "column_users_id", "query_1", EdgeConstrains))
}

func TestExtract_Delete(t *testing.T) {
	t.Parallel()
	g, err := Extract("DELETE FROM sessions WHERE expires_at < now()")
	require.NoError(t, err)

	assert.Equal(t, "DELETE query", nodeByID(t, g, "query_1").Name)
	assert.True(t, hasEdge(g, "table_sessions", "query_1", EdgeSources))
	assert.True(t, hasEdge(g, "query_1", "table_sessions", EdgeModifies))
	assert.True(t, hasEdge(g, "column_sessions_expires_at", "query_1", EdgeConstrains))
}

func TestExtract_DDL(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		sql  string
		name string
	}{
		{"CREATE TABLE IF NOT EXISTS reports (id int)", "CREATE query"},
		{"DROP TABLE reports", "DROP query"},
		{"ALTER TABLE reports ADD COLUMN x int", "ALTER query"},
	} {
		g, err := Extract(tc.sql)
		require.NoError(t, err)
		assert.Equal(t, tc.name, nodeByID(t, g, "query_1").Name)
		assert.True(t, hasEdge(g, "query_1", "table_reports", EdgeModifies))
		assert.Equal(t, Metadata{Statements: 1, Tables: 1}, g.Metadata)
	}
}

func TestExtract_NoDanglingEdges(t *testing.T) {
	t.Parallel()
	for _, sql := range []string{
		"SELECT u.id FROM users u WHERE x.y = 1",
		"SELECT name",
		"SELECT unknown_col FROM users u JOIN orders o ON u.id = o.uid",
		"UPDATE users SET name = 'x' WHERE id = 1",
	} {
		g, err := Extract(sql)
		require.NoError(t, err)
		ids := make(map[string]struct{}, len(g.Nodes))
		for _, n := range g.Nodes {
			ids[n.ID] = struct{}{}
		}
		for _, e := range g.Edges {
			_, okS := ids[e.Source]
			_, okT := ids[e.Target]
			assert.True(t, okS, "dangling source %q in %q", e.Source, sql)
			assert.True(t, okT, "dangling target %q in %q", e.Target, sql)
		}
	}
}

func TestExtract_UniqueNodesAndEdges(t *testing.T) {
	t.Parallel()
	g, err := Extract("SELECT u.id, u.id, U.ID FROM users u JOIN users x ON u.id = x.id")
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, n := range g.Nodes {
		seen[n.ID]++
	}
	for id, count := range seen {
		assert.Equal(t, 1, count, "node %q duplicated", id)
	}

	type key struct {
		s, t string
		k    EdgeKind
	}
	edges := make(map[key]int)
	for _, e := range g.Edges {
		edges[key{e.Source, e.Target, e.Kind}]++
	}
	for k, count := range edges {
		assert.Equal(t, 1, count, "edge %+v duplicated", k)
	}
}

func TestExtract_Idempotent(t *testing.T) {
	t.Parallel()
	sql := "SELECT o.id, u.name AS buyer FROM orders o JOIN users u ON o.user_id = u.id WHERE o.total > 100 ORDER BY o.id"
	first, err := Extract(sql)
	require.NoError(t, err)
	second, err := Extract(sql)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestExtract_NodeOrderTablesColumnsAliasesQueries(t *testing.T) {
	t.Parallel()
	g, err := Extract("SELECT u.name AS username FROM users u")
	require.NoError(t, err)

	rank := func(n Node) int {
		switch {
		case n.Kind == NodeTable:
			return 0
		case n.Kind == NodeQuery:
			return 3
		case n.IsAlias:
			return 2
		default:
			return 1
		}
	}
	for i := 1; i < len(g.Nodes); i++ {
		assert.LessOrEqual(t, rank(g.Nodes[i-1]), rank(g.Nodes[i]))
	}
}

func TestExtractAll_MergedGraph(t *testing.T) {
	t.Parallel()
	g, err := ExtractAll([]string{
		"SELECT id FROM users",
		"DELETE FROM users WHERE id = 1",
	})
	require.NoError(t, err)

	assert.True(t, hasNode(g, "query_1"))
	assert.True(t, hasNode(g, "query_2"))
	assert.True(t, hasNode(g, "table_users"))
	assert.True(t, hasEdge(g, "table_users", "query_1", EdgeSources))
	assert.True(t, hasEdge(g, "query_2", "table_users", EdgeModifies))
	assert.Equal(t, 2, g.Metadata.Statements)
	assert.Equal(t, 1, g.Metadata.Tables)
}

func TestExtractAll_SkipsBlankStatements(t *testing.T) {
	t.Parallel()
	g, err := ExtractAll([]string{"SELECT id FROM users", "   ", "-- nope"})
	require.NoError(t, err)
	assert.Equal(t, 1, g.Metadata.Statements)
	assert.True(t, hasNode(g, "query_1"))
	assert.False(t, hasNode(g, "query_2"))
}

func TestExtractAll_AllBlank(t *testing.T) {
	t.Parallel()
	_, err := ExtractAll([]string{"", "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ExtractAll(nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
