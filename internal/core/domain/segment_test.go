package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_StripsLineComments(t *testing.T) {
	t.Parallel()
	out := Normalize("SELECT id -- the key\nFROM users")
	assert.Equal(t, "SELECT id FROM users", out)
}

func TestNormalize_StripsBlockComments(t *testing.T) {
	t.Parallel()
	out := Normalize("SELECT /* multi\nline */ id FROM users")
	assert.Equal(t, "SELECT id FROM users", out)
}

func TestNormalize_CollapsesWhitespace(t *testing.T) {
	t.Parallel()
	out := Normalize("  SELECT\tid\n  FROM   users  ")
	assert.Equal(t, "SELECT id FROM users", out)
}

func TestNormalize_CommentsOnly(t *testing.T) {
	t.Parallel()
	assert.Empty(t, Normalize("-- nothing here\n/* or here */"))
}

func TestSegment_SelectBasic(t *testing.T) {
	t.Parallel()
	seg := Segment("SELECT u.id, u.name FROM users u WHERE u.active = true")
	assert.Equal(t, StatementSelect, seg.Kind)
	assert.Equal(t, "u.id, u.name", seg.Select)
	assert.Equal(t, "users u", seg.From)
	assert.Equal(t, "u.active = true", seg.Where)
}

func TestSegment_SelectAllClauses(t *testing.T) {
	t.Parallel()
	seg := Segment("SELECT dept, COUNT(*) FROM emp WHERE hired > '2020-01-01' GROUP BY dept HAVING COUNT(*) > 3 ORDER BY dept DESC LIMIT 10")
	assert.Equal(t, "dept, COUNT(*)", seg.Select)
	assert.Equal(t, "emp", seg.From)
	assert.Equal(t, "hired > '2020-01-01'", seg.Where)
	assert.Equal(t, "dept", seg.GroupBy)
	assert.Equal(t, "COUNT(*) > 3", seg.Having)
	assert.Equal(t, "dept DESC", seg.OrderBy)
}

func TestSegment_SelectJoins(t *testing.T) {
	t.Parallel()
	seg := Segment("SELECT o.id FROM orders o JOIN users u ON o.user_id = u.id LEFT JOIN items i ON i.order_id = o.id WHERE o.total > 100")
	assert.Equal(t, "orders o", seg.From)
	require.Len(t, seg.Joins, 2)
	assert.Equal(t, JoinClause{Type: "JOIN", Target: "users u", On: "o.user_id = u.id"}, seg.Joins[0])
	assert.Equal(t, JoinClause{Type: "LEFT JOIN", Target: "items i", On: "i.order_id = o.id"}, seg.Joins[1])
	assert.Equal(t, "o.total > 100", seg.Where)
}

func TestSegment_LeftOuterJoinNotBareJoin(t *testing.T) {
	t.Parallel()
	seg := Segment("SELECT a.x FROM a LEFT OUTER JOIN b ON a.id = b.id")
	require.Len(t, seg.Joins, 1)
	assert.Equal(t, "LEFT OUTER JOIN", seg.Joins[0].Type)
	assert.Equal(t, "b", seg.Joins[0].Target)
}

func TestSegment_KeywordInsideStringLiteral(t *testing.T) {
	t.Parallel()
	seg := Segment("SELECT 'FROM somewhere' AS label FROM users WHERE note = 'WHERE clause'")
	assert.Equal(t, "users", seg.From)
	assert.Equal(t, "note = 'WHERE clause'", seg.Where)
}

func TestSegment_KeywordInsideParens(t *testing.T) {
	t.Parallel()
	seg := Segment("SELECT COALESCE(name, 'unknown') FROM users")
	assert.Equal(t, "COALESCE(name, 'unknown')", seg.Select)
	assert.Equal(t, "users", seg.From)
}

func TestSegment_InsertWithColumnsAndSelect(t *testing.T) {
	t.Parallel()
	seg := Segment("INSERT INTO archive (id, name) SELECT u.id, u.name FROM users u")
	assert.Equal(t, StatementInsert, seg.Kind)
	assert.Equal(t, "archive", seg.Target)
	assert.Equal(t, "id, name", seg.InsertCols)
	assert.Equal(t, "SELECT u.id, u.name FROM users u", seg.SelectTail)
}

func TestSegment_InsertValues(t *testing.T) {
	t.Parallel()
	seg := Segment("INSERT INTO users (id, email) VALUES (1, 'a@b.c')")
	assert.Equal(t, "users", seg.Target)
	assert.Equal(t, "id, email", seg.InsertCols)
	assert.Empty(t, seg.SelectTail)
}

func TestSegment_Update(t *testing.T) {
	t.Parallel()
	seg := Segment("UPDATE users SET name = 'x', email = 'y' WHERE id = 5")
	assert.Equal(t, StatementUpdate, seg.Kind)
	assert.Equal(t, "users", seg.Target)
	assert.Equal(t, "name = 'x', email = 'y'", seg.Set)
	assert.Equal(t, "id = 5", seg.Where)
}

func TestSegment_Delete(t *testing.T) {
	t.Parallel()
	seg := Segment("DELETE FROM sessions WHERE expires_at < now()")
	assert.Equal(t, StatementDelete, seg.Kind)
	assert.Equal(t, "sessions", seg.Target)
	assert.Equal(t, "expires_at < now()", seg.Where)
}

func TestSegment_CreateTableIfNotExists(t *testing.T) {
	t.Parallel()
	seg := Segment("CREATE TABLE IF NOT EXISTS reports (id int primary key)")
	assert.Equal(t, StatementCreate, seg.Kind)
	assert.Equal(t, "reports", seg.Target)
}

func TestSegment_DropTable(t *testing.T) {
	t.Parallel()
	seg := Segment("DROP TABLE IF EXISTS reports")
	assert.Equal(t, StatementDrop, seg.Kind)
	assert.Equal(t, "reports", seg.Target)
}

func TestSegment_AlterTable(t *testing.T) {
	t.Parallel()
	seg := Segment("ALTER TABLE users ADD COLUMN age int")
	assert.Equal(t, StatementAlter, seg.Kind)
	assert.Equal(t, "users", seg.Target)
}

func TestSegment_UnrecognizedText(t *testing.T) {
	t.Parallel()
	seg := Segment("this is not sql at all")
	assert.Equal(t, StatementSelect, seg.Kind)
	assert.Empty(t, seg.Select)
	assert.Empty(t, seg.From)
}

func TestSplitTopLevel_RespectsParensAndStrings(t *testing.T) {
	t.Parallel()
	parts := splitTopLevel("a, f(b, c), 'x, y', d", ',')
	assert.Equal(t, []string{"a", "f(b, c)", "'x, y'", "d"}, parts)
}

func TestKeywordIndex_WholeWordOnly(t *testing.T) {
	t.Parallel()
	// "fromage" must not match FROM.
	assert.Equal(t, -1, keywordIndex("SELECT fromage", "FROM", 0))
	assert.Equal(t, 10, keywordIndex("SELECT id FROM t", "FROM", 0))
}
