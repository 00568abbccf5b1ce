package domain

import (
	"regexp"
	"strings"
)

// StatementKind identifies the statement form a segmentation detected.
type StatementKind string

const (
	StatementSelect StatementKind = "SELECT"
	StatementInsert StatementKind = "INSERT"
	StatementUpdate StatementKind = "UPDATE"
	StatementDelete StatementKind = "DELETE"
	StatementCreate StatementKind = "CREATE"
	StatementDrop   StatementKind = "DROP"
	StatementAlter  StatementKind = "ALTER"
)

// JoinClause is one JOIN target paired with its own ON condition.
type JoinClause struct {
	Type   string // textual join type: "JOIN", "LEFT JOIN", ...
	Target string // the table expression after the join keyword
	On     string // the ON condition, empty when absent
}

// Segments holds the clause substrings of one normalized statement.
// A clause the statement does not contain is simply empty.
type Segments struct {
	Kind    StatementKind
	Select  string
	From    string
	Joins   []JoinClause
	Where   string
	GroupBy string
	OrderBy string
	Having  string

	// Mutation statements only.
	Target     string // UPDATE/INSERT/DELETE/DDL target table expression
	Set        string // UPDATE SET clause
	InsertCols string // INSERT column list, without parentheses
	SelectTail string // trailing SELECT of an INSERT ... SELECT
}

var (
	lineCommentRe  = regexp.MustCompile(`--[^\n]*`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// Normalize strips SQL comments and collapses all whitespace runs to single
// spaces so that clause keywords can be matched as plain substrings.
func Normalize(sql string) string {
	sql = lineCommentRe.ReplaceAllString(sql, " ")
	sql = blockCommentRe.ReplaceAllString(sql, " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(sql, " "))
}

// joinKeywords lists the recognized join forms, longest first so that
// "LEFT OUTER JOIN" is not matched as a bare "JOIN".
var joinKeywords = []string{
	"LEFT OUTER JOIN",
	"RIGHT OUTER JOIN",
	"FULL OUTER JOIN",
	"INNER JOIN",
	"LEFT JOIN",
	"RIGHT JOIN",
	"FULL JOIN",
	"CROSS JOIN",
	"JOIN",
}

// selectTerminators end the FROM clause or a JOIN target/condition.
var selectTerminators = append(joinKeywords[:len(joinKeywords):len(joinKeywords)],
	"WHERE", "GROUP BY", "HAVING", "ORDER BY", "LIMIT", "OFFSET")

// Segment slices a normalized statement into its clause substrings.
// It never fails: unrecognized text degrades to a SELECT-kind segmentation
// with empty clauses.
func Segment(sql string) Segments {
	kind := statementKind(sql)
	switch kind {
	case StatementSelect:
		return segmentSelect(sql)
	case StatementInsert:
		return segmentInsert(sql)
	case StatementUpdate:
		return segmentUpdate(sql)
	case StatementDelete:
		return segmentDelete(sql)
	default:
		return segmentDDL(sql, kind)
	}
}

func statementKind(sql string) StatementKind {
	for _, k := range []StatementKind{
		StatementInsert, StatementUpdate, StatementDelete,
		StatementCreate, StatementDrop, StatementAlter,
	} {
		if hasKeywordPrefix(sql, string(k)) {
			return k
		}
	}
	return StatementSelect
}

func hasKeywordPrefix(s, kw string) bool {
	if len(s) < len(kw) {
		return false
	}
	if !strings.EqualFold(s[:len(kw)], kw) {
		return false
	}
	return len(s) == len(kw) || s[len(kw)] == ' '
}

func segmentSelect(sql string) Segments {
	seg := Segments{Kind: StatementSelect}

	body := sql
	if hasKeywordPrefix(body, "SELECT") {
		body = strings.TrimSpace(body[len("SELECT"):])
	} else {
		return seg
	}

	fromIdx := keywordIndex(body, "FROM", 0)
	if fromIdx < 0 {
		seg.Select = strings.TrimSpace(body)
		return seg
	}
	seg.Select = strings.TrimSpace(body[:fromIdx])

	rest := body[fromIdx+len("FROM"):]
	end := clauseEnd(rest, 0, selectTerminators)
	seg.From = strings.TrimSpace(rest[:end])
	rest = rest[end:]

	// Each JOIN is segmented independently, paired with its own ON clause.
	for {
		jtype, idx := nextJoin(rest)
		if idx != 0 || jtype == "" {
			break
		}
		rest = rest[len(jtype):]
		targetEnd := clauseEnd(rest, 0, append([]string{"ON"}, selectTerminators...))
		join := JoinClause{Type: jtype, Target: strings.TrimSpace(rest[:targetEnd])}
		rest = rest[targetEnd:]
		if onIdx := keywordIndex(rest, "ON", 0); onIdx == 0 {
			rest = rest[len("ON"):]
			onEnd := clauseEnd(rest, 0, selectTerminators)
			join.On = strings.TrimSpace(rest[:onEnd])
			rest = rest[onEnd:]
		}
		seg.Joins = append(seg.Joins, join)
	}

	seg.Where = clauseBetween(rest, "WHERE", "GROUP BY", "HAVING", "ORDER BY", "LIMIT", "OFFSET")
	seg.GroupBy = clauseBetween(rest, "GROUP BY", "HAVING", "ORDER BY", "LIMIT", "OFFSET")
	seg.Having = clauseBetween(rest, "HAVING", "ORDER BY", "LIMIT", "OFFSET")
	seg.OrderBy = clauseBetween(rest, "ORDER BY", "LIMIT", "OFFSET")
	return seg
}

func segmentInsert(sql string) Segments {
	seg := Segments{Kind: StatementInsert}

	intoIdx := keywordIndex(sql, "INTO", 0)
	if intoIdx < 0 {
		return seg
	}
	rest := strings.TrimSpace(sql[intoIdx+len("INTO"):])

	// Target runs until whitespace or the opening column-list parenthesis.
	cut := len(rest)
	for i, r := range rest {
		if r == ' ' || r == '(' {
			cut = i
			break
		}
	}
	seg.Target = rest[:cut]
	rest = strings.TrimSpace(rest[cut:])

	if strings.HasPrefix(rest, "(") {
		if close := matchParen(rest, 0); close > 0 {
			seg.InsertCols = strings.TrimSpace(rest[1:close])
			rest = strings.TrimSpace(rest[close+1:])
		}
	}

	if selIdx := keywordIndex(rest, "SELECT", 0); selIdx >= 0 {
		seg.SelectTail = strings.TrimSpace(rest[selIdx:])
	}
	return seg
}

func segmentUpdate(sql string) Segments {
	seg := Segments{Kind: StatementUpdate}

	rest := strings.TrimSpace(sql[len("UPDATE"):])
	setIdx := keywordIndex(rest, "SET", 0)
	if setIdx < 0 {
		seg.Target = strings.TrimSpace(rest)
		return seg
	}
	seg.Target = strings.TrimSpace(rest[:setIdx])

	rest = rest[setIdx+len("SET"):]
	end := clauseEnd(rest, 0, []string{"WHERE", "FROM", "RETURNING"})
	seg.Set = strings.TrimSpace(rest[:end])
	rest = rest[end:]

	seg.Where = clauseBetween(rest, "WHERE", "RETURNING")
	return seg
}

func segmentDelete(sql string) Segments {
	seg := Segments{Kind: StatementDelete}

	fromIdx := keywordIndex(sql, "FROM", 0)
	if fromIdx < 0 {
		return seg
	}
	rest := sql[fromIdx+len("FROM"):]
	end := clauseEnd(rest, 0, []string{"WHERE", "USING", "RETURNING"})
	seg.Target = strings.TrimSpace(rest[:end])
	rest = rest[end:]

	seg.Where = clauseBetween(rest, "WHERE", "RETURNING")
	return seg
}

func segmentDDL(sql string, kind StatementKind) Segments {
	seg := Segments{Kind: kind}

	tblIdx := keywordIndex(sql, "TABLE", 0)
	if tblIdx < 0 {
		return seg
	}
	rest := strings.TrimSpace(sql[tblIdx+len("TABLE"):])
	for _, mod := range []string{"IF NOT EXISTS", "IF EXISTS"} {
		if hasKeywordPrefix(rest, mod) {
			rest = strings.TrimSpace(rest[len(mod):])
		}
	}
	cut := len(rest)
	for i, r := range rest {
		if r == ' ' || r == '(' || r == ';' {
			cut = i
			break
		}
	}
	seg.Target = rest[:cut]
	return seg
}

// nextJoin reports the earliest join keyword in s and its position,
// or ("", -1) when none remains at depth zero.
func nextJoin(s string) (string, int) {
	best, bestIdx := "", -1
	for _, kw := range joinKeywords {
		idx := keywordIndex(s, kw, 0)
		if idx < 0 {
			continue
		}
		if bestIdx < 0 || idx < bestIdx || (idx == bestIdx && len(kw) > len(best)) {
			best, bestIdx = kw, idx
		}
	}
	return best, bestIdx
}

// clauseBetween returns the substring after the first occurrence of kw,
// cut at the earliest of the given terminators. Empty when kw is absent.
func clauseBetween(s, kw string, terminators ...string) string {
	idx := keywordIndex(s, kw, 0)
	if idx < 0 {
		return ""
	}
	rest := s[idx+len(kw):]
	return strings.TrimSpace(rest[:clauseEnd(rest, 0, terminators)])
}

// clauseEnd returns the index of the earliest terminator keyword at
// parenthesis depth zero, or len(s) when none occurs.
func clauseEnd(s string, from int, terminators []string) int {
	end := len(s)
	for _, kw := range terminators {
		if idx := keywordIndex(s, kw, from); idx >= 0 && idx < end {
			end = idx
		}
	}
	return end
}

// keywordIndex finds the first whole-word, case-insensitive occurrence of
// kw in s at parenthesis depth zero, ignoring quoted string literals.
// Returns -1 when not found. Delimiters inside parentheses never count as
// clause boundaries.
func keywordIndex(s, kw string, from int) int {
	depth := 0
	inString := false
	for i := from; i < len(s); i++ {
		c := s[i]
		switch {
		case inString:
			if c == '\'' {
				inString = false
			}
			continue
		case c == '\'':
			inString = true
			continue
		case c == '(':
			depth++
			continue
		case c == ')':
			if depth > 0 {
				depth--
			}
			continue
		}
		if depth != 0 || i+len(kw) > len(s) {
			continue
		}
		if !strings.EqualFold(s[i:i+len(kw)], kw) {
			continue
		}
		if i > 0 && isWordByte(s[i-1]) {
			continue
		}
		if i+len(kw) < len(s) && isWordByte(s[i+len(kw)]) {
			continue
		}
		return i
	}
	return -1
}

// splitTopLevel splits s on sep at parenthesis depth zero, skipping quoted
// literals, and drops empty items.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	inString := false
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inString:
			if c == '\'' {
				inString = false
			}
		case c == '\'':
			inString = true
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case c == sep && depth == 0:
			if item := strings.TrimSpace(s[start:i]); item != "" {
				parts = append(parts, item)
			}
			start = i + 1
		}
	}
	if item := strings.TrimSpace(s[start:]); item != "" {
		parts = append(parts, item)
	}
	return parts
}

// matchParen returns the index of the parenthesis closing the one at open,
// or -1 when unbalanced.
func matchParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
