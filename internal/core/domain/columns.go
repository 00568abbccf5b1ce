package domain

import (
	"regexp"
	"strings"
)

// ColumnRef is one column mention, attributed to its canonical table when
// the reference was qualified (or heuristically attributable). Table is
// empty for references that could not be attributed at all.
type ColumnRef struct {
	Table  string
	Column string
}

// ExprColumns is the decomposition of a single expression fragment: the
// column references it mentions plus a trailing AS alias, if present.
type ExprColumns struct {
	Alias string
	Refs  []ColumnRef
}

var (
	trailingAliasRe = regexp.MustCompile(`(?i)\s+AS\s+([A-Za-z_]\w*)\s*$`)
	funcCallRe      = regexp.MustCompile(`^[A-Za-z_]\w*\s*\((.*)\)$`)
	qualifiedRefRe  = regexp.MustCompile(`\b([A-Za-z_]\w*)\.(\*|[A-Za-z_]\w*)`)
	bareIdentRe     = regexp.MustCompile(`^[A-Za-z_]\w*$`)
)

// ExtractExprColumns decomposes one expression fragment (a SELECT
// projection item, a WHERE/GROUP BY/ORDER BY/HAVING operand, or a JOIN ON
// operand) into the set of column references it mentions, deduplicated by
// (table, column) case-insensitively.
func ExtractExprColumns(expr string, scope *TableScope) ExprColumns {
	var out ExprColumns
	expr = strings.TrimSpace(expr)

	if m := trailingAliasRe.FindStringSubmatch(expr); m != nil {
		if !isReservedKeyword(m[1]) {
			out.Alias = m[1]
		}
		expr = strings.TrimSpace(expr[:len(expr)-len(m[0])])
	}

	seen := make(map[string]struct{})
	collectRefs(expr, scope, seen, &out.Refs)
	return out
}

// collectRefs walks an expression fragment recursively. Function calls are
// unwrapped, since the name itself is never a column, and each argument is
// examined on its own.
func collectRefs(expr string, scope *TableScope, seen map[string]struct{}, out *[]ColumnRef) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return
	}

	// DISTINCT inside aggregates: COUNT(DISTINCT u.id).
	if hasKeywordPrefix(expr, "DISTINCT") {
		expr = strings.TrimSpace(expr[len("DISTINCT"):])
	}

	if m := funcCallRe.FindStringSubmatch(expr); m != nil && matchParen(expr, strings.IndexByte(expr, '(')) == len(expr)-1 {
		for _, arg := range splitTopLevel(m[1], ',') {
			collectRefs(arg, scope, seen, out)
		}
		return
	}

	if matches := qualifiedRefRe.FindAllStringSubmatch(expr, -1); len(matches) > 0 {
		for _, m := range matches {
			if isReservedKeyword(m[1]) || isReservedKeyword(m[2]) {
				continue
			}
			addRef(ColumnRef{Table: scope.Resolve(m[1]), Column: m[2]}, seen, out)
		}
		return
	}

	// `*` is a sentinel for "all columns", never checked against keywords.
	if expr == "*" {
		addRef(ColumnRef{Table: firstTableName(scope), Column: "*"}, seen, out)
		return
	}

	// A whole-expression bare identifier is an unqualified column,
	// attributed to the first FROM table. Deliberate heuristic: ambiguous
	// for multi-table statements, deterministic for all of them.
	if bareIdentRe.MatchString(expr) && !isReservedKeyword(expr) {
		addRef(ColumnRef{Table: firstTableName(scope), Column: expr}, seen, out)
	}
}

func addRef(ref ColumnRef, seen map[string]struct{}, out *[]ColumnRef) {
	key := strings.ToLower(ref.Table) + "." + strings.ToLower(ref.Column)
	if _, ok := seen[key]; ok {
		return
	}
	seen[key] = struct{}{}
	*out = append(*out, ref)
}

func firstTableName(scope *TableScope) string {
	if first, ok := scope.First(); ok {
		return first.Canonical
	}
	return ""
}

// conditionOperands splits a condition like `a.x >= b.y` into its operand
// expressions so each side can be decomposed independently. Conditions
// without a comparison operator come back whole.
func conditionOperands(cond string) []string {
	ops := []string{"<=", ">=", "<>", "!=", "=", "<", ">"}
	depth := 0
	inString := false
	for i := 0; i < len(cond); i++ {
		c := cond[i]
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
		if depth != 0 {
			continue
		}
		for _, op := range ops {
			if strings.HasPrefix(cond[i:], op) {
				return []string{
					strings.TrimSpace(cond[:i]),
					strings.TrimSpace(cond[i+len(op):]),
				}
			}
		}
	}
	return []string{strings.TrimSpace(cond)}
}

// equalityOperands reports the two sides of a plain equality condition,
// or ok=false for anything else (inequalities, IS NULL, BETWEEN, ...).
func equalityOperands(cond string) (left, right string, ok bool) {
	for _, op := range []string{"<=", ">=", "<>", "!="} {
		if strings.Contains(cond, op) {
			return "", "", false
		}
	}
	parts := splitTopLevel(cond, '=')
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// qualifiedColumn parses an operand that is exactly one qualified column
// reference, resolved through the scope.
func qualifiedColumn(operand string, scope *TableScope) (ColumnRef, bool) {
	operand = strings.TrimSpace(operand)
	m := qualifiedRefRe.FindStringSubmatch(operand)
	if m == nil || m[0] != operand {
		return ColumnRef{}, false
	}
	if isReservedKeyword(m[1]) || isReservedKeyword(m[2]) {
		return ColumnRef{}, false
	}
	return ColumnRef{Table: scope.Resolve(m[1]), Column: m[2]}, true
}
