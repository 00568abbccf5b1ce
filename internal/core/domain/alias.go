package domain

import "strings"

// TableRef binds an alias (or bare table name) to its canonical table.
// The canonical name is the last dot-segment of the table expression; a
// schema prefix qualifies grouping only, never identity.
type TableRef struct {
	Canonical string
	Schema    string
	Alias     string // defaults to Canonical when the SQL gives no alias
}

// TableScope holds the tables one statement introduces, in FROM order then
// JOIN order, plus a case-insensitive alias → canonical-name mapping.
// It is built fresh per extraction and discarded afterwards.
type TableScope struct {
	refs    []TableRef
	byAlias map[string]string
}

// ResolveTables scans the FROM clause and every JOIN target of a
// segmentation for `[schema.]table [[AS] alias]` patterns.
func ResolveTables(seg Segments) *TableScope {
	scope := &TableScope{byAlias: make(map[string]string)}
	for _, item := range splitTopLevel(seg.From, ',') {
		scope.addExpr(item)
	}
	for _, join := range seg.Joins {
		scope.addExpr(join.Target)
	}
	return scope
}

// addExpr parses one table expression and registers it. Derived tables
// (parenthesized subqueries) and keyword collisions are skipped; they are
// outside the bounded pattern-matching approach.
func (s *TableScope) addExpr(expr string) {
	ref, ok := parseTableRef(expr)
	if !ok {
		return
	}
	s.refs = append(s.refs, ref)
	s.byAlias[strings.ToLower(ref.Alias)] = ref.Canonical
	// A bare-name lookup must also resolve even when an alias was given.
	if _, exists := s.byAlias[strings.ToLower(ref.Canonical)]; !exists {
		s.byAlias[strings.ToLower(ref.Canonical)] = ref.Canonical
	}
}

func parseTableRef(expr string) (TableRef, bool) {
	expr = strings.TrimSpace(expr)
	if expr == "" || strings.HasPrefix(expr, "(") {
		return TableRef{}, false
	}

	fields := strings.Fields(expr)
	name := fields[0]

	var schema string
	if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
		schema = name[:dot]
		name = name[dot+1:]
	}
	if name == "" || isReservedKeyword(name) {
		return TableRef{}, false
	}

	alias := name
	if len(fields) > 1 {
		cand := fields[1]
		if strings.EqualFold(cand, "AS") && len(fields) > 2 {
			cand = fields[2]
		}
		if !isReservedKeyword(cand) {
			alias = cand
		}
	}

	return TableRef{Canonical: name, Schema: schema, Alias: alias}, true
}

// Resolve maps a column qualifier to its canonical table name. Unknown
// qualifiers resolve to themselves: a qualifier that is not a registered
// alias is taken to be a table name used directly.
func (s *TableScope) Resolve(qualifier string) string {
	if canonical, ok := s.byAlias[strings.ToLower(qualifier)]; ok {
		return canonical
	}
	return qualifier
}

// First returns the first table introduced in FROM, the documented
// fallback target for unqualified column references.
func (s *TableScope) First() (TableRef, bool) {
	if len(s.refs) == 0 {
		return TableRef{}, false
	}
	return s.refs[0], true
}

// Refs returns the registered tables in introduction order. A self-joined
// table appears once per alias; node creation deduplicates by canonical
// name.
func (s *TableScope) Refs() []TableRef {
	return s.refs
}
