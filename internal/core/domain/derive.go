package domain

import (
	"fmt"
	"strings"
)

// Extract derives the lineage graph of a single SQL statement. It never
// executes or fully parses the statement; clause segmentation and pattern
// matching bound what it can see. The only failure mode is input that
// normalizes to nothing.
func Extract(sql string) (*LineageGraph, error) {
	b := newGraphBuilder()
	if !extractInto(b, sql) {
		return nil, ErrInvalidInput
	}
	return b.finish(), nil
}

// ExtractAll derives one merged graph from several statements. Statements
// share table and column nodes; each non-blank statement gets its own query
// node, numbered in input order. Blank statements are skipped; if every
// statement is blank the whole batch is invalid.
func ExtractAll(sqls []string) (*LineageGraph, error) {
	b := newGraphBuilder()
	any := false
	for _, sql := range sqls {
		if extractInto(b, sql) {
			any = true
		}
	}
	if !any {
		return nil, ErrInvalidInput
	}
	return b.finish(), nil
}

func extractInto(b *graphBuilder, sql string) bool {
	normalized := Normalize(sql)
	if normalized == "" {
		return false
	}

	seg := Segment(normalized)
	b.statement++
	queryID := fmt.Sprintf("query_%d", b.statement)
	b.addNode(Node{
		ID:   queryID,
		Name: fmt.Sprintf("%s query", seg.Kind),
		Kind: NodeQuery,
	})

	switch seg.Kind {
	case StatementSelect:
		extractSelect(b, seg, queryID)
	case StatementInsert:
		extractInsert(b, seg, queryID)
	case StatementUpdate:
		extractUpdate(b, seg, queryID)
	case StatementDelete:
		extractDelete(b, seg, queryID)
	default:
		extractDDL(b, seg, queryID)
	}
	return true
}

func extractSelect(b *graphBuilder, seg Segments, queryID string) {
	scope := ResolveTables(seg)
	for _, ref := range scope.Refs() {
		tid := addTableNode(b, ref)
		b.addEdge(Edge{Source: tid, Target: queryID, Kind: EdgeSources})
	}

	projection := seg.Select
	if hasKeywordPrefix(projection, "DISTINCT") {
		projection = strings.TrimSpace(projection[len("DISTINCT"):])
	}
	for _, item := range splitTopLevel(projection, ',') {
		ec := ExtractExprColumns(item, scope)
		if ec.Alias != "" {
			aid := aliasNodeID(ec.Alias)
			b.addNode(Node{ID: aid, Name: ec.Alias, Kind: NodeColumn, IsAlias: true})
			for _, ref := range ec.Refs {
				cid := addColumnNode(b, ref)
				b.addEdge(Edge{Source: cid, Target: aid, Kind: EdgeFlowsTo})
			}
			b.addEdge(Edge{Source: aid, Target: queryID, Kind: EdgeFlowsTo})
			continue
		}
		for _, ref := range ec.Refs {
			cid := addColumnNode(b, ref)
			b.addEdge(Edge{Source: cid, Target: queryID, Kind: EdgeFlowsTo})
		}
	}

	constrain(b, seg.Where, scope, queryID)
	constrain(b, seg.Having, scope, queryID)

	// GROUP BY / ORDER BY columns participate in the graph through their
	// Provides edge only; they neither flow to nor constrain the query.
	groupingColumns(b, seg.GroupBy, scope)
	groupingColumns(b, seg.OrderBy, scope)

	for _, join := range seg.Joins {
		joinKeys(b, join, scope)
	}
}

func extractInsert(b *graphBuilder, seg Segments, queryID string) {
	ref, ok := parseTableRef(seg.Target)
	if !ok {
		return
	}
	tid := addTableNode(b, ref)
	b.addEdge(Edge{Source: queryID, Target: tid, Kind: EdgeModifies})

	for _, col := range splitTopLevel(seg.InsertCols, ',') {
		if !bareIdentRe.MatchString(col) || isReservedKeyword(col) {
			continue
		}
		addColumnNode(b, ColumnRef{Table: ref.Canonical, Column: col})
	}

	// INSERT ... SELECT: the trailing SELECT feeds the same query node, so
	// source tables and projected columns attach to it directly.
	if seg.SelectTail != "" {
		extractSelect(b, Segment(seg.SelectTail), queryID)
	}
}

func extractUpdate(b *graphBuilder, seg Segments, queryID string) {
	ref, ok := parseTableRef(seg.Target)
	if !ok {
		return
	}
	tid := addTableNode(b, ref)
	b.addEdge(Edge{Source: queryID, Target: tid, Kind: EdgeModifies})

	scope := ResolveTables(Segments{From: seg.Target})
	for _, assignment := range splitTopLevel(seg.Set, ',') {
		parts := splitTopLevel(assignment, '=')
		if len(parts) == 0 {
			continue
		}
		lhs := strings.TrimSpace(parts[0])
		if !bareIdentRe.MatchString(lhs) || isReservedKeyword(lhs) {
			continue
		}
		lid := addColumnNode(b, ColumnRef{Table: ref.Canonical, Column: lhs})
		if len(parts) == 2 {
			for _, rhs := range ExtractExprColumns(parts[1], scope).Refs {
				rid := addColumnNode(b, rhs)
				if rid != lid {
					b.addEdge(Edge{Source: rid, Target: lid, Kind: EdgeFlowsTo})
				}
			}
		}
	}

	constrain(b, seg.Where, scope, queryID)
}

func extractDelete(b *graphBuilder, seg Segments, queryID string) {
	ref, ok := parseTableRef(seg.Target)
	if !ok {
		return
	}
	tid := addTableNode(b, ref)
	b.addEdge(Edge{Source: tid, Target: queryID, Kind: EdgeSources})
	b.addEdge(Edge{Source: queryID, Target: tid, Kind: EdgeModifies})

	constrain(b, seg.Where, ResolveTables(Segments{From: seg.Target}), queryID)
}

func extractDDL(b *graphBuilder, seg Segments, queryID string) {
	ref, ok := parseTableRef(seg.Target)
	if !ok {
		return
	}
	tid := addTableNode(b, ref)
	b.addEdge(Edge{Source: queryID, Target: tid, Kind: EdgeModifies})
}

// constrain records a Constrains edge for every column mentioned in a
// WHERE or HAVING clause.
func constrain(b *graphBuilder, clause string, scope *TableScope, queryID string) {
	for _, cond := range splitBoolean(clause) {
		for _, operand := range conditionOperands(cond) {
			for _, ref := range ExtractExprColumns(operand, scope).Refs {
				cid := addColumnNode(b, ref)
				b.addEdge(Edge{Source: cid, Target: queryID, Kind: EdgeConstrains})
			}
		}
	}
}

func groupingColumns(b *graphBuilder, clause string, scope *TableScope) {
	for _, item := range splitTopLevel(clause, ',') {
		for _, suffix := range []string{" ASC", " DESC"} {
			if len(item) > len(suffix) && strings.EqualFold(item[len(item)-len(suffix):], suffix) {
				item = strings.TrimSpace(item[:len(item)-len(suffix)])
			}
		}
		for _, ref := range ExtractExprColumns(item, scope).Refs {
			addColumnNode(b, ref)
		}
	}
}

// joinKeys records a symmetric pair of Uses edges for every plain equality
// between two qualified columns in a JOIN ON condition, labeled with the
// join type.
func joinKeys(b *graphBuilder, join JoinClause, scope *TableScope) {
	for _, cond := range splitBoolean(join.On) {
		left, right, ok := equalityOperands(cond)
		if !ok {
			continue
		}
		lref, lok := qualifiedColumn(left, scope)
		rref, rok := qualifiedColumn(right, scope)
		if !lok || !rok {
			continue
		}
		lid := addColumnNode(b, lref)
		rid := addColumnNode(b, rref)
		b.addEdge(Edge{Source: lid, Target: rid, Kind: EdgeUses, Label: join.Type})
		b.addEdge(Edge{Source: rid, Target: lid, Kind: EdgeUses, Label: join.Type})
	}
}

// splitBoolean splits a condition clause on AND / OR at parenthesis depth
// zero.
func splitBoolean(clause string) []string {
	clause = strings.TrimSpace(clause)
	if clause == "" {
		return nil
	}
	var parts []string
	for {
		andIdx := keywordIndex(clause, "AND", 0)
		orIdx := keywordIndex(clause, "OR", 0)
		idx, width := andIdx, 3
		if idx < 0 || (orIdx >= 0 && orIdx < idx) {
			idx, width = orIdx, 2
		}
		if idx < 0 {
			break
		}
		if part := strings.TrimSpace(clause[:idx]); part != "" {
			parts = append(parts, part)
		}
		clause = clause[idx+width:]
	}
	if part := strings.TrimSpace(clause); part != "" {
		parts = append(parts, part)
	}
	return parts
}

func addTableNode(b *graphBuilder, ref TableRef) string {
	id := tableNodeID(ref.Canonical)
	b.addNode(Node{ID: id, Name: ref.Canonical, Kind: NodeTable, Schema: ref.Schema})
	return id
}

// addColumnNode registers the column node and its Provides edge from the
// owning table. Unattributed columns belong to the "unknown" pseudo-table;
// their Provides edge dangles and is dropped at finish.
func addColumnNode(b *graphBuilder, ref ColumnRef) string {
	table := ref.Table
	if table == "" {
		table = "unknown"
	}
	id := columnNodeID(table, ref.Column)
	b.addNode(Node{ID: id, Name: ref.Column, Kind: NodeColumn, SourceTable: table})
	b.addEdge(Edge{Source: tableNodeID(table), Target: id, Kind: EdgeProvides})
	return id
}

func tableNodeID(name string) string {
	return "table_" + strings.ToLower(name)
}

func columnNodeID(table, column string) string {
	return "column_" + strings.ToLower(table) + "_" + strings.ToLower(column)
}

func aliasNodeID(alias string) string {
	return "alias_" + strings.ToLower(alias)
}
