package domain

// NodeKind classifies a lineage graph node.
type NodeKind string

const (
	NodeTable  NodeKind = "table"
	NodeColumn NodeKind = "column"
	NodeQuery  NodeKind = "query"
)

// EdgeKind classifies a typed relationship between two nodes.
type EdgeKind string

const (
	EdgeProvides   EdgeKind = "provides"   // table → column it owns
	EdgeFlowsTo    EdgeKind = "flows_to"   // projected column/alias → query output
	EdgeSources    EdgeKind = "sources"    // FROM/JOIN table → query
	EdgeConstrains EdgeKind = "constrains" // WHERE/HAVING column → query
	EdgeModifies   EdgeKind = "modifies"   // query → mutated table
	EdgeUses       EdgeKind = "uses"       // join-key column ↔ join-key column
)

// Node is a table, column, or query vertex in a lineage graph.
// IDs are unique within a graph and opaque to consumers.
type Node struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Kind        NodeKind `json:"type"`
	Schema      string   `json:"schema,omitempty"`
	SourceTable string   `json:"table,omitempty"`
	IsAlias     bool     `json:"isAlias,omitempty"`
}

// Edge is a directed, typed relationship between two nodes of the same graph.
type Edge struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Kind   EdgeKind `json:"type"`
	Label  string   `json:"label,omitempty"`
}

// Metadata summarizes a graph for consumers that render counts.
type Metadata struct {
	Statements int `json:"statements"`
	Tables     int `json:"tables"`
	Columns    int `json:"columns"`
}

// LineageGraph is the sole artifact the extraction engine produces. The
// caller owns it exclusively; the engine keeps no state between calls.
type LineageGraph struct {
	Nodes    []Node   `json:"nodes"`
	Edges    []Edge   `json:"edges"`
	Metadata Metadata `json:"metadata"`
}

// graphBuilder accumulates nodes and edges during extraction and enforces
// the graph invariants: unique node IDs, no duplicate (source, target, kind)
// edges, no dangling edges, and deterministic node order: tables first,
// then columns in first-seen order, then alias nodes, then query nodes.
type graphBuilder struct {
	tables  []Node
	columns []Node
	aliases []Node
	queries []Node

	nodeIDs   map[string]struct{}
	edges     []Edge
	edgeSeen  map[edgeKey]struct{}
	statement int
}

type edgeKey struct {
	source string
	target string
	kind   EdgeKind
}

func newGraphBuilder() *graphBuilder {
	return &graphBuilder{
		nodeIDs:  make(map[string]struct{}),
		edgeSeen: make(map[edgeKey]struct{}),
	}
}

// addNode registers the node unless its ID is already present. The first
// registration wins; later duplicates (self-joins, repeated references)
// are dropped.
func (b *graphBuilder) addNode(n Node) {
	if _, ok := b.nodeIDs[n.ID]; ok {
		return
	}
	b.nodeIDs[n.ID] = struct{}{}

	switch {
	case n.Kind == NodeTable:
		b.tables = append(b.tables, n)
	case n.Kind == NodeQuery:
		b.queries = append(b.queries, n)
	case n.IsAlias:
		b.aliases = append(b.aliases, n)
	default:
		b.columns = append(b.columns, n)
	}
}

// addEdge records the edge unless an identical (source, target, kind)
// triple was already recorded.
func (b *graphBuilder) addEdge(e Edge) {
	key := edgeKey{source: e.Source, target: e.Target, kind: e.Kind}
	if _, ok := b.edgeSeen[key]; ok {
		return
	}
	b.edgeSeen[key] = struct{}{}
	b.edges = append(b.edges, e)
}

// finish assembles the final graph. Edges referencing an unknown node ID
// are silently dropped here rather than treated as an error.
func (b *graphBuilder) finish() *LineageGraph {
	nodes := make([]Node, 0, len(b.tables)+len(b.columns)+len(b.aliases)+len(b.queries))
	nodes = append(nodes, b.tables...)
	nodes = append(nodes, b.columns...)
	nodes = append(nodes, b.aliases...)
	nodes = append(nodes, b.queries...)

	edges := make([]Edge, 0, len(b.edges))
	for _, e := range b.edges {
		if _, ok := b.nodeIDs[e.Source]; !ok {
			continue
		}
		if _, ok := b.nodeIDs[e.Target]; !ok {
			continue
		}
		edges = append(edges, e)
	}

	return &LineageGraph{
		Nodes: nodes,
		Edges: edges,
		Metadata: Metadata{
			Statements: len(b.queries),
			Tables:     len(b.tables),
			Columns:    len(b.columns) + len(b.aliases),
		},
	}
}
