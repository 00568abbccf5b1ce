package port

import "github.com/guillermoBallester/estuary/internal/core/domain"

// GraphAnnotator enriches an extracted graph with catalog knowledge, such
// as schema names for tables the SQL referenced without qualification.
type GraphAnnotator interface {
	Annotate(graph *domain.LineageGraph)
}

// NoopAnnotator leaves the graph untouched.
type NoopAnnotator struct{}

func (NoopAnnotator) Annotate(*domain.LineageGraph) {}
