package port

import (
	"context"

	"github.com/guillermoBallester/estuary/internal/core/domain"
)

// LineageParser extracts a lineage graph from a single SQL statement.
// Implementations may delegate to a remote service; the local extraction
// engine is the fallback of last resort.
type LineageParser interface {
	Parse(ctx context.Context, sql string) (*domain.LineageGraph, error)
}
