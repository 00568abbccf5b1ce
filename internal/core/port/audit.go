package port

import "context"

// ParseEntry represents a single auditable parse event.
type ParseEntry struct {
	Tool       string
	SQL        string
	Nodes      int
	Edges      int
	DurationMS int64
	Remote     bool
	Err        error
}

// ParseAuditor records parse audit events.
type ParseAuditor interface {
	Record(ctx context.Context, entry ParseEntry)
	Close() error
}
