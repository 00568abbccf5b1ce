package port

import "context"

// StatementStats is one entry from a database's statement statistics view.
type StatementStats struct {
	SQL   string `json:"sql"`
	Calls int64  `json:"calls"`
}

// StatementSource lists the most frequently executed statements of a live
// database, ordered by call count descending.
type StatementSource interface {
	TopStatements(ctx context.Context, limit int) ([]StatementStats, error)
}
