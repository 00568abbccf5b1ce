package postgres

import (
	"context"
	"fmt"

	"github.com/guillermoBallester/estuary/internal/core/port"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultStatementLimit = 25
	maxStatementLimit     = 500
)

// StatementSource reads pg_stat_statements, which must be installed in the
// target database. Implements port.StatementSource.
type StatementSource struct {
	pool *pgxpool.Pool
}

func NewStatementSource(pool *pgxpool.Pool) *StatementSource {
	return &StatementSource{pool: pool}
}

// TopStatements returns the most frequently called statements, ordered by
// call count descending. Utility statements that carry no lineage (BEGIN,
// COMMIT, SET, ...) are filtered out server-side.
func (s *StatementSource) TopStatements(ctx context.Context, limit int) ([]port.StatementStats, error) {
	if limit <= 0 {
		limit = defaultStatementLimit
	}
	if limit > maxStatementLimit {
		limit = maxStatementLimit
	}

	rows, err := s.pool.Query(ctx, `
		SELECT query, calls
		FROM pg_stat_statements
		WHERE query !~* '^\s*(begin|commit|rollback|set|show|deallocate|discard)'
		ORDER BY calls DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying pg_stat_statements: %w", err)
	}
	defer rows.Close()

	var stats []port.StatementStats
	for rows.Next() {
		var st port.StatementStats
		if err := rows.Scan(&st.SQL, &st.Calls); err != nil {
			return nil, fmt.Errorf("scanning statement row: %w", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating statement rows: %w", err)
	}
	return stats, nil
}
