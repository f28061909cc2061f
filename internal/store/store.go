// Package store defines the persistence interface for the league engine.
// Implementations include PostgreSQL, a flat CSV file, a Redis read-through
// cache, and in-memory (for testing).
package store

import (
	"context"

	"github.com/minileague/league-engine/internal/model"
)

// Store holds the contest table as a whole. There is no append: every save
// replaces the full row set, and concurrent writers race with the last
// write winning.
type Store interface {
	// LoadRows returns every stored row in table order.
	LoadRows(ctx context.Context) ([]model.Row, error)

	// SaveRows replaces the stored table with rows.
	SaveRows(ctx context.Context, rows []model.Row) error
}

// cloneRows deep-copies a row set so callers never share maps with a store.
func cloneRows(rows []model.Row) []model.Row {
	out := make([]model.Row, 0, len(rows))
	for _, r := range rows {
		c := make(model.Row, len(r))
		for k, v := range r {
			c[k] = v
		}
		out = append(out, c)
	}
	return out
}
