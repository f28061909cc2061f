package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minileague/league-engine/internal/model"
)

// PostgresStore implements Store on a single PostgreSQL table. Date and
// Track are columns; player amounts are kept verbatim as a JSONB object so
// the roster can change without a migration.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS contest_rows (
    position INTEGER PRIMARY KEY,
    date     TEXT NOT NULL DEFAULT '',
    track    TEXT NOT NULL DEFAULT '',
    outcomes JSONB NOT NULL DEFAULT '{}'::JSONB
)`

// EnsureSchema creates the contest table. Safe to call multiple times.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) LoadRows(ctx context.Context) ([]model.Row, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT date, track, outcomes::TEXT
		 FROM contest_rows ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load rows: %w", err)
	}
	defer rows.Close()

	return scanContestRows(rows)
}

// SaveRows rewrites the table inside one transaction.
func (s *PostgresStore) SaveRows(ctx context.Context, rows []model.Row) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM contest_rows`); err != nil {
		return fmt.Errorf("clear rows: %w", err)
	}

	batch := &pgx.Batch{}
	for i, row := range rows {
		outcomes := make(map[string]string, len(row))
		for k, v := range row {
			if k == model.ColumnDate || k == model.ColumnTrack {
				continue
			}
			outcomes[k] = v
		}
		data, err := json.Marshal(outcomes)
		if err != nil {
			return fmt.Errorf("encode row %d: %w", i, err)
		}
		batch.Queue(
			`INSERT INTO contest_rows (position, date, track, outcomes)
			 VALUES ($1, $2, $3, $4::JSONB)`,
			i, row[model.ColumnDate], row[model.ColumnTrack], string(data),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// pgxRows is the subset of pgx.Rows used by scanContestRows.
type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanContestRows(rows pgxRows) ([]model.Row, error) {
	out := []model.Row{}
	for rows.Next() {
		var date, track, outcomesS string
		if err := rows.Scan(&date, &track, &outcomesS); err != nil {
			return nil, err
		}

		var outcomes map[string]string
		if err := json.Unmarshal([]byte(outcomesS), &outcomes); err != nil {
			return nil, fmt.Errorf("decode outcomes: %w", err)
		}

		row := make(model.Row, len(outcomes)+2)
		for k, v := range outcomes {
			row[k] = v
		}
		row[model.ColumnDate] = date
		row[model.ColumnTrack] = track
		out = append(out, row)
	}
	return out, rows.Err()
}
