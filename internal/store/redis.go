package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/minileague/league-engine/internal/model"
)

// rowsKey is the single cache entry holding the serialized table.
const rowsKey = "league:rows"

// CachedStore wraps a primary Store with a Redis read-through cache.
// Saves go to the primary store and invalidate the cache; loads check
// Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

func (s *CachedStore) LoadRows(ctx context.Context) ([]model.Row, error) {
	// Try cache.
	data, err := s.rdb.Get(ctx, rowsKey).Bytes()
	if err == nil {
		var rows []model.Row
		if json.Unmarshal(data, &rows) == nil {
			return rows, nil
		}
	}

	// Cache miss: read from primary.
	rows, err := s.primary.LoadRows(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(rows); err == nil {
		s.rdb.Set(ctx, rowsKey, data, s.ttl)
	}
	return rows, nil
}

func (s *CachedStore) SaveRows(ctx context.Context, rows []model.Row) error {
	if err := s.primary.SaveRows(ctx, rows); err != nil {
		return err
	}
	// Invalidate; next load re-populates.
	s.rdb.Del(ctx, rowsKey)
	return nil
}
