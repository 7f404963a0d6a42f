package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary. Grounded on the
// teacher codebase's store.CachedStore, same write-through-then-invalidate
// ordering.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{primary: primary, rdb: rdb, ttl: ttl}
}

func (s *CachedStore) SaveRound(ctx context.Context, r *RoundRecord) error {
	if err := s.primary.SaveRound(ctx, r); err != nil {
		return err
	}
	s.rdb.Del(ctx, roundKey(r.RoundID))
	return nil
}

func (s *CachedStore) GetRound(ctx context.Context, roundID uint64) (*RoundRecord, error) {
	data, err := s.rdb.Get(ctx, roundKey(roundID)).Bytes()
	if err == nil {
		var r RoundRecord
		if json.Unmarshal(data, &r) == nil {
			return &r, nil
		}
	}

	r, err := s.primary.GetRound(ctx, roundID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(r); err == nil {
		s.rdb.Set(ctx, roundKey(roundID), data, s.ttl)
	}
	return r, nil
}

func (s *CachedStore) ListRounds(ctx context.Context, limit int) ([]RoundRecord, error) {
	return s.primary.ListRounds(ctx, limit)
}

func roundKey(id uint64) string { return fmt.Sprintf("round:%d", id) }
