package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is a TTL'd processed-message marker backed by Redis. It is a
// fast-path only: a marked id is acked without reprocessing, but an
// unmarked redelivery is always safe because every downstream write is
// conditional.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) Key(stream, messageID string) string {
	return fmt.Sprintf("processed:%s:%s", stream, messageID)
}

// Seen reports whether the key was marked processed. Never call this
// before the message outcome is settled: marking happens only after ack.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark records the key as processed for the configured TTL.
func (s *Store) Mark(ctx context.Context, key string) error {
	return s.rdb.Set(ctx, key, "1", s.ttl).Err()
}
