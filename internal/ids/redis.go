package ids

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultHoldIDKey is the Redis key backing the shared hold id sequence.
const DefaultHoldIDKey = "tics:hold_id"

// RedisSequence generates hold ids with INCR so that several processes can
// share one monotonic id space.
type RedisSequence struct {
	client redis.Cmdable
	key    string
}

func NewRedisSequence(client redis.Cmdable, key string) *RedisSequence {
	if key == "" {
		key = DefaultHoldIDKey
	}
	return &RedisSequence{
		client: client,
		key:    key,
	}
}

func (s *RedisSequence) NextHoldID(ctx context.Context) (int, error) {
	if s.client == nil {
		return 0, fmt.Errorf("redis client not available")
	}
	n, err := s.client.Incr(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment hold id sequence %s: %w", s.key, err)
	}
	return int(n), nil
}
