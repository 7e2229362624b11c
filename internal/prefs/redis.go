package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/proposalhub/notify-fabric/internal/domain"
)

const keyPrefix = "notify:prefs:"

// RedisStore reads preference records maintained by the surrounding
// application in Redis, one JSON document per recipient.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get returns the stored preferences, or the allow-all zero value when no
// record exists for the recipient.
func (s *RedisStore) Get(ctx context.Context, recipient string) (domain.Preferences, error) {
	data, err := s.client.Get(ctx, keyPrefix+recipient).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Preferences{}, nil
	}
	if err != nil {
		return domain.Preferences{}, fmt.Errorf("get preferences: %w", err)
	}

	var p domain.Preferences
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return domain.Preferences{}, fmt.Errorf("unmarshal preferences: %w", err)
	}
	return p, nil
}

var _ Store = (*RedisStore)(nil)
