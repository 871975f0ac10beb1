package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultStateTTL = 30 * 24 * time.Hour

type redisStateStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	CartKey(sessionID string) string
}

// RedisStateRepository stores each cart as a JSON document with a sliding TTL.
type RedisStateRepository struct {
	client redisStateStore
	ttl    time.Duration
}

// NewRedisStateRepository builds a Redis-backed repository.
func NewRedisStateRepository(client redisStateStore, ttl time.Duration) (*RedisStateRepository, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &RedisStateRepository{client: client, ttl: ttl}, nil
}

func (r *RedisStateRepository) Load(ctx context.Context, sessionID string) (*State, error) {
	key := r.client.CartKey(sessionID)
	raw, err := r.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("read cart state: %w", err)
	}
	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("decode cart state: %w", err)
	}
	state.ensureMaps()
	if _, err := r.client.Expire(ctx, key, r.ttl); err != nil {
		return nil, fmt.Errorf("refresh cart ttl: %w", err)
	}
	return &state, nil
}

func (r *RedisStateRepository) Save(ctx context.Context, state *State) error {
	if state == nil || state.SessionID == "" {
		return errors.New("cart state with session id required")
	}
	next := *state
	next.Version++
	payload, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("encode cart state: %w", err)
	}
	if err := r.client.Set(ctx, r.client.CartKey(state.SessionID), string(payload), r.ttl); err != nil {
		return fmt.Errorf("write cart state: %w", err)
	}
	state.Version = next.Version
	return nil
}

func (r *RedisStateRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.client.CartKey(sessionID)); err != nil {
		return fmt.Errorf("delete cart state: %w", err)
	}
	return nil
}
