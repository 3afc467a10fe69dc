package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skyhook-logistics/portal/cache"
)

// FlowStore implements cache.FlowStore backed by Redis, so a login callback
// may land on any portal instance.
type FlowStore struct {
	client redis.UniversalClient
	prefix string
}

var _ cache.FlowStore = (*FlowStore)(nil)

// NewFlowStore creates a Redis-backed flow store. The prefix namespaces the
// portal's keys within a shared Redis.
func NewFlowStore(client redis.UniversalClient, prefix string) *FlowStore {
	return &FlowStore{client: client, prefix: prefix}
}

func (s *FlowStore) redisKey(key string) string {
	return fmt.Sprintf("%s:flow:%s", s.prefix, key)
}

// Set stores the payload with the given TTL.
func (s *FlowStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.redisKey(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to persist flow entry: %w", err)
	}
	return nil
}

// Consume atomically reads and deletes the entry via GETDEL.
func (s *FlowStore) Consume(ctx context.Context, key string) ([]byte, error) {
	payload, err := s.client.GetDel(ctx, s.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cache.ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to consume flow entry: %w", err)
	}
	return payload, nil
}

// Delete removes the entry.
func (s *FlowStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to delete flow entry: %w", err)
	}
	return nil
}

// Close is a no-op; the Redis client is owned by the caller.
func (s *FlowStore) Close() error { return nil }
