package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryFlowStore implements FlowStore with an in-process ttlcache. Suited to
// single-instance deployments; multi-instance deployments should use the
// Redis store so a callback can land on any instance.
type MemoryFlowStore struct {
	cache *ttlcache.Cache[string, []byte]
}

// NewMemoryFlowStore creates an in-memory flow store with automatic cleanup
// of expired entries.
func NewMemoryFlowStore() *MemoryFlowStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)

	// Start the cleanup process
	go cache.Start()

	return &MemoryFlowStore{cache: cache}
}

// Set implements FlowStore.Set.
func (s *MemoryFlowStore) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	s.cache.Set(key, payload, ttl)
	return nil
}

// Consume implements FlowStore.Consume. Read-and-delete is a single atomic
// operation, so two concurrent callbacks for the same attempt can never both
// obtain the entry.
func (s *MemoryFlowStore) Consume(_ context.Context, key string) ([]byte, error) {
	item, present := s.cache.GetAndDelete(key)
	if !present || item == nil {
		return nil, ErrEntryNotFound
	}
	return item.Value(), nil
}

// Delete implements FlowStore.Delete.
func (s *MemoryFlowStore) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

// Close stops the cleanup goroutine.
func (s *MemoryFlowStore) Close() error {
	s.cache.Stop()
	return nil
}
