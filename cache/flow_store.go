package cache

import (
	"context"
	"errors"
	"time"
)

// ErrEntryNotFound is returned when a flow entry is absent, already consumed,
// or evicted after its TTL.
var ErrEntryNotFound = errors.New("flow entry not found")

// FlowStore persists small, attempt-scoped payloads for the duration of one
// login attempt. Entries are keyed by the attempt's opaque state identifier
// and disappear after their TTL. There is no cross-attempt shared state:
// every key has a single writer, the browser context that started the login.
type FlowStore interface {
	// Set stores the payload under the key for at most ttl.
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// Consume returns the stored payload and deletes it in the same step, so
	// an entry can never be read twice.
	Consume(ctx context.Context, key string) ([]byte, error)

	// Delete removes an entry. Deleting an absent entry is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases background resources held by the store.
	Close() error
}
