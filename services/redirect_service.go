package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/skyhook-logistics/portal/cache"
	"github.com/skyhook-logistics/portal/domain"
)

const redirectKeyPrefix = "redirect:"

var (
	ErrRedirectStateMissing = errors.New("redirect state missing")
	ErrRedirectStateExpired = errors.New("redirect state expired")
)

type storedRedirect struct {
	State     domain.RedirectState `json:"state"`
	ExpiresAt time.Time            `json:"expires_at"`
}

// RedirectStateService carries the caller's return path, login domain and
// admin intent across the redirect to the identity provider and back. State
// is written before control leaves the portal and consumed exactly once on
// return; an absent or expired record fails the attempt closed.
type RedirectStateService struct {
	store cache.FlowStore
	ttl   time.Duration
}

// NewRedirectStateService creates a redirect-state service over the given
// flow store.
func NewRedirectStateService(store cache.FlowStore, ttl time.Duration) *RedirectStateService {
	return &RedirectStateService{store: store, ttl: ttl}
}

// Save records the attempt's intent. An empty return path defaults to the
// domain's base path so a stale path from an unrelated attempt can never leak.
func (s *RedirectStateService) Save(ctx context.Context, attemptID string, state domain.RedirectState) error {
	if state.ReturnPath == "" {
		state.ReturnPath = state.Domain.BasePath()
	}
	payload, err := json.Marshal(storedRedirect{
		State:     state,
		ExpiresAt: time.Now().Add(s.ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal redirect state: %w", err)
	}
	if err := s.store.Set(ctx, redirectKeyPrefix+attemptID, payload, s.ttl+expiryGrace); err != nil {
		return fmt.Errorf("failed to persist redirect state: %w", err)
	}
	return nil
}

// Consume loads the attempt's redirect state and clears it in the same step.
func (s *RedirectStateService) Consume(ctx context.Context, attemptID string) (*domain.RedirectState, error) {
	payload, err := s.store.Consume(ctx, redirectKeyPrefix+attemptID)
	if err != nil {
		if errors.Is(err, cache.ErrEntryNotFound) {
			return nil, ErrRedirectStateMissing
		}
		return nil, fmt.Errorf("failed to load redirect state: %w", err)
	}

	var stored storedRedirect
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode redirect state: %w", err)
	}
	if time.Now().After(stored.ExpiresAt) {
		return nil, ErrRedirectStateExpired
	}
	return &stored.State, nil
}

// Clear drops the attempt's redirect state without reading it.
func (s *RedirectStateService) Clear(ctx context.Context, attemptID string) error {
	return s.store.Delete(ctx, redirectKeyPrefix+attemptID)
}
