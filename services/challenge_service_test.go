package services

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyhook-logistics/portal/cache"
)

func TestChallengeDerivation(t *testing.T) {
	verifier, err := GenerateVerifier()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(verifier), 43, "verifier must meet the RFC 7636 minimum length")

	h := sha256.Sum256([]byte(verifier))
	expected := base64.RawURLEncoding.EncodeToString(h[:])
	assert.Equal(t, expected, ChallengeFromVerifier(verifier))
}

func TestGenerateVerifierIsRandom(t *testing.T) {
	a, err := GenerateVerifier()
	require.NoError(t, err)
	b, err := GenerateVerifier()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestChallengeBeginConsumeRoundTrip(t *testing.T) {
	store := cache.NewMemoryFlowStore()
	defer store.Close()
	svc := NewChallengeService(store, 30*time.Minute)
	ctx := context.Background()

	verifier, challenge, err := svc.Begin(ctx, "attempt-1")
	require.NoError(t, err)
	assert.Equal(t, ChallengeFromVerifier(verifier), challenge)

	got, err := svc.Consume(ctx, "attempt-1")
	require.NoError(t, err)
	assert.Equal(t, verifier, got)
}

func TestChallengeConsumeIsSingleUse(t *testing.T) {
	store := cache.NewMemoryFlowStore()
	defer store.Close()
	svc := NewChallengeService(store, 30*time.Minute)
	ctx := context.Background()

	_, _, err := svc.Begin(ctx, "attempt-1")
	require.NoError(t, err)

	_, err = svc.Consume(ctx, "attempt-1")
	require.NoError(t, err)

	_, err = svc.Consume(ctx, "attempt-1")
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestChallengeConsumeUnknownAttempt(t *testing.T) {
	store := cache.NewMemoryFlowStore()
	defer store.Close()
	svc := NewChallengeService(store, 30*time.Minute)

	_, err := svc.Consume(context.Background(), "never-started")
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestChallengeConsumeAfterExpiry(t *testing.T) {
	store := cache.NewMemoryFlowStore()
	defer store.Close()
	// Logical TTL in the past; the grace window keeps the entry findable so
	// the failure is reported as Expired, not NotFound.
	svc := NewChallengeService(store, -time.Second)
	ctx := context.Background()

	_, _, err := svc.Begin(ctx, "attempt-1")
	require.NoError(t, err)

	_, err = svc.Consume(ctx, "attempt-1")
	assert.ErrorIs(t, err, ErrChallengeExpired)
}
