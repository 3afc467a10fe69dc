package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyhook-logistics/portal/cache"
	"github.com/skyhook-logistics/portal/domain"
)

func TestRedirectStateRoundTrip(t *testing.T) {
	store := cache.NewMemoryFlowStore()
	defer store.Close()
	svc := NewRedirectStateService(store, 30*time.Minute)
	ctx := context.Background()

	err := svc.Save(ctx, "attempt-1", domain.RedirectState{
		ReturnPath:  "/buyback",
		Domain:      domain.DomainUser,
		AdminIntent: false,
		AppID:       domain.AppLogin,
	})
	require.NoError(t, err)

	state, err := svc.Consume(ctx, "attempt-1")
	require.NoError(t, err)
	assert.Equal(t, "/buyback", state.ReturnPath)
	assert.Equal(t, domain.DomainUser, state.Domain)
	assert.Equal(t, domain.AppLogin, state.AppID)
}

func TestRedirectStateConsumedExactlyOnce(t *testing.T) {
	store := cache.NewMemoryFlowStore()
	defer store.Close()
	svc := NewRedirectStateService(store, 30*time.Minute)
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, "attempt-1", domain.RedirectState{
		ReturnPath: "/x", Domain: domain.DomainUser, AppID: domain.AppLogin,
	}))

	_, err := svc.Consume(ctx, "attempt-1")
	require.NoError(t, err)

	_, err = svc.Consume(ctx, "attempt-1")
	assert.ErrorIs(t, err, ErrRedirectStateMissing)
}

func TestRedirectStateMissing(t *testing.T) {
	store := cache.NewMemoryFlowStore()
	defer store.Close()
	svc := NewRedirectStateService(store, 30*time.Minute)

	_, err := svc.Consume(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRedirectStateMissing)
}

func TestRedirectStateExpired(t *testing.T) {
	store := cache.NewMemoryFlowStore()
	defer store.Close()
	svc := NewRedirectStateService(store, -time.Second)
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, "attempt-1", domain.RedirectState{
		ReturnPath: "/x", Domain: domain.DomainUser, AppID: domain.AppLogin,
	}))

	_, err := svc.Consume(ctx, "attempt-1")
	assert.ErrorIs(t, err, ErrRedirectStateExpired)
}

func TestRedirectStateDefaultsReturnPathPerDomain(t *testing.T) {
	store := cache.NewMemoryFlowStore()
	defer store.Close()
	svc := NewRedirectStateService(store, 30*time.Minute)
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, "user-attempt", domain.RedirectState{
		Domain: domain.DomainUser, AppID: domain.AppLogin,
	}))
	state, err := svc.Consume(ctx, "user-attempt")
	require.NoError(t, err)
	assert.Equal(t, "/", state.ReturnPath)

	require.NoError(t, svc.Save(ctx, "admin-attempt", domain.RedirectState{
		Domain: domain.DomainAdmin, AppID: domain.AppCorp,
	}))
	state, err = svc.Consume(ctx, "admin-attempt")
	require.NoError(t, err)
	assert.Equal(t, "/admin", state.ReturnPath)
}
