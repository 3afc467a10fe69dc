package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyhook-logistics/portal/domain"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 720, cfg.SessionTTLHour)
	assert.Equal(t, 30, cfg.LoginStateTTLMin)
	assert.Equal(t, 30, cfg.AdminGateTTLMin)
	assert.Equal(t, 15, cfg.ExchangeTimeoutSec)
	assert.Equal(t, "corp", cfg.AdminApps)
	assert.Empty(t, cfg.RedisAddr, "memory flow store by default")
	assert.Empty(t, cfg.MongoURI, "log-only audit recorder by default")
}

func TestBuildRegistrySkipsUnconfiguredApps(t *testing.T) {
	cfg := &ServerConfig{
		LoginApp:  AppCredentials{ClientID: "login-client", Scopes: "publicData"},
		CorpApp:   AppCredentials{ClientID: "corp-client", ClientSecret: "s", Scopes: "esi-corporations.read_structures.v1 esi-assets.read_corporation_assets.v1"},
		AdminApps: "corp",
	}

	registry, err := cfg.BuildRegistry()
	require.NoError(t, err)

	login, err := registry.App(domain.AppLogin)
	require.NoError(t, err)
	assert.False(t, login.CanGrantAdmin)
	assert.Equal(t, []string{"publicData"}, login.Scopes)
	assert.Equal(t, "login", login.SessionNamespace)

	corp, err := registry.App(domain.AppCorp)
	require.NoError(t, err)
	assert.True(t, corp.CanGrantAdmin)
	assert.Len(t, corp.Scopes, 2)

	// market_app has no client id, so it is not registered.
	_, err = registry.App(domain.AppMarket)
	assert.ErrorIs(t, err, domain.ErrAppNotFound)

	assert.Equal(t, []string{"corp"}, registry.AdminNamespaces())
}

func TestBuildRegistryNoAppsConfigured(t *testing.T) {
	cfg := &ServerConfig{}
	_, err := cfg.BuildRegistry()
	assert.Error(t, err)
}
