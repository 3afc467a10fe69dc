package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/skyhook-logistics/portal/domain"
)

// AppCredentials holds one OAuth application's client credentials and scopes
// as configured.
type AppCredentials struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Scopes       string `mapstructure:"scopes"` // space-separated
}

// ServerConfig holds all configuration for the portal's auth server.
// Tags use mapstructure for Viper unmarshalling.
type ServerConfig struct {
	HTTPPort  string `mapstructure:"HTTP_PORT"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`

	// BaseDomain scopes the session cookies; DevMode drops the secure flag
	// for local development over plain HTTP.
	BaseDomain string `mapstructure:"BASE_DOMAIN"`
	DevMode    bool   `mapstructure:"DEV_MODE"`

	// CallbackBaseURL is the externally visible origin the identity provider
	// redirects back to.
	CallbackBaseURL string `mapstructure:"CALLBACK_BASE_URL"`

	// SessionSecret is the master secret all signing keys derive from.
	SessionSecret      string `mapstructure:"SESSION_SECRET"`
	SessionTTLHour     int    `mapstructure:"SESSION_TTL_HOUR"`
	LoginStateTTLMin   int    `mapstructure:"LOGIN_STATE_TTL_MIN"`
	AdminGateTTLMin    int    `mapstructure:"ADMIN_GATE_TTL_MIN"`
	ExchangeTimeoutSec int    `mapstructure:"EXCHANGE_TIMEOUT_SEC"`

	// Identity provider endpoints.
	ProviderAuthorizeURL   string `mapstructure:"PROVIDER_AUTHORIZE_URL"`
	ProviderTokenURL       string `mapstructure:"PROVIDER_TOKEN_URL"`
	ProviderVerifyURL      string `mapstructure:"PROVIDER_VERIFY_URL"`
	ProviderAffiliationURL string `mapstructure:"PROVIDER_AFFILIATION_URL"`

	// Optional backing services. An empty RedisAddr selects the in-memory
	// flow store; an empty MongoURI selects the log-only audit recorder.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDBName   string `mapstructure:"MONGO_DB_NAME"`

	OtelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// Per-application OAuth credentials.
	LoginApp     AppCredentials `mapstructure:"login_app"`
	CorpApp      AppCredentials `mapstructure:"corp_app"`
	MarketApp    AppCredentials `mapstructure:"market_app"`
	StructureApp AppCredentials `mapstructure:"structure_app"`

	// AdminApps lists the application ids whose characters may hold admin
	// privilege. Space-separated.
	AdminApps string `mapstructure:"ADMIN_APPS"`
}

// LoadConfig reads configuration from file, environment variables, and defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/skyhook-portal/")
	v.AddConfigPath("$HOME/.skyhook-portal")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("BASE_DOMAIN", "localhost")
	v.SetDefault("DEV_MODE", false)
	v.SetDefault("CALLBACK_BASE_URL", "http://localhost:8080")
	v.SetDefault("SESSION_SECRET", "a_very_secret_session_key_change_me") // CHANGE IN PRODUCTION
	v.SetDefault("SESSION_TTL_HOUR", 720)                                 // 30 days, bounded by refresh token validity
	v.SetDefault("LOGIN_STATE_TTL_MIN", 30)
	v.SetDefault("ADMIN_GATE_TTL_MIN", 30)
	v.SetDefault("EXCHANGE_TIMEOUT_SEC", 15)
	v.SetDefault("OTEL_SERVICE_NAME", "skyhook-portal-auth")
	v.SetDefault("ADMIN_APPS", "corp")
	v.SetDefault("MONGO_DB_NAME", "skyhook_portal")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, env vars and defaults cover it;
		// anything else is a real error.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}

// BuildRegistry constructs the immutable application registry from the
// configured credentials. Applications without a client id are considered
// unconfigured and skipped.
func (c *ServerConfig) BuildRegistry() (*domain.Registry, error) {
	adminApps := make(map[domain.AppID]bool)
	for _, id := range strings.Fields(c.AdminApps) {
		adminApps[domain.AppID(id)] = true
	}

	creds := map[domain.AppID]AppCredentials{
		domain.AppLogin:     c.LoginApp,
		domain.AppCorp:      c.CorpApp,
		domain.AppMarket:    c.MarketApp,
		domain.AppStructure: c.StructureApp,
	}

	var apps []domain.AppConfig
	for _, id := range []domain.AppID{domain.AppLogin, domain.AppCorp, domain.AppMarket, domain.AppStructure} {
		cred := creds[id]
		if cred.ClientID == "" {
			continue
		}
		apps = append(apps, domain.AppConfig{
			ID:               id,
			ClientID:         cred.ClientID,
			ClientSecret:     cred.ClientSecret,
			Scopes:           strings.Fields(cred.Scopes),
			SessionNamespace: string(id),
			CanGrantAdmin:    adminApps[id],
		})
	}
	if len(apps) == 0 {
		return nil, fmt.Errorf("no oauth applications configured")
	}
	return domain.NewRegistry(apps...)
}
