package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	echoapi "github.com/skyhook-logistics/portal/api/echo"
	"github.com/skyhook-logistics/portal/cache"
	cacheredis "github.com/skyhook-logistics/portal/cache/redis"
	"github.com/skyhook-logistics/portal/config"
	"github.com/skyhook-logistics/portal/internal/audit"
	"github.com/skyhook-logistics/portal/internal/server"
	"github.com/skyhook-logistics/portal/mongodb"
	"github.com/skyhook-logistics/portal/services"
	"github.com/skyhook-logistics/portal/tracing"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	setupLogger(cfg)
	log.Info().Str("http_port", cfg.HTTPPort).Msg("starting skyhook portal auth server")

	tp, err := tracing.InitTracerProvider(cfg.OtelServiceName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer provider")
	}

	ctx := context.Background()

	registry, err := cfg.BuildRegistry()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build application registry")
	}

	// Flow store: Redis when configured so callbacks may land on any
	// instance, in-memory otherwise.
	var flowStore cache.FlowStore
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		flowStore = cacheredis.NewFlowStore(client, "skyhook")
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis flow store")
	} else {
		flowStore = cache.NewMemoryFlowStore()
		log.Info().Msg("using in-memory flow store")
	}
	defer flowStore.Close()

	// Audit recorder: MongoDB when configured, process log otherwise.
	var recorder audit.Recorder = audit.LogRecorder{}
	if cfg.MongoURI != "" {
		if err := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); err != nil {
			log.Fatal().Err(err).Msg("failed to initialize MongoDB connection")
		}
		auditRepo, err := mongodb.NewLoginAuditRepository(ctx, mongodb.GetDB())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize login audit repository")
		}
		recorder = auditRepo
		log.Info().Msg("audit trail persisted to MongoDB")
	}

	stateTTL := time.Duration(cfg.LoginStateTTLMin) * time.Minute
	exchangeTimeout := time.Duration(cfg.ExchangeTimeoutSec) * time.Second
	masterSecret := []byte(cfg.SessionSecret)

	challenges := services.NewChallengeService(flowStore, stateTTL)
	redirects := services.NewRedirectStateService(flowStore, stateTTL)
	exchanger := services.NewExchangeService(registry, oauth2.Endpoint{
		AuthURL:  cfg.ProviderAuthorizeURL,
		TokenURL: cfg.ProviderTokenURL,
	}, cfg.CallbackBaseURL, exchangeTimeout)
	identities := services.NewIdentityService(cfg.ProviderVerifyURL, cfg.ProviderAffiliationURL, exchangeTimeout)

	sessions, err := services.NewSessionService(masterSecret, time.Duration(cfg.SessionTTLHour)*time.Hour)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize session service")
	}
	adminGate, err := services.NewAdminGateService(registry, masterSecret, time.Duration(cfg.AdminGateTTLMin)*time.Minute)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize admin gate")
	}

	loginService := services.NewLoginService(
		registry, challenges, redirects, exchanger, identities, sessions, adminGate, recorder)

	authAPI := echoapi.NewAuthAPI(loginService, sessions, adminGate, registry, echoapi.CookieConfig{
		BaseDomain: cfg.BaseDomain,
		DevMode:    cfg.DevMode,
		SessionTTL: time.Duration(cfg.SessionTTLHour) * time.Hour,
		AdminTTL:   adminGate.TTL(),
	})

	httpServer := server.NewHTTPServer(cfg, authAPI)

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}
	if err := mongodb.Disconnect(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("mongodb disconnect failed")
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracer provider shutdown failed")
	}
}

func setupLogger(cfg *config.ServerConfig) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
