package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cacheadapter "github.com/paperpath/docusign-connect/internal/adapter/cache"
	"github.com/paperpath/docusign-connect/internal/adapter/docusign"
	"github.com/paperpath/docusign-connect/internal/config"
	"github.com/paperpath/docusign-connect/internal/database"
	"github.com/paperpath/docusign-connect/internal/event"
	httptransport "github.com/paperpath/docusign-connect/internal/http"
	"github.com/paperpath/docusign-connect/internal/http/handler"
	"github.com/paperpath/docusign-connect/internal/metrics"
	apimiddleware "github.com/paperpath/docusign-connect/internal/middleware"
	"github.com/paperpath/docusign-connect/internal/repository"
	"github.com/paperpath/docusign-connect/internal/server"
	envelopesvc "github.com/paperpath/docusign-connect/internal/service/envelope"
	"github.com/paperpath/docusign-connect/internal/service/session"
	"github.com/paperpath/docusign-connect/internal/service/webhook"
	"github.com/paperpath/docusign-connect/internal/storage"
	"github.com/paperpath/docusign-connect/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newPGXPool,
			newRedisClient,
			newRegistry,
			newMetrics,
			newEnvelopeRepository,
			newRecipientRepository,
			newSessionStore,
			newDocumentStore,
			newOAuthClient,
			newSigningClient,
			newEventBus,
			newStateGuard,
			newSessionManager,
			newEnvelopeService,
			newWebhookAuthenticator,
			newWebhookRouter,
			newConnectHandler,
			newRateLimiter,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, runMigrations, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

func newMetrics(registry *prometheus.Registry) *metrics.Collector {
	return metrics.NewCollector(registry)
}

func newEnvelopeRepository(pool *pgxpool.Pool) repository.EnvelopeRepository {
	return repository.NewPostgresEnvelopeRepo(pool)
}

func newRecipientRepository(pool *pgxpool.Pool) repository.RecipientRepository {
	return repository.NewPostgresRecipientRepo(pool)
}

func newSessionStore(client redis.UniversalClient) repository.SessionStore {
	return cacheadapter.NewRedisSessionStore(client)
}

func newDocumentStore(cfg config.Config) storage.DocumentStore {
	return storage.NewDiskStore(cfg.StorageDirectory)
}

func newOAuthClient(cfg config.Config) docusign.OAuthClient {
	return docusign.NewHTTPOAuthClient(cfg, nil)
}

func newSigningClient() docusign.SigningClient {
	return docusign.NewHTTPSigningClient(nil)
}

func newEventBus(logger *zap.Logger) *event.Bus {
	return event.NewBus(logger)
}

func newStateGuard(store repository.SessionStore, cfg config.Config) (*session.StateGuard, error) {
	return session.NewStateGuard(store, cfg.StateEncryptionKey)
}

func newSessionManager(
	store repository.SessionStore,
	guard *session.StateGuard,
	oauth docusign.OAuthClient,
	collector *metrics.Collector,
	logger *zap.Logger,
) *session.Manager {
	return session.NewManager(store, guard, oauth, collector, logger)
}

func newEnvelopeService(
	envelopes repository.EnvelopeRepository,
	recipients repository.RecipientRepository,
	documents storage.DocumentStore,
	signing docusign.SigningClient,
	node *snowflake.Node,
	logger *zap.Logger,
) *envelopesvc.Service {
	return envelopesvc.NewService(envelopes, recipients, documents, signing, node, logger)
}

func newWebhookAuthenticator(cfg config.Config) *webhook.Authenticator {
	return webhook.NewAuthenticator(cfg.HMACSecret)
}

func newWebhookRouter(
	envelopes repository.EnvelopeRepository,
	recipients repository.RecipientRepository,
	documents storage.DocumentStore,
	bus *event.Bus,
	collector *metrics.Collector,
	cfg config.Config,
	logger *zap.Logger,
) *webhook.Router {
	return webhook.NewRouter(envelopes, recipients, documents, bus, collector, cfg.ProcessEvents, logger)
}

func newConnectHandler(
	sessions *session.Manager,
	envelopes *envelopesvc.Service,
	auth *webhook.Authenticator,
	events *webhook.Router,
	bus *event.Bus,
	collector *metrics.Collector,
	cfg config.Config,
	logger *zap.Logger,
) *handler.ConnectHandler {
	return handler.NewConnectHandler(sessions, envelopes, auth, events, bus, collector, cfg.RoutePrefix, logger)
}

func newRateLimiter(cfg config.Config) *apimiddleware.RateLimiter {
	return apimiddleware.NewRateLimiter(cfg.RateLimitRPM)
}

func runMigrations(cfg config.Config, logger *zap.Logger) error {
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return err
	}
	logger.Info("database migrations applied")
	return nil
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
