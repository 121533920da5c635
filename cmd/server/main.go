package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"caregate/internal/account/store"
	"caregate/internal/audit"
	"caregate/internal/auth/service"
	"caregate/internal/broker"
	"caregate/internal/identity"
	"caregate/internal/platform/config"
	"caregate/internal/platform/httpserver"
	"caregate/internal/platform/logger"
	"caregate/internal/platform/metrics"
	"caregate/internal/platform/postgres"
	"caregate/internal/platform/redis"
	"caregate/internal/token"
	"caregate/internal/token/revocation"
	httptransport "caregate/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	log := logger.New(cfg.Env)
	m := metrics.New()

	health := map[string]httptransport.HealthChecker{}

	// Account storage. No database means the in-memory store; fine for
	// development, accounts do not survive a restart.
	var accounts store.Store = store.NewMemory()
	pg, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	if pg != nil {
		defer pg.Close()
		if err := store.Migrate(cfg.Postgres.URL); err != nil {
			return err
		}
		accounts = store.NewPostgres(pg.Pool)
		health["postgres"] = pg
		log.Info("using postgres account store")
	} else {
		log.Warn("DATABASE_URL not set, using in-memory account store")
	}

	// Optional revocation denylist.
	var revoker *revocation.RedisDenylist
	var revocationChecker httptransport.RevocationChecker
	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		revoker = revocation.NewRedisDenylist(rdb.Client)
		revocationChecker = revoker
		health["redis"] = rdb
		log.Info("session revocation enabled")
	}

	// Audit pipeline. Kafka when configured, otherwise an in-process sink so
	// the trail is at least inspectable in development.
	var sink audit.Sink = audit.NewMemorySink()
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer kafkaSink.Close()
		sink = kafkaSink
		log.Info("audit events flowing to kafka", "topic", cfg.Kafka.Topic)
	}
	publisher := audit.NewPublisher(256, log)
	worker := audit.NewWorker(sink, publisher.Inbox(), log)

	// Identity broker. An initial key fetch failure is not fatal: the broker
	// may come up after us, and the key set refetches on unknown kids.
	brokerClient := broker.New(cfg.Broker)
	if brokerClient.Enabled() {
		if err := brokerClient.Keys().Refresh(ctx); err != nil {
			log.Warn("initial broker key fetch failed", "error", err)
		}
	} else {
		log.Warn("identity broker not configured, logins will be unavailable")
	}

	codec := token.NewCodec(cfg.Session.SigningKey, cfg.Session.Issuer, cfg.Session.Audience, cfg.Session.TTL)
	resolver := identity.NewResolver(accounts, identity.NewHasher(cfg.SSNHash.Secret))

	var revokerIface service.Revoker
	if revoker != nil {
		revokerIface = revoker
	}
	authService := service.New(brokerClient, resolver, codec, revokerIface, publisher, m, log)

	authHandler := httptransport.NewAuthHandler(
		authService,
		accounts,
		httptransport.CookieConfig{Domain: cfg.Session.CookieDomain, Secure: cfg.Session.CookieSecure},
		cfg.FrontendURL,
	)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:        authHandler,
		Codec:       codec,
		Revocations: revocationChecker,
		RateLimiter: httptransport.NewLoginRateLimiter(cfg.LoginRatePerMinute, cfg.LoginRateBurst),
		Metrics:     m,
		Logger:      log,
		Health:      health,
	})

	server := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		if err := worker.Run(gctx); errors.Is(err, context.Canceled) {
			return nil
		} else if err != nil {
			return err
		}
		return nil
	})

	if brokerClient.Enabled() {
		g.Go(func() error {
			err := brokerClient.Keys().RunRefresher(gctx, cfg.Broker.JWKSRefresh, func(err error) {
				log.Warn("broker key refresh failed", "error", err)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server stopped")
	return nil
}
