// Command server runs the credential ledger service. main only
// assembles: configuration, logger, metrics, the snapshot and audit
// backends, the vault manager, and the HTTP transport. Business logic
// lives in the internal packages.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"credchain/internal/audit"
	"credchain/internal/device"
	"credchain/internal/jwtsession"
	"credchain/internal/platform/config"
	"credchain/internal/platform/httpserver"
	"credchain/internal/platform/logger"
	"credchain/internal/platform/metrics"
	platformredis "credchain/internal/platform/redis"
	"credchain/internal/snapshot"
	httptransport "credchain/internal/transport/http"
	"credchain/internal/vault"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	snapStore, snapCleanup, err := buildSnapshotStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("snapshot backend: %w", err)
	}
	defer snapCleanup()

	publisher, auditCleanup, err := buildAuditPublisher(ctx, cfg, log, m)
	if err != nil {
		return fmt.Errorf("audit backend: %w", err)
	}
	defer auditCleanup()
	defer publisher.Close()

	manager, err := vault.New(snapStore,
		vault.WithLogger(log),
		vault.WithMetrics(m),
		vault.WithAuditPublisher(publisher),
		vault.WithDifficulty(cfg.Chain.Difficulty),
	)
	if err != nil {
		return err
	}

	if cfg.Admin.TokenHash == "" {
		log.Warn("admin token hash not configured; revocation endpoints will refuse all callers")
	}

	tokens := jwtsession.NewService(cfg.Session.SigningKey, cfg.Session.TTL)
	router := httptransport.NewRouter(httptransport.RouterConfig{
		Vault:          manager,
		Tokens:         tokens,
		Sessions:       jwtsession.NewValidatorAdapter(tokens),
		Devices:        device.NewService(true),
		Logger:         log,
		Metrics:        m,
		Registry:       reg,
		AdminTokenHash: cfg.Admin.TokenHash,
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimitRPS:   cfg.RateLimit.RequestsPerSecond,
		RateLimitBurst: cfg.RateLimit.Burst,
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening",
			"addr", cfg.Server.Addr,
			"difficulty", cfg.Chain.Difficulty,
			"snapshot_backend", cfg.Snapshot.Backend,
			"audit_backend", cfg.Audit.Backend,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// buildSnapshotStore selects the chain persistence backend and wraps
// it in the sealing layer when a passphrase is configured. The
// returned cleanup closes whatever connection the backend opened.
func buildSnapshotStore(ctx context.Context, cfg config.Config) (snapshot.Store, func(), error) {
	var (
		store   snapshot.Store
		cleanup = func() {}
	)

	switch cfg.Snapshot.Backend {
	case "memory":
		store = snapshot.NewMemoryStore()
	case "file":
		fs, err := snapshot.NewFileStore(cfg.Snapshot.Path)
		if err != nil {
			return nil, nil, err
		}
		store = fs
	case "redis":
		rc, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		store = snapshot.NewRedisStore(rc.Client, cfg.Snapshot.Name)
		cleanup = func() { _ = rc.Close() }
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Snapshot.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		ps := snapshot.NewPostgresStore(pool, cfg.Snapshot.Name)
		if err := ps.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		store = ps
		cleanup = func() { pool.Close() }
	default:
		return nil, nil, fmt.Errorf("unknown snapshot backend %q", cfg.Snapshot.Backend)
	}

	if cfg.Snapshot.Passphrase != "" {
		sealed, err := snapshot.NewSealedStore(store, cfg.Snapshot.Passphrase)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		store = sealed
	}
	return store, cleanup, nil
}

// buildAuditPublisher selects the audit store and attaches the
// streaming sinks that are configured. The returned cleanup closes
// the backing database; callers must run it after Publisher.Close so
// the drain can still reach the store.
func buildAuditPublisher(ctx context.Context, cfg config.Config, log *slog.Logger, m *metrics.Metrics) (*audit.Publisher, func(), error) {
	var (
		store   audit.Store
		cleanup = func() {}
	)

	switch cfg.Audit.Backend {
	case "memory":
		store = audit.NewInMemoryStore()
	case "postgres":
		db, err := audit.OpenPostgres(ctx, cfg.Audit.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		ps := audit.NewPostgresStore(db)
		if err := ps.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		store = ps
		cleanup = func() { _ = db.Close() }
	default:
		return nil, nil, fmt.Errorf("unknown audit backend %q", cfg.Audit.Backend)
	}

	opts := []audit.Option{
		audit.WithLogger(log),
		audit.WithMetrics(m),
		audit.WithAsyncBuffer(cfg.Audit.BufferSize),
	}
	if len(cfg.Audit.Kafka.Brokers) > 0 {
		sink, err := audit.NewKafkaSink(cfg.Audit.Kafka.Brokers, cfg.Audit.Kafka.Topic, log)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		opts = append(opts, audit.WithSink(sink))
	}
	if cfg.Audit.AMQP.URL != "" {
		sink, err := audit.NewAMQPSink(cfg.Audit.AMQP.URL, cfg.Audit.AMQP.Queue)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		opts = append(opts, audit.WithSink(sink))
	}

	return audit.NewPublisher(store, opts...), cleanup, nil
}
