// Package main is the entry point of the LINE attendance bot.
//
// The process serves the LINE webhook over HTTP and, when enabled, pushes a
// daily status digest on a cron schedule. Attendance data lives in Redis or
// Postgres, optionally shadowed by a process-local memory store.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dailypractice/attendance-hub/config"
	"github.com/dailypractice/attendance-hub/internal/domain/attendance"
	lineapi "github.com/dailypractice/attendance-hub/internal/infrastructure/external/line"
	"github.com/dailypractice/attendance-hub/internal/infrastructure/persistence/failover"
	"github.com/dailypractice/attendance-hub/internal/infrastructure/persistence/memory"
	"github.com/dailypractice/attendance-hub/internal/infrastructure/persistence/postgres"
	"github.com/dailypractice/attendance-hub/internal/infrastructure/persistence/redis"
	"github.com/dailypractice/attendance-hub/internal/infrastructure/scheduler"
	"github.com/dailypractice/attendance-hub/internal/infrastructure/scheduler/jobs"
	httpserver "github.com/dailypractice/attendance-hub/internal/interface/http"
	"github.com/dailypractice/attendance-hub/internal/interface/http/handlers"
	linebot "github.com/dailypractice/attendance-hub/internal/interface/line"
	"github.com/dailypractice/attendance-hub/pkg/circuitbreaker"
	"github.com/dailypractice/attendance-hub/pkg/logger"
	"github.com/dailypractice/attendance-hub/pkg/timeutil"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION & LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg)
	defer func() { _ = log.Sync() }()

	log.Info("starting attendance bot",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.App.Location.String()),
		logger.String("store", cfg.Store.Backend),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. ATTENDANCE STORE
	// ─────────────────────────────────────────────────────────────────────────
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. LINE CLIENT & DISPATCHER
	// ─────────────────────────────────────────────────────────────────────────
	clientCfg := lineapi.DefaultClientConfig(cfg.Line.AccessToken)
	clientCfg.BaseURL = cfg.Line.BaseURL
	clientCfg.Timeout = cfg.Line.RequestTimeout
	clientCfg.RetryAttempts = cfg.Line.RetryAttempts
	clientCfg.RequestsPerSecond = cfg.Line.RequestsPerSecond
	clientCfg.Logger = log
	client := lineapi.NewClient(clientCfg)

	calendar := timeutil.NewCalendar(cfg.App.Location)
	collator := attendance.NewCollator(cfg.App.CollationLocale)

	dispatcher := linebot.NewDispatcher(store, calendar, collator, client, linebot.Config{
		Concurrency:   cfg.Attendance.Concurrency,
		EventTimeout:  cfg.Attendance.EventTimeout,
		ChunkLimit:    cfg.Attendance.ChunkLimit,
		RemoveOnLeave: cfg.Attendance.RemoveOnLeave,
		MaxStatsDays:  cfg.Attendance.MaxStatsDays,
	}, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 4. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddCheck("store", handlers.NewPingCheck(store))

	webhook := handlers.NewLineWebhookHandler(handlers.WebhookConfig{
		ChannelSecret: cfg.Line.ChannelSecret,
		MaxBodyBytes:  cfg.HTTP.MaxBodyBytes,
		BatchTimeout:  cfg.HTTP.BatchTimeout,
	}, dispatcher, log)

	httpCfg := httpserver.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	httpCfg.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	httpCfg.APIKeys = cfg.HTTP.APIKeys

	server := httpserver.NewServer(httpCfg, httpserver.Dependencies{
		Webhook:       webhook,
		HealthChecker: health,
		Queries:       dispatcher.Queries(),
		Logger:        log,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 5. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(scheduler.Config{
			Location:   cfg.App.Location,
			JobTimeout: cfg.Scheduler.JobTimeout,
			Logger:     log,
		})
		digest := jobs.NewDailyDigestJob(dispatcher.Queries(), dispatcher.Presenter(), client, log, jobs.DailyDigestConfig{
			ChatIDs:   cfg.Scheduler.ChatIDs,
			SkipEmpty: cfg.Scheduler.SkipEmpty,
		})
		if err := sched.Register(cfg.Scheduler.DigestCron, digest); err != nil {
			return fmt.Errorf("failed to register digest: %w", err)
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. RUN & GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	errCh := server.StartAsync()

	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case err, ok := <-errCh:
		if ok && err != nil {
			log.Error("http server error", logger.Err(err))
			return err
		}
	}

	log.Info("starting graceful shutdown", logger.Duration("timeout", cfg.App.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	var shutdownErr error
	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Error("failed to stop scheduler gracefully", logger.Err(err))
			shutdownErr = errors.Join(shutdownErr, err)
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		shutdownErr = errors.Join(shutdownErr, err)
	}

	if shutdownErr != nil {
		log.Warn("shutdown completed with errors")
	} else {
		log.Info("shutdown completed successfully")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func setupLogger(cfg *config.Config) *logger.Logger {
	obs := cfg.Observability
	return logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(obs.LogLevel),
		AddCaller: true,
		File: logger.RotationOptions{
			Filename:   obs.LogFile,
			MaxSizeMB:  obs.LogMaxSizeMB,
			MaxBackups: obs.LogMaxBackups,
			MaxAgeDays: obs.LogMaxAgeDays,
			Compress:   obs.LogCompress,
		},
	}).With(logger.String("app", cfg.App.Name))
}

// openStore picks the attendance backend. A configured remote backend is
// wrapped with the memory fallback when enabled; a missing one degrades to
// memory or to a store that rejects every call.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (attendance.Store, func(), error) {
	noop := func() {}
	sc := cfg.Store

	if sc.Backend == config.BackendMemory {
		log.Warn("using in-memory attendance store; data is lost on restart")
		return memory.NewAttendanceStore(), noop, nil
	}

	if sc.RemoteURL() == "" {
		if sc.MemoryFallback {
			log.Warn("no remote store configured, using in-memory fallback", logger.String("backend", sc.Backend))
			return memory.NewAttendanceStore(), noop, nil
		}
		log.Error("no attendance store configured; commands will answer with the unavailable notice")
		return attendance.UnavailableStore{}, noop, nil
	}

	var (
		remote attendance.Store
		closer func()
		err    error
	)
	switch sc.Backend {
	case config.BackendRedis:
		remote, closer, err = openRedis(sc, log)
	case config.BackendPostgres:
		remote, closer, err = openPostgres(ctx, sc, log)
		if err != nil && sc.MemoryFallback {
			log.Error("postgres unavailable at startup, using in-memory fallback", logger.Err(err))
			return memory.NewAttendanceStore(), noop, nil
		}
	}
	if err != nil {
		return nil, noop, err
	}

	if !sc.MemoryFallback {
		return remote, closer, nil
	}

	breaker := circuitbreaker.StoreBreaker(sc.Backend, func(name string, from, to circuitbreaker.State) {
		log.Warn("store circuit breaker state changed",
			logger.String("breaker", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	})
	return failover.New(remote, memory.NewAttendanceStore(), breaker, log), closer, nil
}

func openRedis(sc config.StoreConfig, log *logger.Logger) (attendance.Store, func(), error) {
	rc := redis.DefaultConfig()
	rc.URL = sc.RedisURL
	rc.PoolSize = sc.RedisPoolSize
	rc.MinIdleConns = sc.RedisMinIdleConns
	rc.DialTimeout = sc.RedisDialTimeout
	rc.ReadTimeout = sc.RedisReadTimeout
	rc.WriteTimeout = sc.RedisWriteTimeout

	client, err := redis.NewClient(rc)
	if err != nil {
		if !sc.MemoryFallback {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Warn("redis unreachable at startup, serving from fallback until it recovers", logger.Err(err))
		if client, err = redis.NewLazyClient(rc); err != nil {
			return nil, nil, fmt.Errorf("redis config: %w", err)
		}
	} else {
		log.Info("redis connection established")
	}

	closer := func() {
		log.Info("closing redis connection")
		_ = client.Close()
	}
	return redis.NewAttendanceStore(client), closer, nil
}

func openPostgres(ctx context.Context, sc config.StoreConfig, log *logger.Logger) (attendance.Store, func(), error) {
	connectCtx, cancel := context.WithTimeout(ctx, sc.DBConnTimeout)
	defer cancel()

	opts := postgres.DefaultPoolOptions()
	opts.MaxConns = int32(sc.DBMaxConns)
	conn, err := postgres.NewConnectionFromURL(connectCtx, sc.DatabaseURL, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("database connection established")

	if sc.AutoMigrate {
		migrator := postgres.NewMigrator(conn)
		if err := migrator.Migrate(ctx); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		if status, err := migrator.Status(ctx); err == nil {
			applied := 0
			for _, m := range status {
				if m.IsApplied {
					applied++
				}
			}
			log.Info("migrations completed", logger.Int("applied", applied), logger.Int("total", len(status)))
		}
	}

	closer := func() {
		log.Info("closing database connection")
		conn.Close()
	}
	return postgres.NewAttendanceStore(conn), closer, nil
}
