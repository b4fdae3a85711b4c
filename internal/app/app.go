// Package app wires configuration, storage, messaging, and the HTTP
// server into a runnable rewards service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/lumistore/rewards/internal/config"
	"github.com/lumistore/rewards/internal/event"
	handler "github.com/lumistore/rewards/internal/handler/http"
	"github.com/lumistore/rewards/internal/repository"
	"github.com/lumistore/rewards/internal/repository/cache"
	"github.com/lumistore/rewards/internal/repository/memory"
	"github.com/lumistore/rewards/internal/repository/postgres"
	"github.com/lumistore/rewards/internal/scheduler"
	"github.com/lumistore/rewards/internal/service"
	"github.com/lumistore/rewards/migrations"
	"github.com/lumistore/rewards/pkg/database"
	"github.com/lumistore/rewards/pkg/health"
	pkgkafka "github.com/lumistore/rewards/pkg/kafka"
)

// App wires together all dependencies and runs the rewards service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	redis      *redis.Client
	producer   *pkgkafka.Producer
	sched      *scheduler.Scheduler
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	healthHandler := health.NewHandler()

	var (
		programs  repository.ProgramRepository
		rules     repository.RuleRepository
		customers repository.CustomerRepository
		spins     repository.SpinRepository
		coupons   repository.CouponRepository
	)

	var pool *pgxpool.Pool
	switch cfg.Storage {
	case "memory":
		store := memory.NewStore()
		programs, rules, customers, spins, coupons = store, store, store, store, store
		logger.Warn("using in-memory storage; state is lost on restart")
	default:
		pgCfg := database.PostgresConfig{
			Host:            cfg.PostgresHost,
			Port:            cfg.PostgresPort,
			User:            cfg.PostgresUser,
			Password:        cfg.PostgresPass,
			DBName:          cfg.PostgresDB,
			SSLMode:         cfg.PostgresSSL,
			MaxConns:        25,
			MinConns:        5,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		}

		var err error
		pool, err = database.NewPostgresPool(ctx, &pgCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.PostgresHost),
			slog.Int("port", cfg.PostgresPort),
			slog.String("database", cfg.PostgresDB),
		)

		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}

		programs = postgres.NewProgramRepository(pool)
		rules = postgres.NewRuleRepository(pool)
		customers = postgres.NewCustomerRepository(pool)
		spins = postgres.NewSpinRepository(pool)
		coupons = postgres.NewCouponRepository(pool)

		healthHandler.Register("postgres", func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
		prometheus.MustRegister(database.NewPoolStatsCollector(pool, "rewards"))
	}

	// Optional Redis read-through cache over the program and rule catalog.
	var redisClient *redis.Client
	if cfg.CacheEnabled {
		var err error
		redisClient, err = database.NewRedisClient(ctx, database.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			if pool != nil {
				pool.Close()
			}
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("catalog cache enabled",
			slog.String("addr", fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort)),
			slog.Duration("ttl", cfg.CacheTTL),
		)

		catalog := cache.NewCatalog(programs, rules, redisClient, cfg.CacheTTL, logger)
		programs, rules = catalog, catalog

		healthHandler.Register("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	// Kafka producer for domain events.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	healthHandler.Register("kafka", producer.Ping)

	// Build the dependency graph.
	eventProducer := event.NewProducer(producer, logger)
	spinService := service.NewSpinService(programs, customers, spins, eventProducer, logger)
	couponService := service.NewCouponService(coupons, eventProducer, logger)
	ruleService := service.NewRuleService(rules, customers, coupons, eventProducer, logger)

	var sched *scheduler.Scheduler
	if cfg.SchedulerEnabled {
		var err error
		sched, err = scheduler.New(ruleService, couponService, logger)
		if err != nil {
			if pool != nil {
				pool.Close()
			}
			return nil, fmt.Errorf("create scheduler: %w", err)
		}
	}

	router := handler.NewRouter(spinService, couponService, ruleService, healthHandler, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		redis:      redisClient,
		producer:   producer,
		sched:      sched,
		httpServer: httpServer,
	}, nil
}

// Run starts the background jobs and HTTP server and blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	if a.sched != nil {
		a.sched.Start()
	}

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if a.sched != nil {
		if err := a.sched.Stop(); err != nil {
			a.logger.Error("scheduler shutdown error", slog.String("error", err.Error()))
		}
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}

	a.logger.Info("application shutdown complete")
	return nil
}
