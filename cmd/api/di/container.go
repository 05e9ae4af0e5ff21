package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"traced-user-service/cmd/api/infrastructure"
	"traced-user-service/internal/adapter/cache"
	"traced-user-service/internal/adapter/db/postgres"
	ginhandler "traced-user-service/internal/adapter/gin/handler"
	"traced-user-service/internal/adapter/gin/middleware"
	"traced-user-service/internal/adapter/repository/cached"
	"traced-user-service/internal/config"
	"traced-user-service/internal/usecase/user"
	redisclient "traced-user-service/pkg/redis"
	"traced-user-service/pkg/tracing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *zap.Logger
	TracerProvider *sdktrace.TracerProvider
	DB             *gorm.DB
	RedisClient    *redisclient.Client // nil unless REDIS_ENABLED
	UserRepo       *postgres.UserRepoPG
	UserUC         *user.Usecase
	GinHandler     *ginhandler.UserHandler
	Registry       *prometheus.Registry // nil unless METRICS_ENABLED
	Metrics        *middleware.Metrics
}

// NewContainer creates and initializes all application dependencies.
// Anything opened before a failure is closed again.
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (_ *Container, err error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	c := &Container{Config: cfg, Logger: l}
	defer func() {
		if err != nil {
			_ = c.Close(context.Background())
		}
	}()

	c.TracerProvider, err = infrastructure.NewTracerProvider(ctx, cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	c.DB, err = infrastructure.NewDatabase(cfg, c.TracerProvider, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	c.UserRepo = postgres.NewUserRepoPG(c.DB, l)
	var repo user.Repository = c.UserRepo

	if cfg.Redis.Enabled {
		c.RedisClient, err = infrastructure.NewRedisClient(ctx, cfg, l)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		userCache := cache.NewBreakerUserCache(
			cache.NewRedisUserCache(
				c.RedisClient.Client,
				time.Duration(cfg.Redis.CacheTTL)*time.Second,
				l,
			),
			cache.BreakerConfig{
				ConsecutiveFailures: uint32(cfg.Redis.BreakerFailures),
				Timeout:             time.Duration(cfg.Redis.BreakerTimeoutSeconds) * time.Second,
			},
			l,
		)
		repo = cached.NewUserRepository(c.UserRepo, userCache, l)
	}

	c.UserUC = user.New(repo, c.TracerProvider.Tracer(tracing.InstrumentationName), l)
	c.GinHandler = ginhandler.NewUserHandler(c.UserUC, l)

	if cfg.App.MetricsEnabled {
		c.Registry = prometheus.NewRegistry()
		c.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		c.Metrics, err = middleware.NewMetrics(c.Registry)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		sqlDB, err := c.DB.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
		if err := c.Registry.Register(collectors.NewDBStatsCollector(sqlDB, "users")); err != nil {
			return nil, fmt.Errorf("failed to register db stats: %w", err)
		}
	}

	return c, nil
}

// Close releases resources in reverse order of creation. Buffered spans are
// flushed before the database goes away so late SQL spans are not lost.
func (c *Container) Close(ctx context.Context) error {
	var errs []error

	if c.TracerProvider != nil {
		if err := c.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}

	// Close Redis connection
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	// Close database connection
	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	return errors.Join(errs...)
}
