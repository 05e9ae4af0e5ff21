package infrastructure

import (
	"fmt"
	"strings"
	"time"

	"traced-user-service/internal/adapter/db/gormtrace"
	"traced-user-service/internal/config"
	"traced-user-service/pkg/logger"

	"github.com/glebarez/sqlite"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewDatabase opens the database selected by DATABASE_URL, configures the
// connection pool and installs statement tracing.
func NewDatabase(cfg *config.Config, tp trace.TracerProvider, l *zap.Logger) (*gorm.DB, error) {
	gormLogger := logger.NewGormLogger(l, cfg.Logger.SlowQuerySeconds, cfg.Logger.Level)

	dialector, driver := dialectorFor(&cfg.DB)
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Use(gormtrace.New(tp)); err != nil {
		_ = CloseDatabase(db)
		return nil, fmt.Errorf("failed to install tracing plugin: %w", err)
	}

	// Get underlying sql.DB for connection pool configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	pool := poolSettingsFor(&cfg.DB, driver)
	sqlDB.SetMaxOpenConns(pool.maxOpen)
	sqlDB.SetMaxIdleConns(pool.maxIdle)
	sqlDB.SetConnMaxLifetime(pool.maxLifetime)
	sqlDB.SetConnMaxIdleTime(pool.maxIdleTime)

	l.Info("database connected successfully",
		zap.String("driver", driver),
		zap.Int("max_open_conns", pool.maxOpen),
		zap.Int("max_idle_conns", pool.maxIdle),
		zap.Duration("conn_max_lifetime", pool.maxLifetime),
		zap.Duration("conn_max_idle_time", pool.maxIdleTime),
	)

	return db, nil
}

type poolSettings struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
	maxIdleTime time.Duration
}

// poolSettingsFor returns the pool limits from config. An in-memory SQLite
// database lives only as long as its connection, so it gets exactly one
// connection that is never closed by the pool.
func poolSettingsFor(cfg *config.DatabaseConfig, driver string) poolSettings {
	if driver == "sqlite" && strings.Contains(cfg.SQLitePath(), ":memory:") {
		return poolSettings{maxOpen: 1, maxIdle: 1}
	}
	return poolSettings{
		maxOpen:     cfg.MaxOpenConns,
		maxIdle:     cfg.MaxIdleConns,
		maxLifetime: time.Duration(cfg.ConnMaxLifetime) * time.Second,
		maxIdleTime: time.Duration(cfg.ConnMaxIdleTime) * time.Second,
	}
}

func dialectorFor(cfg *config.DatabaseConfig) (gorm.Dialector, string) {
	if cfg.IsSQLite() {
		return sqlite.Open(cfg.SQLitePath()), "sqlite"
	}
	return pgdriver.Open(cfg.URL), "postgres"
}

// CloseDatabase closes the database connection
func CloseDatabase(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}
