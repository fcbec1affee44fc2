package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/inventory-queue/internal/config"
	"github.com/andresuchdata/inventory-queue/internal/domain"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"

	defaultMaxConcurrent = 10
)

// DB wraps the transaction source connection pool and bounds concurrent reads.
type DB struct {
	*sqlx.DB
	sem *semaphore.Weighted
}

// Open connects to the transaction source selected by cfg.Driver.
func Open(cfg config.SourceConfig) (*DB, error) {
	driver, dsn, err := dataSource(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %v", domain.ErrSourceUnavailable, driver, err)
	}

	// Configure connection pool
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	limit := cfg.MaxConcurrent
	if limit <= 0 {
		limit = defaultMaxConcurrent
	}

	log.Info().Str("driver", driver).Int64("max_concurrent", limit).Msg("transaction source connected")

	return &DB{
		DB:  db,
		sem: semaphore.NewWeighted(limit),
	}, nil
}

func dataSource(cfg config.SourceConfig) (string, string, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverSQLite, "sqlite":
		if cfg.SQLitePath == "" {
			return "", "", fmt.Errorf("%w: sqlite path is empty", domain.ErrSourceUnavailable)
		}
		// The log is read-only input
		return DriverSQLite, "file:" + cfg.SQLitePath + "?mode=ro", nil
	case DriverPostgres:
		return DriverPostgres, fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode), nil
	case DriverPgx:
		if cfg.URL == "" {
			return "", "", fmt.Errorf("%w: DATABASE_URL is required for the pgx driver", domain.ErrSourceUnavailable)
		}
		return DriverPgx, cfg.URL, nil
	default:
		return "", "", fmt.Errorf("%w: unsupported driver %q", domain.ErrSourceUnavailable, cfg.Driver)
	}
}

// withPermit runs fn while holding one slot of the concurrency limit.
func (db *DB) withPermit(ctx context.Context, fn func() error) error {
	if err := db.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("could not acquire semaphore: %w", err)
	}
	defer db.sem.Release(1)

	return fn()
}
