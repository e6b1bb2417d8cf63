package config

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Execer is the subset of *pgxpool.Pool needed to apply migrations
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// ConnectDB establishes a connection pool to PostgreSQL, retrying while the database starts up
func ConnectDB(ctx context.Context, cfg DBConfig, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.HealthCheckPeriod = 30 * time.Second

	maxRetries := 5
	retryInterval := 5 * time.Second

	var pool *pgxpool.Pool
	for i := 0; i < maxRetries; i++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				log.Info().Str("host", cfg.Host).Str("database", cfg.Name).Msg("connected to postgres")
				return pool, nil
			}
			pool.Close()
		}
		log.Warn().Err(err).
			Int("attempt", i+1).
			Int("max_attempts", maxRetries).
			Dur("retry_in", retryInterval).
			Msg("failed to connect to postgres")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return nil, fmt.Errorf("unable to connect to database after %d attempts: %w", maxRetries, err)
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	phone TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL CHECK (role IN ('farmer', 'consumer', 'admin')),
	verified BOOLEAN NOT NULL DEFAULT FALSE,
	verified_at TIMESTAMP WITH TIME ZONE,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_users_phone_role ON users(phone, role);
CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at DESC);
`

// AutoMigrate creates tables if they don't exist
func AutoMigrate(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("unable to apply migrations: %w", err)
	}
	return nil
}
