// Package postgres implements the repositories on PostgreSQL: CRUD through bun,
// aggregate reads (leaderboard scores, answer keys) through a pgx pool.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quiz-platform/internal/infra/postgres/migrations"
	"quiz-platform/internal/logger"
)

const pingTimeout = 10 * time.Second

// OpenDB opens the bun handle used by the CRUD repositories.
func OpenDB(ctx context.Context, url string, maxOpenConns int, log zerolog.Logger, slowQuery time.Duration) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(url)))
	if maxOpenConns > 0 {
		sqldb.SetMaxOpenConns(maxOpenConns)
		sqldb.SetMaxIdleConns(maxOpenConns)
	}
	db := bun.NewDB(sqldb, pgdialect.New())
	db.AddQueryHook(logger.NewQueryHook(log, slowQuery))

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return db, nil
}

// OpenPool opens the pgx pool used for aggregate queries.
func OpenPool(ctx context.Context, url string, log zerolog.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse pgx pool config")
	}
	cfg.ConnConfig.Logger, cfg.ConnConfig.LogLevel = logger.PgxLogger(log)

	pool, err := pgxpool.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect pgx pool")
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping pgx pool")
	}
	return pool, nil
}

// Migrate applies every pending migration and returns the applied group.
func Migrate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, errors.Wrap(err, "init migrations")
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "apply migrations")
	}
	return group, nil
}
