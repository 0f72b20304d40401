package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
)

//go:embed 2024120101_active_attempt_index.up.sql
var activeAttemptIndexSQL string

//go:embed 2024120101_active_attempt_index.down.sql
var dropActiveAttemptIndexSQL string

// One IN_PROGRESS attempt per user and quiz.
func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, activeAttemptIndexSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, dropActiveAttemptIndexSQL)
			return err
		},
	)
}
