package cli

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"quiz-platform/internal/config"
	"quiz-platform/internal/infra/postgres"
	"quiz-platform/internal/logger"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), *configPath)
		},
	}
}

func runMigrations(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return errors.New("postgres url not configured")
	}
	log := logger.New(cfg)

	db, err := postgres.OpenDB(ctx, cfg.Postgres.URL, 1, log, cfg.Logging.SlowQueryThreshold)
	if err != nil {
		return err
	}
	defer db.Close()

	group, err := postgres.Migrate(ctx, db)
	if err != nil {
		return err
	}
	if group.IsZero() {
		log.Info().Msg("no new migrations to run")
		return nil
	}
	log.Info().Str("group", group.String()).Msg("migrations applied")
	return nil
}
