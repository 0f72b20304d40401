package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"quiz-platform/internal/config"
	"quiz-platform/internal/logger"
)

// NewLeaderboardsCmd groups the leaderboard maintenance commands.
func NewLeaderboardsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboards",
		Short: "Maintain leaderboards",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the built-in leaderboards and compute their rankings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), *configPath, func(ctx context.Context, c *container) error {
				boards, err := c.leaderboards.InitializeSystem(ctx)
				if err != nil {
					return err
				}
				for _, lb := range boards {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%d entries\n", lb.ID, lb.Type, lb.Name, lb.EntriesCount)
				}
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "recompute [leaderboard-id]",
		Short: "Recompute one leaderboard, or every active one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), *configPath, func(ctx context.Context, c *container) error {
				if len(args) == 0 {
					return c.leaderboards.RecomputeAll(ctx)
				}
				lb, err := c.leaderboards.Recompute(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d entries\n", lb.ID, lb.Name, lb.EntriesCount)
				return nil
			})
		},
	})
	return cmd
}

func withContainer(ctx context.Context, configPath string, fn func(context.Context, *container) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.New(cfg)
	c, err := newContainer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(ctx, c)
}
