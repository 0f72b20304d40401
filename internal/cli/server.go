package cli

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"quiz-platform/internal/auth"
	"quiz-platform/internal/config"
	"quiz-platform/internal/jobs"
	"quiz-platform/internal/logger"
	transport "quiz-platform/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if portFlag != "" {
		cfg.Server.Port = portFlag
	}
	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := newContainer(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize application")
		return err
	}
	defer c.Close()

	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		Issuer:       cfg.Auth.Issuer,
		Audience:     cfg.Auth.Audience,
		PublicKeyPEM: cfg.Auth.PublicKeyPEM,
		HMACSecret:   cfg.Auth.HMACSecret,
	})
	if err != nil {
		return err
	}

	if c.bus != nil {
		go func() {
			if err := c.bus.Run(ctx, c.hub); err != nil {
				log.Error().Err(err).Msg("leaderboard snapshot relay stopped")
			}
		}()
	}

	var worker *jobs.Worker
	if c.redis != nil {
		worker = jobs.NewWorker(c.redisConnOpt(), cfg.Jobs.Concurrency, c.processor, log)
		if err := worker.Start(); err != nil {
			return errors.Wrap(err, "start job worker")
		}
	}

	var scheduler *jobs.Scheduler
	if cfg.Leaderboard.Schedule != "" {
		scheduler, err = jobs.NewScheduler(cfg.Leaderboard.Schedule, c.processor, log)
		if err != nil {
			return err
		}
		scheduler.Start()
	}

	router := transport.NewRouter(
		transport.RouterConfig{CORSOrigins: cfg.Server.CORSOrigins},
		c.services,
		transport.NewAuthMiddleware(verifier, c.users, cfg.Auth.AdminRole),
		transport.NewHealthHandler(cfg.Env, c.healthChecks()),
		log,
	)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("env", cfg.Env).Msg("starting quiz API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("server failed")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	if worker != nil {
		worker.Stop()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return err
	}
	log.Info().Msg("server exited properly")
	return nil
}
