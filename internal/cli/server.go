package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"vocab-tiers-service/internal/app"
	"vocab-tiers-service/internal/scheduler"
	transport "vocab-tiers-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the vocabulary server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, logger, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	catalogs := b.catalogs(cfg)
	if _, err := catalogs.Catalog(ctx); err != nil {
		return err
	}
	progress := app.NewProgressService(catalogs, b.ledgers(), logger)
	questions := cfg.Quiz.DefaultQuestions
	if questions == 0 {
		questions = 10
	}
	quizzes := app.NewQuizService(progress, b.sessions(cfg), questions, logger)

	jobs := scheduler.New(progress, cfg.CloseAt(), cfg.Location(), logger)
	if err := jobs.Start(); err != nil {
		return err
	}
	defer jobs.Stop()

	router := transport.NewRouter(
		transport.NewAPI(progress, quizzes, b.speech(cfg), logger),
		transport.NewWSHandler(quizzes, logger),
	)
	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.WithRequestLog(router, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting vocab service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
