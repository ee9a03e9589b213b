package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/api/handlers"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/api/middleware"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/config"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/jobs"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/logging"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/server"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the book question-answering API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides BOOKRAG_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().String("migrations-dir", defaultMigrationsDir, "Directory containing migration files")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	logger := logging.MustNew(cfg.Debug)
	defer logger.Sync() //nolint:errcheck

	// 10% sampling in production, everything in development
	sampleRate := 0.1
	if cfg.Environment == "development" {
		sampleRate = 1.0
	}
	flush, _ := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
		Logger:           logger,
	})
	defer flush()

	if noMigrate, _ := cmd.Flags().GetBool("no-migrate"); !noMigrate {
		dir, _ := cmd.Flags().GetString("migrations-dir")
		if err := runMigrations(cfg.DatabaseURL, dir, logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		if cfg.HasSeparateVectorDatabase() {
			if err := runMigrations(cfg.VectorDatabaseURL, dir, logger); err != nil {
				return fmt.Errorf("failed to run vector database migrations: %w", err)
			}
		}
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var auditWorker *jobs.Worker
	if cfg.AuditInterval > 0 {
		auditWorker = jobs.NewWorker(jobs.NewAuditWorker(a.audit, logger), cfg.AuditInterval, logger, jobs.WithRunOnStart())
		go auditWorker.Start(ctx)
	}

	router := server.NewRouter(server.RouterConfig{
		RAGHandler:    handlers.NewRAGHandler(a.answers, a.stats),
		ChatHandler:   handlers.NewChatHandler(a.chat),
		HealthHandler: handlers.NewHealthHandler(a.readiness, logger),
		RateLimiter:   middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		CORSOrigins:   cfg.CORSOrigins,
		TrustedProxy:  cfg.TrustedProxy,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			stop()
			if auditWorker != nil {
				auditWorker.Stop()
			}
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	if auditWorker != nil {
		auditWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}
