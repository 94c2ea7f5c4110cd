// Package main provides the entry point for the peer review service server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/helixir/peer-review-service/internal/config"
	"github.com/helixir/peer-review-service/internal/database"
	"github.com/helixir/peer-review-service/internal/docstore"
	"github.com/helixir/peer-review-service/internal/identity"
	"github.com/helixir/peer-review-service/internal/lifecycle"
	"github.com/helixir/peer-review-service/internal/notify"
	"github.com/helixir/peer-review-service/internal/observability"
	"github.com/helixir/peer-review-service/internal/repository"
	httpserver "github.com/helixir/peer-review-service/internal/server/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("peer-review-service server starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	// Run migrations if configured.
	if cfg.Database.MigrationAutoRun {
		migrator, err := database.NewMigrator(db, cfg.Database.MigrationPath, logger)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		defer func() {
			if closeErr := migrator.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close migrator")
			}
		}()

		if err := migrator.Up(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	// Create repositories.
	articleRepo := repository.NewPgArticleRepository(db)
	reviewerRepo := repository.NewPgReviewerRepository(db)
	journalRepo := repository.NewPgJournalRepository(db)

	// Open the document store.
	docs, err := docstore.New(docstore.Config{
		Root:    cfg.Storage.Root,
		MaxSize: cfg.Storage.MaxManuscriptSize,
	})
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	logger.Info().Str("root", cfg.Storage.Root).Msg("document store ready")

	// Metrics registry.
	metrics := observability.NewMetrics("peerreview")

	// Notification channels per configuration.
	var channels []notify.Channel
	if cfg.SMTP.Enabled {
		mailer, err := notify.NewMailer(notify.MailerConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			Sender:   cfg.SMTP.Sender,
			Timeout:  cfg.SMTP.Timeout,
		})
		if err != nil {
			return fmt.Errorf("create mailer: %w", err)
		}
		channels = append(channels, mailer)
		logger.Info().Str("host", cfg.SMTP.Host).Msg("smtp notifications enabled")
	}
	var kafkaPublisher *notify.KafkaPublisher
	if cfg.Kafka.Enabled {
		kafkaPublisher, err = notify.NewKafkaPublisher(notify.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		})
		if err != nil {
			return fmt.Errorf("create kafka publisher: %w", err)
		}
		channels = append(channels, kafkaPublisher)
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka publishing enabled")
	}

	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{
		Workers:    cfg.Notify.Workers,
		QueueSize:  cfg.Notify.QueueSize,
		RateLimit:  cfg.Notify.RateLimit,
		RateBurst:  cfg.Notify.RateBurst,
		MaxRetries: cfg.Notify.MaxRetries,
		RetryDelay: cfg.Notify.RetryDelay,
	}, channels, logger, metrics)
	dispatcher.Start()

	// Lifecycle service.
	svc := lifecycle.New(articleRepo, reviewerRepo, journalRepo, docs, dispatcher, logger, metrics)

	// Bearer token authentication.
	var authMiddleware func(http.Handler) http.Handler
	if cfg.Auth.Enabled {
		verifier := identity.NewVerifier(cfg.Auth.Secret, cfg.Auth.Issuer)
		authMiddleware = identity.Authenticate(verifier)
		logger.Info().Str("issuer", cfg.Auth.Issuer).Msg("bearer token authentication enabled")
	} else {
		logger.Warn().Msg("authentication is disabled")
	}

	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}

	httpSrv := httpserver.NewServer(httpCfg, svc, db, logger, authMiddleware)

	// Set up Prometheus metrics handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 2)

	// Start HTTP REST API server in background.
	go func() {
		logger.Info().
			Str("address", httpCfg.Address).
			Msg("HTTP REST API server starting")
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Start metrics server if configured.
	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("peer-review-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down peer-review-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Shut down HTTP REST API server with timeout.
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// Shut down metrics server if running.
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	// Drain queued notifications before exit.
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("notification dispatcher shutdown error")
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error().Err(err).Msg("kafka publisher close error")
		}
	}

	logger.Info().Msg("peer-review-service shutdown complete")
	return nil
}
