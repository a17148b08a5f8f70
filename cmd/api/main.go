// Package main is the entrypoint for the Hireline API server.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"

	"github.com/hireline/hireline/internal/alert"
	"github.com/hireline/hireline/internal/analytics"
	"github.com/hireline/hireline/internal/auth"
	"github.com/hireline/hireline/internal/cache"
	"github.com/hireline/hireline/internal/config"
	"github.com/hireline/hireline/internal/events"
	"github.com/hireline/hireline/internal/handler"
	"github.com/hireline/hireline/internal/mailer"
	"github.com/hireline/hireline/internal/metrics"
	"github.com/hireline/hireline/internal/middleware"
	"github.com/hireline/hireline/internal/repository"
	"github.com/hireline/hireline/internal/server"
	"github.com/hireline/hireline/internal/service"
)

func main() {
	// Initialize context
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL, cfg.ConnectMaxElapsed)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// The email outbox runs on its own database/sql pool.
	mailDB, err := openMailDB(ctx, cfg)
	if err != nil {
		logger.Error(
			"failed to open mail database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer mailDB.Close()

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	recorder := metrics.NewInMemory()

	// Domain events go to Kafka when brokers are configured.
	var publisher events.Publisher = events.NoopPublisher{}
	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, logger, recorder)
		if err != nil {
			logger.Error("failed to create event producer", "error", err)
			os.Exit(1)
		}
		publisher = producer
		logger.Info("publishing domain events", "topic", cfg.KafkaTopic, "brokers", len(cfg.KafkaBrokers))
	}

	// Initialize services
	emailRepo := mailer.NewRepository(mailDB)
	mail := mailer.New(emailRepo, logger, recorder)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	viewRepo := repository.NewJobViewRepository(repo)
	viewPublisher := analytics.NewPublisher(cacheClient.Client(), logger, recorder)

	userService := service.NewUserService(repo, cacheClient, tokens, mail, logger)
	companyService := service.NewCompanyService(repo, cacheClient, logger)
	jobService := service.NewJobService(repo, cacheClient, viewPublisher, publisher, recorder, logger)
	applicationService := service.NewApplicationService(repo, mail, publisher, recorder, logger)
	resumeService := service.NewResumeService(repo, publisher, logger)
	folderService := service.NewFolderService(repo, logger)
	searchService := service.NewSearchService(repo, logger)
	emailService := service.NewEmailService(emailRepo, logger)
	invoiceService := service.NewInvoiceService(repo, mail, publisher, logger)
	analyticsService := service.NewAnalyticsService(jobService, repo, viewRepo, logger)
	apiKeyService := service.NewAPIKeyService(repo, cacheClient, logger)
	adminService := service.NewAdminService(repo, emailRepo, logger)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	healthHandler.AddCheck("mail_db", handler.HealthCheckerFunc(mailDB.PingContext))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()
	corsCfg.AllowCredentials = cfg.CORSAllowCredentials

	// Setup router
	r := handler.NewRouter(handler.RouterConfig{
		Logger: logger,
		Auth: middleware.AuthConfig{
			Logger: logger,
			Store:  repo,
			Cache:  cacheClient,
			Tokens: tokens,
		},
		RateLimit: middleware.RateLimitConfig{
			Logger:     logger,
			Limiter:    cacheClient,
			APIEnabled: cfg.RateLimitAPIEnabled,
			IPEnabled:  cfg.RateLimitIPEnabled,
			IPRPS:      cfg.RateLimitIPRPS,
			IPBurst:    cfg.RateLimitIPBurst,
		},
		Security: middleware.SecurityConfig{
			IsDevelopment:      cfg.IsDevelopment(),
			MaxRequestBodySize: cfg.MaxRequestBodySize,
		},
		CORS: corsCfg,

		Health:       healthHandler,
		Metrics:      handler.NewMetricsHandler(recorder),
		Users:        handler.NewUserHandler(userService, logger),
		Companies:    handler.NewCompanyHandler(companyService, logger),
		Jobs:         handler.NewJobHandler(jobService, applicationService, logger),
		Analytics:    handler.NewAnalyticsHandler(analyticsService, logger),
		Applications: handler.NewApplicationHandler(applicationService, logger),
		Resumes:      handler.NewResumeHandler(resumeService, logger),
		Folders:      handler.NewFolderHandler(folderService, logger),
		Searches:     handler.NewSearchHandler(searchService, logger),
		Emails:       handler.NewEmailHandler(emailService, logger),
		Invoices:     handler.NewInvoiceHandler(invoiceService, logger),
		APIKeys:      handler.NewAPIKeyHandler(apiKeyService, logger),
		Admin:        handler.NewAdminHandler(adminService, apiKeyService, cfg.AppVersion, logger),
	})

	// Create and run server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Producer is registered first so it shuts down after the workers that
	// may still publish.
	if producer != nil {
		srv.OnShutdown("event-producer", producer.Shutdown)
	}

	if cfg.AnalyticsWorkerEnabled {
		worker := analytics.NewWorker(cacheClient.Client(), viewRepo, logger, recorder, analytics.WorkerOptions{
			ConsumerID: analytics.NewConsumerID(),
			BatchSize:  cfg.AnalyticsBatchSize,
			ClaimIdle:  cfg.AnalyticsClaimIdle,
		})
		srv.OnShutdown("analytics-worker", startWorker(logger, "analytics-worker", worker.Run))
	}

	if cfg.MailerWorkerEnabled && cfg.MailRelayURL != "" {
		worker := mailer.NewWorker(emailRepo, mailer.WorkerConfig{
			RelayURL:    cfg.MailRelayURL,
			RelaySecret: cfg.MailRelaySecret,
			From:        cfg.MailFrom,
		}, logger, recorder)
		worker.SetPollInterval(cfg.MailerPollInterval)
		srv.OnShutdown("mailer-worker", startWorker(logger, "mailer-worker", worker.Run))
	} else if cfg.MailerWorkerEnabled {
		logger.Warn("mail relay not configured; emails stay queued")
	}

	if cfg.AlertWorkerEnabled {
		scheduler := alert.NewScheduler(repo, mail, logger, recorder)
		scheduler.SetPollInterval(cfg.AlertPollInterval)
		srv.OnShutdown("alert-scheduler", startWorker(logger, "alert-scheduler", scheduler.Run))
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"version", cfg.AppVersion,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// startWorker runs a blocking worker loop in the background and returns a
// shutdown hook that cancels it and waits for it to return.
func startWorker(logger *slog.Logger, name string, run func(context.Context) error) server.ShutdownFunc {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- run(ctx)
	}()
	logger.Info("worker started", "name", name)

	return func(shutdownCtx context.Context) error {
		cancel()
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		case <-shutdownCtx.Done():
			return fmt.Errorf("%s did not stop: %w", name, shutdownCtx.Err())
		}
	}
}

// openMailDB opens the lib/pq pool used by the email outbox and waits for
// it to answer. It shares DATABASE_URL with the pgx pool minus the pool_*
// settings.
func openMailDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	dsn, err := repository.DriverURL(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = cfg.ConnectMaxElapsed

	ping := func() error { return db.PingContext(ctx) }
	if err := backoff.Retry(ping, backoff.WithContext(bo, ctx)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping mail database: %w", err)
	}
	return db, nil
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", "hireline")
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
