package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smsgate/internal/config"
	"smsgate/internal/constants"
	"smsgate/internal/database"
	"smsgate/internal/delivery"
	"smsgate/internal/models"
	"smsgate/internal/retry"
	"smsgate/internal/service"
	"smsgate/internal/tracing"
	"smsgate/pkg/circuitbreaker"
	"smsgate/pkg/discord"
	"smsgate/pkg/telerivet"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging (includes phone numbers and message content)")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("smsgate %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting smsgate")

	cfg, err := config.LoadConfig(*configPath, logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	configureLogLevel(logger, cfg.LogLevel, *verbose)

	tracingManager := tracing.NewTracingManager(cfg.Tracing, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	db, err := openJournal(ctx, cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database after retries: %w", err)
	}
	var journal service.StatusJournal
	if db != nil {
		defer db.Close()
		journal = db
	}

	strategy, push, pull := buildDelivery(cfg, logger)
	logger.WithFields(logrus.Fields{
		service.LogFieldMode: strategy.Mode(),
		"aliases":            len(cfg.Aliases),
		"allowed_numbers":    len(cfg.Access.AllowedNumbers),
	}).Info("Delivery strategy selected")

	readiness := service.NewReadiness()
	dispatcher := service.NewDispatcher(cfg.Server.DispatchBacklog, logger)
	inbound := service.NewInboundRelay(cfg.SMS.DestinationNumber, cfg.Discord.GuildID, strategy, logger)

	adapter, err := discord.NewAdapter(cfg.Discord.BotToken, readiness, inbound, logger)
	if err != nil {
		return fmt.Errorf("failed to create chat adapter: %w", err)
	}

	resolver := service.NewResolver(cfg.Aliases, adapter, logger)
	outbound := service.NewOutboundRelay(resolver, adapter, readiness, logger)
	gateway := service.NewGateway(service.NewAccessGate(cfg.Access.AllowedNumbers), dispatcher, outbound, logger)
	status := service.NewStatusRecorder(journal, logger)

	server := NewServer(cfg, gateway, pull, status, readiness, logger, *verbose)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return dispatcher.Run(gctx)
	})
	group.Go(func() error {
		return adapter.Start(service.WithVerbose(gctx, *verbose))
	})
	group.Go(func() error {
		return server.limiter.Run(gctx, time.Duration(constants.DefaultRateLimitCleanupSec)*time.Second)
	})
	group.Go(func() error {
		if err := server.Start(); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		logger.Info("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server gracefully: %w", err)
		}
		if push != nil {
			if err := push.Wait(shutdownCtx); err != nil {
				logger.WithError(err).Warn("Abandoned in-flight SMS sends at shutdown")
			}
		}
		if pull != nil && pull.Pending() > 0 {
			logger.WithField(service.LogFieldCount, pull.Pending()).Warn("Undelivered SMS left in pull queue at shutdown")
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		logger.WithError(err).Error("Shutdown after failure")
		return err
	}

	logger.Info("Server shutdown completed")
	return nil
}

func configureLogLevel(logger *logrus.Logger, configured string, verbose bool) {
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
		logger.Info("Verbose logging enabled - phone numbers and message content will be logged")
		return
	}
	if configured == "" {
		logger.SetLevel(logrus.InfoLevel)
		return
	}
	level, err := logrus.ParseLevel(configured)
	if err != nil {
		logger.Warnf("Invalid log level %q, defaulting to info", configured)
		logger.SetLevel(logrus.InfoLevel)
		return
	}
	// Debug output can carry personal data; only -verbose enables it.
	if level > logrus.InfoLevel {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

// openJournal opens the status journal when a path is configured. A nil
// database with a nil error means journaling is off.
func openJournal(ctx context.Context, path string, logger *logrus.Logger) (*database.Database, error) {
	if path == "" {
		return nil, nil
	}

	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		MaxAttempts:  constants.DefaultDatabaseRetryAttempts,
		Jitter:       true,
	})

	var db *database.Database
	err := backoff.Retry(ctx, func() error {
		var initErr error
		db, initErr = database.New(path)
		if initErr != nil {
			logger.Warnf("Failed to initialize database: %v", initErr)
		}
		return initErr
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// buildDelivery returns the configured strategy plus the concrete value the
// server and shutdown path need. Exactly one of push and pull is non-nil.
func buildDelivery(cfg *models.Config, logger *logrus.Logger) (delivery.Strategy, *delivery.Push, *delivery.Pull) {
	if cfg.Delivery.Mode == models.DeliveryModePull {
		pull := delivery.NewPull(delivery.NewQueue(cfg.Delivery.QueueCapacity), logger)
		return pull, nil, pull
	}

	client := telerivet.NewClient(
		cfg.SMS.APIBaseURL,
		cfg.SMS.APIKey,
		cfg.SMS.ProjectID,
		cfg.SMS.PhoneID,
		time.Duration(cfg.SMS.TimeoutSec)*time.Second,
		nil,
		logger,
	)
	push := delivery.NewPush(guardSender(cfg, client, logger), delivery.PushConfig{
		MaxAttempts: cfg.Delivery.MaxAttempts,
		RetryDelay:  time.Duration(cfg.Delivery.RetryDelayMs) * time.Millisecond,
		Workers:     cfg.Delivery.Workers,
	}, logger)
	return push, push, nil
}

// guardSender wraps the transport in a circuit breaker when
// delivery.breaker_threshold is positive. The breaker is off by default so
// every attempt of a message reaches the transport.
func guardSender(cfg *models.Config, sender delivery.Sender, logger *logrus.Logger) delivery.Sender {
	if cfg.Delivery.BreakerThreshold <= 0 {
		return sender
	}
	breaker := circuitbreaker.New("telerivet", uint32(cfg.Delivery.BreakerThreshold),
		time.Duration(cfg.Delivery.BreakerCooldownSec)*time.Second, logger)
	return delivery.NewGuardedSender(sender, breaker)
}
