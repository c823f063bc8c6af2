package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sanksan/tics/internal/ids"
	"github.com/sanksan/tics/internal/notifications"
	"github.com/sanksan/tics/internal/repl"
	"github.com/sanksan/tics/internal/shared/config"
	"github.com/sanksan/tics/internal/shared/database"
	"github.com/sanksan/tics/internal/venue"
	"github.com/sanksan/tics/pkg/logger"
	"github.com/sanksan/tics/pkg/ratelimit"
)

func main() {
	if err := run(); err != nil {
		logger.GetDefault().Error("Console failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	envErr := godotenv.Load()

	cfg := config.Load()

	// stdout carries command results, so logs go to stderr
	mode := "debug"
	if cfg.IsProduction() {
		mode = "release"
	}
	appLogger := logger.NewWithWriter(os.Stderr, cfg.LogLevel, mode)
	logger.SetDefault(appLogger)

	if envErr != nil {
		appLogger.Debug("No .env file found, using system environment variables")
	} else {
		appLogger.Debug("Loaded .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Hold ids: in-process by default, Redis when several consoles share an id space
	var holdIDs venue.HoldIDGenerator = ids.NewSequence(0)
	if cfg.UseRedisHoldIDs() {
		rdb, err := database.OpenRedis(ctx, cfg)
		if err != nil {
			appLogger.Error("Redis unavailable, using in-process hold ids", slog.Any("error", err))
		} else {
			defer rdb.Close()
			holdIDs = ids.NewRedisSequence(rdb, cfg.Redis.HoldIDKey)
		}
	}

	var publisher notifications.Publisher = notifications.NoopPublisher{}
	if cfg.Kafka.Enabled {
		kafkaCfg := notifications.DefaultKafkaPublisherConfig()
		kafkaCfg.Brokers = cfg.Kafka.Brokers
		kafkaCfg.Topic = cfg.Kafka.Topic

		kp, err := notifications.NewKafkaPublisher(kafkaCfg)
		if err != nil {
			appLogger.Error("Failed to initialize Kafka publisher, venue events disabled", slog.Any("error", err))
		} else {
			defer kp.Close()
			publisher = notifications.Shared(kp)
			appLogger.Info("Kafka publisher initialized",
				slog.Any("brokers", cfg.Kafka.Brokers),
				slog.String("topic", cfg.Kafka.Topic),
			)
		}
	}

	opts := []repl.Option{
		repl.WithLogger(appLogger),
		repl.WithDefaultHoldPeriod(cfg.Venue.HoldPeriod),
	}

	if cfg.RateLimit.Enabled {
		limiter := ratelimit.NewRateLimiter(ratelimit.Config{
			Enabled: true,
			RPS:     cfg.RateLimit.RPS,
			Burst:   cfg.RateLimit.Burst,
		})
		limiter.StartJanitor(ctx, 2*time.Minute)
		opts = append(opts, repl.WithRateLimiter(limiter))
		appLogger.Info("Hold rate limiting enabled",
			slog.Float64("rps", cfg.RateLimit.RPS),
			slog.Int("burst", cfg.RateLimit.Burst),
		)
	}

	factory := func(rows, columns int, holdPeriod time.Duration) (venue.Service, error) {
		v, err := venue.New(venue.Config{
			Rows:            rows,
			Columns:         columns,
			HoldPeriod:      holdPeriod,
			ReclaimInterval: cfg.Venue.ReclaimInterval,
		},
			venue.WithHoldIDs(holdIDs),
			venue.WithPublisher(publisher),
			venue.WithLogger(appLogger),
		)
		if err != nil {
			return nil, err
		}
		return v, nil
	}

	if cfg.HasVenue() {
		svc, err := factory(cfg.Venue.Rows, cfg.Venue.Columns, cfg.Venue.HoldPeriod)
		if err != nil {
			return fmt.Errorf("configured venue is invalid: %w", err)
		}
		opts = append(opts, repl.WithService(svc))
	}

	session := repl.NewSession(factory, os.Stdout, opts...)
	defer session.Close()

	// Unblock the scanner on SIGINT/SIGTERM
	go func() {
		<-ctx.Done()
		os.Stdin.Close()
	}()

	if err := session.Run(ctx, os.Stdin); err != nil && ctx.Err() == nil {
		return fmt.Errorf("console stopped: %w", err)
	}
	return nil
}
