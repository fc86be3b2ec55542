package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"gymdesk/internal/adapters/cache"
	emailPkg "gymdesk/internal/adapters/email"
	"gymdesk/internal/adapters/events"
	web "gymdesk/internal/adapters/http"
	"gymdesk/internal/adapters/http/perf"
	"gymdesk/internal/adapters/storage"
	bookingStore "gymdesk/internal/adapters/storage/booking"
	classTypeStore "gymdesk/internal/adapters/storage/classtype"
	instructorStore "gymdesk/internal/adapters/storage/instructor"
	memberStore "gymdesk/internal/adapters/storage/member"
	notificationStore "gymdesk/internal/adapters/storage/notification"
	outboxStore "gymdesk/internal/adapters/storage/outbox"
	scheduleStore "gymdesk/internal/adapters/storage/schedule"
	waitlistStore "gymdesk/internal/adapters/storage/waitlist"
	"gymdesk/internal/application/orchestrators"
	"gymdesk/internal/config"
	"gymdesk/internal/telemetry"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("startup_failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(newLogger(cfg.App))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			slog.Warn("telemetry_event", "event", "shutdown_failed", "error", err)
		}
	}()

	db, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := storage.MigrateDB(ctx, db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Performance instrumentation: wrap DB with timing, create collector
	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector, cfg.Database.SlowQueryMs)

	bookings := bookingStore.NewSQLStore(timedDB)
	waitlist := waitlistStore.NewSQLStore(timedDB)
	members := memberStore.NewSQLStore(timedDB)

	if cfg.App.SeedDemo && !cfg.App.IsProduction() {
		res, err := orchestrators.ExecuteSeedDemo(ctx, orchestrators.DemoSeedDeps{
			ClassTypeStore:  classTypeStore.NewSQLStore(timedDB),
			InstructorStore: instructorStore.NewSQLStore(timedDB),
			ScheduleStore:   scheduleStore.NewSQLStore(timedDB),
			MemberStore:     members,
			BookingStore:    bookings,
			WaitlistStore:   waitlist,
			Now:             time.Now,
		})
		if err != nil {
			return fmt.Errorf("failed to seed demo data: %w", err)
		}
		slog.Info("seed_event", "event", "demo_seed", "skipped", res.Skipped,
			"schedules", res.Schedules, "members", res.Members, "bookings", res.Bookings)
	}

	emailSender := newEmailSender(cfg)
	outbox := outboxStore.NewSQLStore(timedDB)
	deps := web.Deps{
		BookingStore:      bookings,
		WaitlistStore:     waitlist,
		NotificationStore: notificationStore.NewSQLStore(timedDB),
		EmailSender:       emailSender,
		Outbox:            outbox,
		From: orchestrators.Sender{
			Name:    cfg.Email.FromName,
			Address: cfg.Email.FromAddress,
			ReplyTo: cfg.Email.ReplyTo,
		},
		Perf:       collector,
		DB:         timedDB,
		GenerateID: func() string { return uuid.New().String() },
		Now:        time.Now,
	}

	if cfg.Redis.Enabled() {
		calendarCache, err := cache.NewRedisCache(ctx, cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			return err
		}
		defer calendarCache.Close()
		deps.Cache = calendarCache
		slog.Info("cache_event", "event", "redis_enabled", "addr", cfg.Redis.Addr)
	}

	csrfKey, err := cfg.Auth.CSRFKeyBytes()
	if err != nil {
		return err
	}
	if csrfKey == nil {
		csrfKey = make([]byte, 32)
		if _, err := rand.Read(csrfKey); err != nil {
			return fmt.Errorf("failed to generate csrf key: %w", err)
		}
		slog.Warn("auth_event", "event", "ephemeral_csrf_key")
	}
	if cfg.Auth.TriggerKeyHash == "" {
		slog.Warn("auth_event", "event", "trigger_key_disabled")
	}

	server := web.NewServer(deps, web.Options{
		JWTSecret:          []byte(cfg.Auth.JWTSecret),
		TriggerKeyHash:     []byte(cfg.Auth.TriggerKeyHash),
		CSRFKey:            csrfKey,
		SecureCookies:      cfg.Auth.SecureCookies,
		TrustedOrigins:     cfg.Auth.TrustedOrigins,
		RateLimitPerSecond: cfg.Auth.RateLimitPerSecond,
		RateLimitBurst:     cfg.Auth.RateLimitBurst,
		SlowRequestMs:      cfg.Server.SlowRequestMs,
	})
	defer server.Close()

	if cfg.Kafka.Enabled() {
		consumer, err := events.NewConsumer(ctx, events.ConsumerConfig{
			Brokers:  cfg.Kafka.Brokers,
			GroupID:  cfg.Kafka.ConsumerGroup,
			ClientID: cfg.Kafka.ClientID,
			Topics: events.Topics{
				CapacityFreed: cfg.Kafka.CapacityFreedTopic,
				Cancelled:     cfg.Kafka.CancelledTopic,
			},
		}, server)
		if err != nil {
			return err
		}
		defer consumer.Close()
		go func() {
			if err := consumer.Run(ctx); err != nil {
				slog.Error("trigger_event", "event", "consumer_stopped", "error", err)
			}
		}()
	}

	if cfg.Email.RetryInterval > 0 {
		workerStopped := orchestrators.StartEmailOutboxWorker(ctx, orchestrators.RetryEmailOutboxDeps{
			OutboxStore: outbox,
			EmailSender: emailSender,
		}, cfg.Email.RetryInterval)
		defer func() {
			stop()
			<-workerStopped
		}()
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_event", "event", "listening",
			"addr", httpServer.Addr,
			"version", version,
			"env", cfg.App.Environment,
			"driver", cfg.Database.Driver,
			"schema", storage.LatestSchemaVersion(),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("server_event", "event", "shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// newLogger installs a JSON handler in production and text elsewhere.
func newLogger(app config.AppConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(app.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if app.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// newEmailSender picks Resend when an API key is configured.
func newEmailSender(cfg *config.Config) emailPkg.Sender {
	if cfg.Email.ResendAPIKey != "" {
		slog.Info("email_event", "event", "sender_configured", "provider", "resend")
		return emailPkg.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.FromAddress)
	}
	if cfg.App.IsProduction() {
		slog.Warn("email_event", "event", "sender_configured", "provider", "noop",
			"warning", "email delivery is disabled in production")
	} else {
		slog.Info("email_event", "event", "sender_configured", "provider", "noop")
	}
	return emailPkg.NewNoopSender()
}
