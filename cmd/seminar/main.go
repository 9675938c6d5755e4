package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/example/seminar-scheduler/internal/application"
	"github.com/example/seminar-scheduler/internal/config"
	httptransport "github.com/example/seminar-scheduler/internal/http"
	"github.com/example/seminar-scheduler/internal/logging"
	"github.com/example/seminar-scheduler/internal/notify"
	"github.com/example/seminar-scheduler/internal/persistence/sqlite"
	"github.com/example/seminar-scheduler/internal/persistence/sqlite/migration"
	"github.com/example/seminar-scheduler/internal/slotlock"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootstrap := logging.New(os.Stdout, "info")
	if err := config.LoadEnvFile(".env"); err != nil {
		bootstrap.Error("failed to read .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		bootstrap.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("scheduler stopped", "error", err)
		os.Exit(1)
	}
}

// run serves the API until ctx is cancelled.
func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("seminar API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// app holds the wired HTTP handler and the resources it must release.
type app struct {
	handler http.Handler
	closers []func() error
	logger  *slog.Logger
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("failed to release resource", "error", err)
		}
	}
	a.closers = nil
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	storage, err := sqlite.OpenWithConfig(migration.DefaultSQLiteConfig(cfg.SQLitePath), logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.closers = append(a.closers, storage.Close)

	if err := storage.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	checks := map[string]httptransport.HealthCheck{"sqlite": storage.Ping}

	notifier, closeNotifier, err := buildNotifier(cfg, logger)
	if err != nil {
		return nil, err
	}
	if closeNotifier != nil {
		a.closers = append(a.closers, closeNotifier)
	}

	locker, ping, closeLocker := buildLocker(cfg, logger)
	if ping != nil {
		checks["redis"] = ping
	}
	if closeLocker != nil {
		a.closers = append(a.closers, closeLocker)
	}

	authService := application.NewAuthServiceWithLogger(storage, []byte(cfg.JWTSecret), cfg.TokenTTL, time.Now, logger)
	if err := authService.EnsureAdminAccount(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return nil, fmt.Errorf("seed administrator: %w", err)
	}
	requestService := application.NewRequestServiceWithLogger(storage, storage, notifier, locker, uuid.NewString, logger)
	bookingService := application.NewBookingServiceWithLogger(storage, notifier, locker, uuid.NewString, time.Now, cfg.Location, logger)

	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Auth:     httptransport.NewAuthHandler(authService, logger),
		Bookings: httptransport.NewBookingHandler(bookingService, logger),
		Requests: httptransport.NewRequestHandler(requestService, logger),
		Health:   httptransport.NewHealthHandler(checks, logger),
		Tokens:   authService,
		Logger:   logger,
	})
	return a, nil
}

// buildNotifier prefers the queue, then direct SMTP, then the log.
func buildNotifier(cfg config.Config, logger *slog.Logger) (application.Notifier, func() error, error) {
	switch {
	case cfg.QueueEnabled():
		publisher, err := notify.NewPublisher(cfg.AMQPURL, cfg.NotifyQueue, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect notification queue: %w", err)
		}
		logger.Info("notifications queued", "queue", cfg.NotifyQueue)
		return publisher, publisher.Close, nil
	case cfg.EmailEnabled():
		mailer, err := notify.NewMailer(mailerConfig(cfg), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("configure mailer: %w", err)
		}
		logger.Info("notifications sent by email", "smtp_host", cfg.SMTP.Host)
		return mailer, nil, nil
	default:
		logger.Warn("no notification transport configured, notifications are only logged")
		return notify.NewLogNotifier(logger), nil, nil
	}
}

func mailerConfig(cfg config.Config) notify.MailerConfig {
	return notify.MailerConfig{
		Host:             cfg.SMTP.Host,
		Port:             cfg.SMTP.Port,
		Username:         cfg.SMTP.Username,
		Password:         cfg.SMTP.Password,
		From:             cfg.SMTP.From,
		CoordinatorEmail: cfg.CoordinatorEmail,
		Timeout:          cfg.SMTP.Timeout,
		Location:         cfg.Location,
	}
}

// buildLocker returns a Redis-backed locker when an address is configured and
// an in-process one otherwise. ping and closer are nil for the local locker.
func buildLocker(cfg config.Config, logger *slog.Logger) (locker application.SlotLocker, ping httptransport.HealthCheck, closer func() error) {
	if !cfg.DistributedLocking() {
		return slotlock.NewLocal(), nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lock := slotlock.NewRedis(client, cfg.LockTTL, logger)
	logger.Info("slot locks held in redis", "addr", cfg.Redis.Addr)
	return lock, lock.Ping, client.Close
}
