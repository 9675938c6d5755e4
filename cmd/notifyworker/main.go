// Command notifyworker drains the notification queue and delivers each event
// by email, or to the log when SMTP is not configured.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/seminar-scheduler/internal/application"
	"github.com/example/seminar-scheduler/internal/config"
	"github.com/example/seminar-scheduler/internal/logging"
	"github.com/example/seminar-scheduler/internal/notify"
)

var errQueueNotConfigured = errors.New("SEMINAR_AMQP_URL is not set")

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

	consumer, err := newConsumer(cfg, logger)
	if err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	logger.Info("notification worker started", "queue", cfg.NotifyQueue)
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("notification worker stopped")
}

func newConsumer(cfg config.Config, logger *slog.Logger) (*notify.Consumer, error) {
	if !cfg.QueueEnabled() {
		return nil, errQueueNotConfigured
	}
	target, err := deliveryTarget(cfg, logger)
	if err != nil {
		return nil, err
	}
	return notify.NewConsumer(cfg.AMQPURL, cfg.NotifyQueue, target, logger), nil
}

func deliveryTarget(cfg config.Config, logger *slog.Logger) (application.Notifier, error) {
	if !cfg.EmailEnabled() {
		logger.Warn("SMTP is not configured, queued notifications are only logged")
		return notify.NewLogNotifier(logger), nil
	}
	mailer, err := notify.NewMailer(notify.MailerConfig{
		Host:             cfg.SMTP.Host,
		Port:             cfg.SMTP.Port,
		Username:         cfg.SMTP.Username,
		Password:         cfg.SMTP.Password,
		From:             cfg.SMTP.From,
		CoordinatorEmail: cfg.CoordinatorEmail,
		Timeout:          cfg.SMTP.Timeout,
		Location:         cfg.Location,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("configure mailer: %w", err)
	}
	return mailer, nil
}
