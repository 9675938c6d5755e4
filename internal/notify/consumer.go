package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/seminar-scheduler/internal/application"
)

const (
	consumerPrefetch = 10
	maxBackoff       = 30 * time.Second
)

// Consumer drains the notification queue into a delivering Notifier.
type Consumer struct {
	url    string
	queue  string
	target application.Notifier
	logger *slog.Logger
}

// NewConsumer builds a consumer that hands queued events to target.
func NewConsumer(url, queue string, target application.Notifier, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		url:    url,
		queue:  queue,
		target: target,
		logger: logger.With("component", "consumer", "queue", queue),
	}
}

// Run consumes until ctx is cancelled, reconnecting with backoff when the
// broker goes away.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.WarnContext(ctx, "failed to dial broker", "error", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.WarnContext(ctx, "consume loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(consumerPrefetch, 0, false); err != nil {
		c.logger.WarnContext(ctx, "set qos failed", "error", err)
	}
	if err := declareQueue(ch, c.queue); err != nil {
		return err
	}

	deliveries, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}
	c.logger.InfoContext(ctx, "consuming notifications")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.settle(ctx, d)
		}
	}
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// settle delivers one message. A failed delivery is requeued once; a
// redelivered failure or an undecodable body is dropped.
func (c *Consumer) settle(ctx context.Context, d amqp.Delivery) {
	c.settleBody(ctx, d.Body, d.Redelivered, d)
}

func (c *Consumer) settleBody(ctx context.Context, body []byte, redelivered bool, ack acknowledger) {
	err := c.Handle(ctx, body)
	if err == nil {
		_ = ack.Ack(false)
		return
	}

	requeue := !redelivered && !errors.Is(err, ErrMalformedEnvelope)
	c.logger.WarnContext(ctx, "notification delivery failed", "error", err, "requeue", requeue)
	_ = ack.Nack(false, requeue)
}

// Handle decodes one queued body and delivers it.
func (c *Consumer) Handle(ctx context.Context, body []byte) error {
	env, err := decodeEnvelope(body)
	if err != nil {
		return err
	}
	if err := Dispatch(ctx, c.target, env); err != nil {
		return fmt.Errorf("deliver %s: %w", env.Kind, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
