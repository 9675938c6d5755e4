package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/seminar-scheduler/internal/application"
)

type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher queues notifications on a durable RabbitMQ queue. Delivery is
// left to a Consumer, so a slow mail server never holds up a request.
//
// When the broker closes the channel the publisher redials on the next
// publish and retries it once.
type Publisher struct {
	mu      sync.Mutex
	conn    io.Closer
	channel amqpPublisher
	dial    dialFunc
	queue   string
	now     func() time.Time
	logger  *slog.Logger
}

type dialFunc func() (amqpPublisher, io.Closer, error)

// NewPublisher dials url and declares queue.
func NewPublisher(url, queue string, logger *slog.Logger) (*Publisher, error) {
	dial := func() (amqpPublisher, io.Closer, error) {
		return dialQueue(url, queue)
	}
	ch, conn, err := dial()
	if err != nil {
		return nil, err
	}

	p := newPublisher(ch, queue, logger)
	p.conn = conn
	p.dial = dial
	return p, nil
}

func dialQueue(url, queue string) (amqpPublisher, io.Closer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareQueue(ch, queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, err
	}
	return ch, conn, nil
}

func newPublisher(channel amqpPublisher, queue string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		channel: channel,
		queue:   queue,
		now:     time.Now,
		logger:  logger.With("component", "publisher", "queue", queue),
	}
}

func declareQueue(ch *amqp.Channel, queue string) error {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return nil
}

var _ application.Notifier = (*Publisher)(nil)

// NotifyStatusChange queues a status notice for the submitter.
func (p *Publisher) NotifyStatusChange(ctx context.Context, change application.StatusChange) error {
	return p.publish(ctx, Envelope{Kind: KindStatusChange, StatusChange: &change})
}

// NotifyCoordinator queues a new-submission notice for the coordinator.
func (p *Publisher) NotifyCoordinator(ctx context.Context, notice application.CoordinatorNotice) error {
	return p.publish(ctx, Envelope{Kind: KindCoordinator, Coordinator: &notice})
}

// SendInvitation queues an invitation for the booking's recipients.
func (p *Publisher) SendInvitation(ctx context.Context, invitation application.Invitation) error {
	return p.publish(ctx, Envelope{Kind: KindInvitation, Invitation: &invitation})
}

func (p *Publisher) publish(ctx context.Context, env Envelope) error {
	env.OccurredAt = p.now().UTC()
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", env.Kind, err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    env.OccurredAt,
		Type:         string(env.Kind),
		Body:         body,
	}

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil {
		if err := p.reconnectLocked(); err != nil {
			p.logger.WarnContext(ctx, "publish failed", "kind", env.Kind, "error", err)
			return fmt.Errorf("publish %s: %w", env.Kind, err)
		}
	}

	err = p.channel.PublishWithContext(ctx, "", p.queue, false, false, msg)
	if err != nil && p.dial != nil && channelClosed(err) {
		p.logger.WarnContext(ctx, "broker channel closed, reconnecting", "kind", env.Kind, "error", err)
		if rerr := p.reconnectLocked(); rerr != nil {
			err = errors.Join(err, rerr)
		} else {
			err = p.channel.PublishWithContext(ctx, "", p.queue, false, false, msg)
		}
	}
	if err != nil {
		p.logger.WarnContext(ctx, "publish failed", "kind", env.Kind, "error", err)
		return fmt.Errorf("publish %s: %w", env.Kind, err)
	}
	p.logger.DebugContext(ctx, "notification queued", "kind", env.Kind)
	return nil
}

// reconnectLocked drops the current connection and dials a fresh one.
// Callers hold p.mu.
func (p *Publisher) reconnectLocked() error {
	if p.dial == nil {
		return amqp.ErrClosed
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.channel = nil, nil

	ch, conn, err := p.dial()
	if err != nil {
		return err
	}
	p.conn, p.channel = conn, ch
	p.logger.Info("reconnected to broker")
	return nil
}

// channelClosed reports whether err means the channel or its connection is
// gone. Every *amqp.Error returned from a publish closes the channel.
func channelClosed(err error) bool {
	var amqpErr *amqp.Error
	return errors.As(err, &amqpErr)
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn, p.channel, p.dial = nil, nil, nil
	return err
}
