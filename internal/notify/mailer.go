package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/example/seminar-scheduler/internal/application"
)

// MailerConfig describes the SMTP relay and the addresses used by Mailer.
type MailerConfig struct {
	Host             string
	Port             int
	Username         string
	Password         string
	From             string
	CoordinatorEmail string
	Timeout          time.Duration
	Location         *time.Location
}

type sendFunc func(ctx context.Context, msgs ...*mail.Msg) error

// Mailer delivers notifications as plain-text email.
type Mailer struct {
	from        string
	coordinator string
	location    *time.Location
	timeout     time.Duration
	send        sendFunc
	now         func() time.Time
	logger      *slog.Logger
}

// NewMailer configures an SMTP client. Credentials enable PLAIN auth; TLS is
// used when the server offers it.
func NewMailer(cfg MailerConfig, logger *slog.Logger) (*Mailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp host is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("smtp from address is required")
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return newMailer(cfg, client.DialAndSendWithContext, logger), nil
}

func newMailer(cfg MailerConfig, send sendFunc, logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = slog.Default()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	coordinator := cfg.CoordinatorEmail
	if coordinator == "" {
		coordinator = cfg.From
	}
	return &Mailer{
		from:        cfg.From,
		coordinator: coordinator,
		location:    loc,
		timeout:     cfg.Timeout,
		send:        send,
		now:         time.Now,
		logger:      logger.With("component", "mailer"),
	}
}

var _ application.Notifier = (*Mailer)(nil)

// NotifyStatusChange emails the submitter about a decision on their request.
func (m *Mailer) NotifyStatusChange(ctx context.Context, change application.StatusChange) error {
	content, err := renderStatusChange(change)
	if err != nil {
		return err
	}
	msg, err := m.newMessage([]string{change.SubmitterEmail}, content)
	if err != nil {
		return err
	}
	return m.deliver(ctx, "status_"+change.Status, msg)
}

// NotifyCoordinator emails the coordinator about a new request.
func (m *Mailer) NotifyCoordinator(ctx context.Context, notice application.CoordinatorNotice) error {
	content, err := renderCoordinatorNotice(notice)
	if err != nil {
		return err
	}
	msg, err := m.newMessage([]string{m.coordinator}, content)
	if err != nil {
		return err
	}
	if notice.SubmitterEmail != "" {
		if err := msg.ReplyTo(notice.SubmitterEmail); err != nil {
			return fmt.Errorf("reply-to address: %w", err)
		}
	}
	return m.deliver(ctx, "coordinator", msg)
}

// SendInvitation emails every recipient an iCalendar REQUEST for the booking.
func (m *Mailer) SendInvitation(ctx context.Context, invitation application.Invitation) error {
	content, err := renderInvitation(invitation.Booking)
	if err != nil {
		return err
	}
	calendar, err := BuildInvitation(invitation.Booking, m.coordinator, invitation.Recipients, m.location, m.now())
	if err != nil {
		return err
	}

	msg, err := m.newMessage(invitation.Recipients, content)
	if err != nil {
		return err
	}
	if err := msg.AttachReader("invite.ics", strings.NewReader(calendar),
		mail.WithFileContentType(mail.ContentType("text/calendar; method=REQUEST; charset=UTF-8")),
	); err != nil {
		return fmt.Errorf("attach invitation: %w", err)
	}
	return m.deliver(ctx, "invitation", msg)
}

func (m *Mailer) newMessage(to []string, content rendered) (*mail.Msg, error) {
	if len(to) == 0 {
		return nil, errors.New("no recipients")
	}
	msg := mail.NewMsg(mail.WithEncoding(mail.NoEncoding))
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(to...); err != nil {
		return nil, fmt.Errorf("recipient address: %w", err)
	}
	msg.Subject(content.Subject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, content.Body)
	return msg, nil
}

func (m *Mailer) deliver(ctx context.Context, event string, msg *mail.Msg) error {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	started := m.now()
	if err := m.send(ctx, msg); err != nil {
		m.logger.WarnContext(ctx, "email delivery failed", "event", event, "error", err)
		return fmt.Errorf("send %s email: %w", event, err)
	}
	m.logger.InfoContext(ctx, "email delivered", "event", event, "duration", time.Since(started))
	return nil
}
