package notify

import (
	"context"
	"log/slog"

	"github.com/example/seminar-scheduler/internal/application"
)

// LogNotifier records notifications in the structured log instead of sending them.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier writing to logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "log_notifier")}
}

func (n *LogNotifier) NotifyStatusChange(ctx context.Context, change application.StatusChange) error {
	n.logger.InfoContext(ctx, "status change notification",
		"recipient", change.SubmitterEmail,
		"status", change.Status,
		"topic", change.Topic,
	)
	return nil
}

func (n *LogNotifier) NotifyCoordinator(ctx context.Context, notice application.CoordinatorNotice) error {
	n.logger.InfoContext(ctx, "coordinator notification",
		"request_id", notice.RequestID,
		"speaker", notice.SpeakerName,
		"topic", notice.Topic,
		"date", notice.Date,
		"start_time", notice.StartTime,
		"end_time", notice.EndTime,
		"room", notice.Room,
	)
	return nil
}

func (n *LogNotifier) SendInvitation(ctx context.Context, invitation application.Invitation) error {
	n.logger.InfoContext(ctx, "invitation notification",
		"booking_id", invitation.Booking.ID,
		"recipients", invitation.Recipients,
	)
	return nil
}
