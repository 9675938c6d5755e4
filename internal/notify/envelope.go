package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/seminar-scheduler/internal/application"
)

// EventKind names the notification carried by an Envelope.
type EventKind string

const (
	KindStatusChange EventKind = "status_change"
	KindCoordinator  EventKind = "coordinator_notice"
	KindInvitation   EventKind = "invitation"
)

// ErrMalformedEnvelope marks queued bodies that can never be delivered.
var ErrMalformedEnvelope = errors.New("malformed notification envelope")

// Envelope is the queued form of a notification.
type Envelope struct {
	Kind         EventKind                      `json:"kind"`
	OccurredAt   time.Time                      `json:"occurred_at"`
	StatusChange *application.StatusChange      `json:"status_change,omitempty"`
	Coordinator  *application.CoordinatorNotice `json:"coordinator,omitempty"`
	Invitation   *application.Invitation        `json:"invitation,omitempty"`
}

func decodeEnvelope(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return env, nil
}

// Dispatch hands env to the matching method of target.
func Dispatch(ctx context.Context, target application.Notifier, env Envelope) error {
	switch env.Kind {
	case KindStatusChange:
		if env.StatusChange == nil {
			return fmt.Errorf("%w: %s without payload", ErrMalformedEnvelope, env.Kind)
		}
		return target.NotifyStatusChange(ctx, *env.StatusChange)
	case KindCoordinator:
		if env.Coordinator == nil {
			return fmt.Errorf("%w: %s without payload", ErrMalformedEnvelope, env.Kind)
		}
		return target.NotifyCoordinator(ctx, *env.Coordinator)
	case KindInvitation:
		if env.Invitation == nil {
			return fmt.Errorf("%w: %s without payload", ErrMalformedEnvelope, env.Kind)
		}
		return target.SendInvitation(ctx, *env.Invitation)
	}
	return fmt.Errorf("%w: unknown kind %q", ErrMalformedEnvelope, env.Kind)
}
