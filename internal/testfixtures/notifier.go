package testfixtures

import (
	"context"
	"sync"

	"github.com/example/seminar-scheduler/internal/application"
)

// RecordingNotifier captures every notification and can be told to fail.
type RecordingNotifier struct {
	mu sync.Mutex

	StatusChanges []application.StatusChange
	Notices       []application.CoordinatorNotice
	Invitations   []application.Invitation

	Err error
}

func (n *RecordingNotifier) NotifyStatusChange(ctx context.Context, change application.StatusChange) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.StatusChanges = append(n.StatusChanges, change)
	return n.Err
}

func (n *RecordingNotifier) NotifyCoordinator(ctx context.Context, notice application.CoordinatorNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Notices = append(n.Notices, notice)
	return n.Err
}

func (n *RecordingNotifier) SendInvitation(ctx context.Context, invitation application.Invitation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Invitations = append(n.Invitations, invitation)
	return n.Err
}

// Statuses returns the status of every status change in delivery order.
func (n *RecordingNotifier) Statuses() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.StatusChanges))
	for i, c := range n.StatusChanges {
		out[i] = c.Status
	}
	return out
}
