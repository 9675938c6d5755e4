package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/seminar-scheduler/internal/persistence"
	"github.com/example/seminar-scheduler/internal/scheduler"
)

// BookingRepository captures the booking persistence used by the services.
type BookingRepository interface {
	InsertBooking(ctx context.Context, booking persistence.Booking) error
	UpdateBooking(ctx context.Context, booking persistence.Booking) error
	GetBooking(ctx context.Context, id string) (persistence.Booking, error)
	DeleteBooking(ctx context.Context, id string) error
	ListBookingsForSlot(ctx context.Context, date, room string) ([]persistence.Booking, error)
	ListBookingsOnOrAfter(ctx context.Context, date string) ([]persistence.ListedBooking, error)
	ListBookingsBefore(ctx context.Context, date string) ([]persistence.ListedBooking, error)
}

// RequestRepository captures the request persistence used by the lifecycle.
type RequestRepository interface {
	InsertRequest(ctx context.Context, request persistence.Request) error
	UpdateRequest(ctx context.Context, request persistence.Request) error
	GetRequest(ctx context.Context, id string) (persistence.Request, error)
	DeleteRequest(ctx context.Context, id string) error
	ListRequests(ctx context.Context) ([]persistence.Request, error)
	FindPendingDuplicate(ctx context.Context, key persistence.RequestKey) (persistence.Request, error)
	PromoteRequest(ctx context.Context, requestID string, booking persistence.Booking) error
}

// AdminRepository captures administrator credential storage.
type AdminRepository interface {
	GetAdminAccount(ctx context.Context, username string) (persistence.AdminAccount, error)
	CreateAdminAccountIfMissing(ctx context.Context, account persistence.AdminAccount) (bool, error)
	UpdateAdminPasswordHash(ctx context.Context, username, hash string) error
}

// StatusChange tells a submitter what happened to their request.
type StatusChange struct {
	SubmitterName  string `json:"submitter_name"`
	SubmitterEmail string `json:"submitter_email"`
	Topic          string `json:"topic"`
	Status         string `json:"status"`
	Date           string `json:"date"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	Room           string `json:"room"`
}

// CoordinatorNotice tells the seminar coordinator about a new submission.
type CoordinatorNotice struct {
	RequestID      string `json:"request_id"`
	SpeakerName    string `json:"speaker_name"`
	SpeakerEmail   string `json:"speaker_email"`
	SubmitterName  string `json:"submitter_name"`
	SubmitterEmail string `json:"submitter_email"`
	Topic          string `json:"topic"`
	Date           string `json:"date"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	Room           string `json:"room"`
}

// Invitation asks the notifier to send a calendar invite for a booking.
type Invitation struct {
	Booking    persistence.Booking `json:"booking"`
	Recipients []string            `json:"recipients"`
}

// Notifier delivers best-effort messages about lifecycle transitions.
type Notifier interface {
	NotifyStatusChange(ctx context.Context, change StatusChange) error
	NotifyCoordinator(ctx context.Context, notice CoordinatorNotice) error
	SendInvitation(ctx context.Context, invitation Invitation) error
}

// SlotLocker serialises check-then-write sequences that share a key.
type SlotLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type noopNotifier struct{}

func (noopNotifier) NotifyStatusChange(context.Context, StatusChange) error     { return nil }
func (noopNotifier) NotifyCoordinator(context.Context, CoordinatorNotice) error { return nil }
func (noopNotifier) SendInvitation(context.Context, Invitation) error           { return nil }

type noopLocker struct{}

func (noopLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }

func slotLockKey(date, room string) string {
	return "slot:" + date + ":" + strings.ToLower(room)
}

func requestLockKey(key persistence.RequestKey) string {
	return strings.Join([]string{"request", key.Date, key.StartTime, key.EndTime, key.SpeakerName, key.Topic, key.Room}, "\x1f")
}

// findConflicts re-reads the bookings of the candidate's (date, room) and
// returns the overlapping ones. Results are never cached.
func findConflicts(ctx context.Context, bookings BookingRepository, candidate scheduler.Slot, excludeID string) ([]scheduler.Conflict, []persistence.Booking, error) {
	existing, err := bookings.ListBookingsForSlot(ctx, candidate.Date, candidate.Room)
	if err != nil {
		return nil, nil, fmt.Errorf("list bookings for slot: %w", err)
	}

	slots := make([]scheduler.Slot, len(existing))
	byID := make(map[string]persistence.Booking, len(existing))
	for i, b := range existing {
		slots[i] = slotOf(b)
		byID[b.ID] = b
	}

	conflicts := scheduler.DetectConflicts(slots, candidate, excludeID)
	blocking := make([]persistence.Booking, 0, len(conflicts))
	for _, c := range conflicts {
		blocking = append(blocking, byID[c.WithBookingID])
	}
	return conflicts, blocking, nil
}

func slotOf(b persistence.Booking) scheduler.Slot {
	return scheduler.Slot{BookingID: b.ID, Date: b.Date, Room: b.Room, Start: b.StartTime, End: b.EndTime}
}

func isNotFound(err error) bool {
	return errors.Is(err, persistence.ErrNotFound)
}
