package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/seminar-scheduler/internal/persistence"
	"github.com/example/seminar-scheduler/internal/scheduler"
)

// BookingService handles the public listings and direct administrative edits
// of confirmed seminars.
type BookingService struct {
	bookings    BookingRepository
	notifier    Notifier
	locker      SlotLocker
	idGenerator func() string
	now         func() time.Time
	location    *time.Location
	logger      *slog.Logger
}

// NewBookingService constructs a BookingService with the provided dependencies.
func NewBookingService(bookings BookingRepository, notifier Notifier, locker SlotLocker, idGenerator func() string, now func() time.Time, location *time.Location) *BookingService {
	return NewBookingServiceWithLogger(bookings, notifier, locker, idGenerator, now, location, nil)
}

// NewBookingServiceWithLogger constructs a BookingService with a specified logger.
func NewBookingServiceWithLogger(bookings BookingRepository, notifier Notifier, locker SlotLocker, idGenerator func() string, now func() time.Time, location *time.Location, logger *slog.Logger) *BookingService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if locker == nil {
		locker = noopLocker{}
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.Local
	}
	return &BookingService{
		bookings:    bookings,
		notifier:    notifier,
		locker:      locker,
		idGenerator: idGenerator,
		now:         now,
		location:    location,
		logger:      defaultLogger(logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

func (s *BookingService) ready() error {
	if s == nil {
		return fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return fmt.Errorf("booking repository not configured")
	}
	return nil
}

// Today returns the current calendar date in the service's time zone.
func (s *BookingService) Today() string {
	return s.now().In(s.location).Format(scheduler.DateLayout)
}

// ListUpcoming returns bookings from today onwards, soonest first.
func (s *BookingService) ListUpcoming(ctx context.Context) (bookings []persistence.ListedBooking, err error) {
	if err = s.ready(); err != nil {
		return
	}
	today := s.Today()

	logger := s.loggerWith(ctx, "ListUpcoming", "today", today)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list upcoming bookings", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	bookings, err = s.bookings.ListBookingsOnOrAfter(ctx, today)
	if err != nil {
		err = fmt.Errorf("list upcoming bookings: %w", err)
	}
	return
}

// ListPast returns bookings before today, most recent first.
func (s *BookingService) ListPast(ctx context.Context) (bookings []persistence.ListedBooking, err error) {
	if err = s.ready(); err != nil {
		return
	}
	today := s.Today()

	logger := s.loggerWith(ctx, "ListPast", "today", today)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list past bookings", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	bookings, err = s.bookings.ListBookingsBefore(ctx, today)
	if err != nil {
		err = fmt.Errorf("list past bookings: %w", err)
	}
	return
}

// GetBooking returns a single booking.
func (s *BookingService) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	if err := s.ready(); err != nil {
		return persistence.Booking{}, err
	}
	booking, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return persistence.Booking{}, ErrNotFound
		}
		return persistence.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	return booking, nil
}

// CreateBooking adds a seminar directly, bypassing the request queue. The
// slot must be free.
func (s *BookingService) CreateBooking(ctx context.Context, in SeminarInput) (result Result, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CreateBooking", "room", in.Room, "date", in.Date)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking creation handled", "outcome", result.Outcome, "booking_id", result.BookingID)
	}()

	normalized, vErr := normalizeBookingInput(in)
	if vErr != nil {
		result = invalidResult(vErr)
		return
	}

	booking := bookingFromInput(s.idGenerator(), normalized)
	result, err = s.writeChecked(ctx, booking, func() error {
		return s.bookings.InsertBooking(ctx, booking)
	})
	if err == nil && result.Success() {
		result.Message = msgBookingCreated
	}
	return
}

// UpdateBooking rewrites a booking. The booking never conflicts with itself.
func (s *BookingService) UpdateBooking(ctx context.Context, id string, in SeminarInput) (result Result, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpdateBooking", "booking_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking update handled", "outcome", result.Outcome)
	}()

	normalized, vErr := normalizeBookingInput(in)
	if vErr != nil {
		result = invalidResult(vErr)
		result.BookingID = id
		return
	}

	existing, getErr := s.bookings.GetBooking(ctx, id)
	if getErr != nil {
		if isNotFound(getErr) {
			result = Result{Outcome: OutcomeNotFound, Message: msgBookingNotFound, BookingID: id}
			return
		}
		err = fmt.Errorf("get booking: %w", getErr)
		return
	}

	updated := bookingFromInput(existing.ID, normalized)
	updated.CreatedAt = existing.CreatedAt
	result, err = s.writeChecked(ctx, updated, func() error {
		return s.bookings.UpdateBooking(ctx, updated)
	})
	if err == nil && result.Success() {
		result.Message = msgBookingUpdated
	}
	return
}

// DeleteBooking removes a booking.
func (s *BookingService) DeleteBooking(ctx context.Context, id string) (result Result, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "DeleteBooking", "booking_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking deletion handled", "outcome", result.Outcome)
	}()

	if deleteErr := s.bookings.DeleteBooking(ctx, id); deleteErr != nil {
		if isNotFound(deleteErr) {
			result = Result{Outcome: OutcomeNotFound, Message: msgBookingNotFound, BookingID: id}
			return
		}
		err = fmt.Errorf("delete booking: %w", deleteErr)
		return
	}

	result = Result{Outcome: OutcomeSuccess, Message: msgBookingDeleted, BookingID: id}
	return
}

// SendInvitation emails a calendar invite for a booking. The speaker is
// always invited and duplicate addresses are collapsed.
func (s *BookingService) SendInvitation(ctx context.Context, id string, recipients []string) (result Result, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "SendInvitation", "booking_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to send invitation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "invitation handled", "outcome", result.Outcome)
	}()

	booking, getErr := s.bookings.GetBooking(ctx, id)
	if getErr != nil {
		if isNotFound(getErr) {
			result = Result{Outcome: OutcomeNotFound, Message: msgBookingNotFound, BookingID: id}
			return
		}
		err = fmt.Errorf("get booking: %w", getErr)
		return
	}

	list, vErr := invitationRecipients(recipients, booking.SpeakerEmail)
	if vErr != nil {
		result = invalidResult(vErr)
		result.BookingID = id
		return
	}

	if sendErr := s.notifier.SendInvitation(ctx, Invitation{Booking: booking, Recipients: list}); sendErr != nil {
		nErr := &NotificationError{Event: "invitation", Recipient: strings.Join(list, ","), Err: sendErr}
		logger.WarnContext(ctx, "invitation delivery failed", "error", nErr, "error_kind", ErrorKind(nErr))
		result = Result{Outcome: OutcomeNotificationFailed, Message: msgInvitationFailed, BookingID: id, NotificationErr: nErr}
		return
	}

	result = Result{Outcome: OutcomeSuccess, Message: msgInvitationSent, BookingID: id}
	return
}

// writeChecked runs write under the slot lock once the slot is known to be free.
func (s *BookingService) writeChecked(ctx context.Context, booking persistence.Booking, write func() error) (Result, error) {
	unlock, err := s.locker.Lock(ctx, slotLockKey(booking.Date, booking.Room))
	if err != nil {
		return Result{}, fmt.Errorf("lock slot: %w", err)
	}
	defer unlock()

	candidate := slotOf(booking)
	conflicts, _, err := findConflicts(ctx, s.bookings, candidate, booking.ID)
	if err != nil {
		return Result{}, err
	}
	if len(conflicts) > 0 {
		return Result{Outcome: OutcomeConflict, Message: msgConflict, BookingID: booking.ID, Conflicts: conflicts}, nil
	}

	if err := write(); err != nil {
		switch {
		case errors.Is(err, persistence.ErrOverlap):
			return Result{Outcome: OutcomeConflict, Message: msgConflict, BookingID: booking.ID}, nil
		case isNotFound(err):
			return Result{Outcome: OutcomeNotFound, Message: msgBookingNotFound, BookingID: booking.ID}, nil
		}
		return Result{}, fmt.Errorf("write booking: %w", err)
	}
	return Result{Outcome: OutcomeSuccess, BookingID: booking.ID}, nil
}

func invitationRecipients(recipients []string, speakerEmail string) ([]string, *ValidationError) {
	vErr := &ValidationError{}
	seen := make(map[string]struct{})
	list := make([]string, 0, len(recipients)+1)

	for _, raw := range append(append([]string{}, recipients...), speakerEmail) {
		email := strings.TrimSpace(raw)
		if email == "" {
			continue
		}
		if !validEmail(email) {
			vErr.add("recipients", fmt.Sprintf("%q is not a valid address", email))
			continue
		}
		folded := strings.ToLower(email)
		if _, dup := seen[folded]; dup {
			continue
		}
		seen[folded] = struct{}{}
		list = append(list, email)
	}

	if len(list) == 0 {
		vErr.add("recipients", "at least one recipient is required")
	}
	if vErr.HasErrors() {
		return nil, vErr
	}
	return list, nil
}
