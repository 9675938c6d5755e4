package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/example/seminar-scheduler/internal/persistence"
)

const bookingColumns = `id, date, start_time, end_time, room, speaker_name, speaker_email,
	speaker_bio, topic, abstract, category, created_at, updated_at`

const insertBookingSQL = `
	INSERT INTO bookings (` + bookingColumns + `)
	VALUES (:id, :date, :start_time, :end_time, :room, :speaker_name, :speaker_email,
		:speaker_bio, :topic, :abstract, :category, :created_at, :updated_at)`

// timestampLayout is fixed width so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

// BookingRepository implements persistence.BookingRepository using SQLite.
type BookingRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewBookingRepository creates a new SQLite booking repository.
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// InsertBooking stores a new booking. An overlapping booking in the same room
// and date is refused with persistence.ErrOverlap.
func (r *BookingRepository) InsertBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" {
		return persistence.ErrConstraintViolation
	}
	stampBooking(&booking, true)

	err := r.retry.WithRetry(ctx, func() error {
		_, err := r.pool.DB().NamedExecContext(ctx, insertBookingSQL, booking)
		return err
	})
	return r.mapper.MapError(err)
}

// UpdateBooking replaces the mutable fields of an existing booking.
func (r *BookingRepository) UpdateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" {
		return persistence.ErrNotFound
	}
	stampBooking(&booking, false)

	const query = `
		UPDATE bookings
		SET date = :date, start_time = :start_time, end_time = :end_time, room = :room,
			speaker_name = :speaker_name, speaker_email = :speaker_email, speaker_bio = :speaker_bio,
			topic = :topic, abstract = :abstract, category = :category, updated_at = :updated_at
		WHERE id = :id`

	var affected int64
	err := r.retry.WithRetry(ctx, func() error {
		result, err := r.pool.DB().NamedExecContext(ctx, query, booking)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return r.mapper.MapError(err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetBooking retrieves a booking by id.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	var booking persistence.Booking
	err := r.pool.DB().GetContext(ctx, &booking, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	if err != nil {
		return persistence.Booking{}, r.mapper.MapError(err)
	}
	return booking, nil
}

// DeleteBooking removes a booking by id.
func (r *BookingRepository) DeleteBooking(ctx context.Context, id string) error {
	result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// ListBookingsForSlot returns the bookings held in room on date, ordered by start time.
func (r *BookingRepository) ListBookingsForSlot(ctx context.Context, date, room string) ([]persistence.Booking, error) {
	bookings := []persistence.Booking{}
	err := r.pool.DB().SelectContext(ctx, &bookings,
		`SELECT `+bookingColumns+` FROM bookings WHERE date = ? AND room = ? ORDER BY start_time ASC`,
		date, room)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	return bookings, nil
}

// ListBookingsOnOrAfter returns bookings dated on or after date in chronological
// order, numbered from 1.
func (r *BookingRepository) ListBookingsOnOrAfter(ctx context.Context, date string) ([]persistence.ListedBooking, error) {
	return r.listNumbered(ctx, `date >= ?`, `date ASC, start_time ASC, room ASC`, date)
}

// ListBookingsBefore returns bookings dated before date, most recent first,
// numbered from 1.
func (r *BookingRepository) ListBookingsBefore(ctx context.Context, date string) ([]persistence.ListedBooking, error) {
	return r.listNumbered(ctx, `date < ?`, `date DESC, start_time DESC, room ASC`, date)
}

func (r *BookingRepository) listNumbered(ctx context.Context, where, order string, args ...any) ([]persistence.ListedBooking, error) {
	query := `SELECT ROW_NUMBER() OVER (ORDER BY ` + order + `) AS ordinal, ` + bookingColumns + `
		FROM bookings WHERE ` + where + ` ORDER BY ` + order

	listed := []persistence.ListedBooking{}
	if err := r.pool.DB().SelectContext(ctx, &listed, query, args...); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return listed, nil
}

func stampBooking(booking *persistence.Booking, creating bool) {
	now := time.Now().UTC().Format(timestampLayout)
	if creating && booking.CreatedAt == "" {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now
	if booking.Category == "" {
		booking.Category = "Others"
	}
}
