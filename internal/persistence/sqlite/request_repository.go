package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/seminar-scheduler/internal/persistence"
)

const requestColumns = `id, date, start_time, end_time, room, speaker_name, speaker_email,
	speaker_bio, topic, abstract, category, submitter_name, submitter_email, status,
	created_at, updated_at`

// RequestRepository implements persistence.RequestRepository using SQLite.
type RequestRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewRequestRepository creates a new SQLite request repository.
func NewRequestRepository(pool *ConnectionPool) *RequestRepository {
	return &RequestRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// InsertRequest stores a new request. An empty status defaults to pending.
func (r *RequestRepository) InsertRequest(ctx context.Context, request persistence.Request) error {
	if request.ID == "" {
		return persistence.ErrConstraintViolation
	}
	stampRequest(&request, true)

	const query = `
		INSERT INTO requests (` + requestColumns + `)
		VALUES (:id, :date, :start_time, :end_time, :room, :speaker_name, :speaker_email,
			:speaker_bio, :topic, :abstract, :category, :submitter_name, :submitter_email, :status,
			:created_at, :updated_at)`

	err := r.retry.WithRetry(ctx, func() error {
		_, err := r.pool.DB().NamedExecContext(ctx, query, request)
		return err
	})
	return r.mapper.MapError(err)
}

// UpdateRequest overwrites the fields and status of an existing request.
func (r *RequestRepository) UpdateRequest(ctx context.Context, request persistence.Request) error {
	if request.ID == "" {
		return persistence.ErrNotFound
	}
	stampRequest(&request, false)

	const query = `
		UPDATE requests
		SET date = :date, start_time = :start_time, end_time = :end_time, room = :room,
			speaker_name = :speaker_name, speaker_email = :speaker_email, speaker_bio = :speaker_bio,
			topic = :topic, abstract = :abstract, category = :category,
			submitter_name = :submitter_name, submitter_email = :submitter_email,
			status = :status, updated_at = :updated_at
		WHERE id = :id`

	var affected int64
	err := r.retry.WithRetry(ctx, func() error {
		result, err := r.pool.DB().NamedExecContext(ctx, query, request)
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

// GetRequest retrieves a request by id.
func (r *RequestRepository) GetRequest(ctx context.Context, id string) (persistence.Request, error) {
	var request persistence.Request
	err := r.pool.DB().GetContext(ctx, &request, `SELECT `+requestColumns+` FROM requests WHERE id = ?`, id)
	if err != nil {
		return persistence.Request{}, r.mapper.MapError(err)
	}
	return request, nil
}

// DeleteRequest removes a request by id.
func (r *RequestRepository) DeleteRequest(ctx context.Context, id string) error {
	return r.mapper.MapError(deleteRequest(ctx, r.pool.DB(), id))
}

// ListRequests returns all requests in submission order.
func (r *RequestRepository) ListRequests(ctx context.Context) ([]persistence.Request, error) {
	requests := []persistence.Request{}
	err := r.pool.DB().SelectContext(ctx, &requests,
		`SELECT `+requestColumns+` FROM requests ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	return requests, nil
}

// FindPendingDuplicate returns the oldest pending request matching key, or
// persistence.ErrNotFound when none exists.
func (r *RequestRepository) FindPendingDuplicate(ctx context.Context, key persistence.RequestKey) (persistence.Request, error) {
	var request persistence.Request
	err := r.pool.DB().GetContext(ctx, &request, `
		SELECT `+requestColumns+` FROM requests
		WHERE status = 'pending'
			AND date = ? AND start_time = ? AND end_time = ?
			AND speaker_name = ? AND topic = ? AND room = ?
		ORDER BY created_at ASC, rowid ASC
		LIMIT 1`,
		key.Date, key.StartTime, key.EndTime, key.SpeakerName, key.Topic, key.Room)
	if err != nil {
		return persistence.Request{}, r.mapper.MapError(err)
	}
	return request, nil
}

// PromoteRequest inserts booking and deletes the request in one transaction.
// If either step fails nothing is applied; a request that vanished in the
// meantime yields persistence.ErrNotFound and an overlap yields persistence.ErrOverlap.
func (r *RequestRepository) PromoteRequest(ctx context.Context, requestID string, booking persistence.Booking) error {
	if booking.ID == "" {
		return persistence.ErrConstraintViolation
	}
	stampBooking(&booking, true)

	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sqlx.Tx) error {
			if _, err := tx.NamedExecContext(ctx, insertBookingSQL, booking); err != nil {
				return err
			}
			return deleteRequest(ctx, tx, requestID)
		})
	})
	return r.mapper.MapError(err)
}

func deleteRequest(ctx context.Context, exec sqlx.ExecerContext, id string) error {
	result, err := exec.ExecContext(ctx, `DELETE FROM requests WHERE id = ?`, id)
	if err != nil {
		return err
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

func stampRequest(request *persistence.Request, creating bool) {
	now := time.Now().UTC().Format(timestampLayout)
	if creating && request.CreatedAt == "" {
		request.CreatedAt = now
	}
	request.UpdatedAt = now
	if request.Status == "" {
		request.Status = persistence.StatusPending
	}
	if request.Category == "" {
		request.Category = "Others"
	}
}
