package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/seminar-scheduler/internal/persistence"
	"github.com/example/seminar-scheduler/internal/scheduler"
)

// RequestService drives seminar requests from submission to approval or rejection.
type RequestService struct {
	requests    RequestRepository
	bookings    BookingRepository
	notifier    Notifier
	locker      SlotLocker
	idGenerator func() string
	logger      *slog.Logger
}

// NewRequestService constructs a RequestService with the provided dependencies.
func NewRequestService(requests RequestRepository, bookings BookingRepository, notifier Notifier, locker SlotLocker, idGenerator func() string) *RequestService {
	return NewRequestServiceWithLogger(requests, bookings, notifier, locker, idGenerator, nil)
}

// NewRequestServiceWithLogger constructs a RequestService with a specified logger.
func NewRequestServiceWithLogger(requests RequestRepository, bookings BookingRepository, notifier Notifier, locker SlotLocker, idGenerator func() string, logger *slog.Logger) *RequestService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if locker == nil {
		locker = noopLocker{}
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	return &RequestService{
		requests:    requests,
		bookings:    bookings,
		notifier:    notifier,
		locker:      locker,
		idGenerator: idGenerator,
		logger:      defaultLogger(logger),
	}
}

func (s *RequestService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RequestService", operation, attrs...)
}

func (s *RequestService) ready() error {
	if s == nil {
		return fmt.Errorf("RequestService is nil")
	}
	if s.requests == nil {
		return fmt.Errorf("request repository not configured")
	}
	if s.bookings == nil {
		return fmt.Errorf("booking repository not configured")
	}
	return nil
}

// Submit validates a public seminar proposal and stores it as pending. An
// identical pending request blocks the submission. The coordinator is told
// about the new request afterwards; a failed notice does not undo the insert.
func (s *RequestService) Submit(ctx context.Context, in RequestInput) (result Result, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Submit", "room", in.Room, "date", in.Date)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to submit request", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "request submission handled", "outcome", result.Outcome, "request_id", result.RequestID)
	}()

	normalized, vErr := normalizeRequestInput(in)
	if vErr != nil {
		result = invalidResult(vErr)
		return
	}

	request := requestFromInput(s.idGenerator(), normalized, persistence.StatusPending)

	var unlock func()
	unlock, err = s.locker.Lock(ctx, requestLockKey(request.Key()))
	if err != nil {
		err = fmt.Errorf("lock request: %w", err)
		return
	}

	_, lookupErr := s.requests.FindPendingDuplicate(ctx, request.Key())
	switch {
	case lookupErr == nil:
		unlock()
		result = Result{Outcome: OutcomeDuplicate, Message: msgDuplicateRequest}
		return
	case !isNotFound(lookupErr):
		unlock()
		err = fmt.Errorf("find duplicate request: %w", lookupErr)
		return
	}

	if err = s.requests.InsertRequest(ctx, request); err != nil {
		unlock()
		err = fmt.Errorf("insert request: %w", err)
		return
	}
	unlock()

	result = Result{Outcome: OutcomeSuccess, Message: msgRequestSubmitted, RequestID: request.ID}

	notice := CoordinatorNotice{
		RequestID:      request.ID,
		SpeakerName:    request.SpeakerName,
		SpeakerEmail:   request.SpeakerEmail,
		SubmitterName:  request.SubmitterName,
		SubmitterEmail: request.SubmitterEmail,
		Topic:          request.Topic,
		Date:           request.Date,
		StartTime:      request.StartTime,
		EndTime:        request.EndTime,
		Room:           request.Room,
	}
	if notifyErr := s.notifier.NotifyCoordinator(ctx, notice); notifyErr != nil {
		nErr := &NotificationError{Event: "coordinator", Recipient: "coordinator", Err: notifyErr}
		logger.WarnContext(ctx, "coordinator notification failed", "error", nErr, "error_kind", ErrorKind(nErr))
		result = withNotificationFailure(result, nErr)
	}
	return
}

// Approve promotes a request to a booking when its slot is free.
func (s *RequestService) Approve(ctx context.Context, id string) (result Result, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Approve", "request_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to approve request", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "request approval handled", "outcome", result.Outcome, "booking_id", result.BookingID)
	}()

	request, getErr := s.requests.GetRequest(ctx, id)
	if getErr != nil {
		if isNotFound(getErr) {
			result = Result{Outcome: OutcomeNotFound, Message: msgRequestNotFound, RequestID: id}
			return
		}
		err = fmt.Errorf("get request: %w", getErr)
		return
	}

	result, err = s.approveRequest(ctx, logger, request)
	return
}

// ApproveBatch approves each id independently. An infrastructure failure on
// one id does not stop the others; failed ids are missing from the results and
// their errors are joined.
func (s *RequestService) ApproveBatch(ctx context.Context, ids []string) ([]Result, error) {
	return s.forEach(ctx, ids, s.Approve)
}

// Reject notifies the submitter and then deletes the request.
func (s *RequestService) Reject(ctx context.Context, id string) (result Result, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Reject", "request_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to reject request", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "request rejection handled", "outcome", result.Outcome)
	}()

	request, getErr := s.requests.GetRequest(ctx, id)
	if getErr != nil {
		if isNotFound(getErr) {
			result = Result{Outcome: OutcomeNotFound, Message: msgRequestNotFound, RequestID: id}
			return
		}
		err = fmt.Errorf("get request: %w", getErr)
		return
	}

	result, err = s.rejectRequest(ctx, logger, request)
	return
}

// Edit rewrites a request and moves it to status. Rejected requests are
// removed as in Reject, approved ones run through the approval path and
// pending ones are updated in place. The submitter is notified in each case.
// Edit does not apply the duplicate check of Submit, so it may leave several
// pending requests with the same tuple for the group actions to resolve.
//
// A rejection does not require valid fields: when the supplied ones fail
// validation the stored row is used for the notice. An approval that meets a
// conflict leaves the stored row untouched.
func (s *RequestService) Edit(ctx context.Context, id string, in RequestInput, status string) (result Result, err error) {
	if err = s.ready(); err != nil {
		return
	}

	status = strings.ToLower(strings.TrimSpace(status))
	logger := s.loggerWith(ctx, "Edit", "request_id", id, "status", status)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to edit request", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "request edit handled", "outcome", result.Outcome)
	}()

	normalized, vErr := normalizeRequestInput(in)
	switch status {
	case persistence.StatusRejected:
	case persistence.StatusPending, persistence.StatusApproved:
		if vErr != nil {
			result = invalidResult(vErr)
			result.RequestID = id
			return
		}
	default:
		if vErr == nil {
			vErr = &ValidationError{}
		}
		vErr.add("status", "status must be pending, approved or rejected")
		result = invalidResult(vErr)
		result.RequestID = id
		return
	}

	existing, getErr := s.requests.GetRequest(ctx, id)
	if getErr != nil {
		if isNotFound(getErr) {
			result = Result{Outcome: OutcomeNotFound, Message: msgRequestNotFound, RequestID: id}
			return
		}
		err = fmt.Errorf("get request: %w", getErr)
		return
	}

	if status == persistence.StatusRejected {
		notice := existing
		if vErr == nil {
			notice = requestFromInput(existing.ID, normalized, persistence.StatusPending)
		} else {
			logger.WarnContext(ctx, "rejecting with stored fields", "invalid_fields", len(vErr.FieldErrors))
		}
		result, err = s.rejectRequest(ctx, logger, notice)
		return
	}

	updated := requestFromInput(existing.ID, normalized, persistence.StatusPending)
	updated.CreatedAt = existing.CreatedAt

	if status == persistence.StatusApproved {
		// The booking takes the edited fields; the row is not rewritten.
		result, err = s.approveRequest(ctx, logger, updated)
		return
	}

	if updateErr := s.requests.UpdateRequest(ctx, updated); updateErr != nil {
		if isNotFound(updateErr) {
			result = Result{Outcome: OutcomeNotFound, Message: msgRequestNotFound, RequestID: id}
			return
		}
		err = fmt.Errorf("update request: %w", updateErr)
		return
	}

	result = Result{Outcome: OutcomeSuccess, Message: msgRequestUpdated, RequestID: id}
	if nErr := s.notifyStatus(ctx, logger, updated, persistence.StatusPending); nErr != nil {
		result = withNotificationFailure(result, nErr)
	}
	return
}

// ListPending groups pending requests by their similarity tuple. Groups and
// their members keep submission order.
func (s *RequestService) ListPending(ctx context.Context) (groups []RequestGroup, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ListPending")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list pending requests", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "listed pending requests", "group_count", len(groups))
	}()

	var requests []persistence.Request
	requests, err = s.requests.ListRequests(ctx)
	if err != nil {
		err = fmt.Errorf("list requests: %w", err)
		return
	}

	groups = groupPending(requests)
	return
}

// ApproveGroup approves every pending request similar to id, oldest first.
func (s *RequestService) ApproveGroup(ctx context.Context, id string) ([]Result, error) {
	ids, result, err := s.groupOf(ctx, id)
	if err != nil || result != nil {
		return resultSlice(result), err
	}
	return s.ApproveBatch(ctx, ids)
}

// RejectGroup rejects every pending request similar to id.
func (s *RequestService) RejectGroup(ctx context.Context, id string) ([]Result, error) {
	ids, result, err := s.groupOf(ctx, id)
	if err != nil || result != nil {
		return resultSlice(result), err
	}
	return s.forEach(ctx, ids, s.Reject)
}

func (s *RequestService) groupOf(ctx context.Context, id string) ([]string, *Result, error) {
	if err := s.ready(); err != nil {
		return nil, nil, err
	}

	request, err := s.requests.GetRequest(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, &Result{Outcome: OutcomeNotFound, Message: msgRequestNotFound, RequestID: id}, nil
		}
		return nil, nil, fmt.Errorf("get request: %w", err)
	}

	requests, err := s.requests.ListRequests(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list requests: %w", err)
	}

	key := request.Key()
	for _, group := range groupPending(requests) {
		if group.Key == key {
			return group.IDs(), nil, nil
		}
	}
	// The anchor itself is not pending; act on it alone.
	return []string{request.ID}, nil, nil
}

func (s *RequestService) forEach(ctx context.Context, ids []string, op func(context.Context, string) (Result, error)) ([]Result, error) {
	results := make([]Result, 0, len(ids))
	var errs []error
	for _, id := range ids {
		result, err := op(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("request %s: %w", id, err))
			continue
		}
		results = append(results, result)
	}
	return results, errors.Join(errs...)
}

// approveRequest checks the slot and promotes request under the slot lock.
// The "approved" notice is sent after the lock is released.
func (s *RequestService) approveRequest(ctx context.Context, logger *slog.Logger, request persistence.Request) (Result, error) {
	unlock, err := s.locker.Lock(ctx, slotLockKey(request.Date, request.Room))
	if err != nil {
		return Result{}, fmt.Errorf("lock slot: %w", err)
	}

	candidate := scheduler.Slot{Date: request.Date, Room: request.Room, Start: request.StartTime, End: request.EndTime}
	conflicts, blocking, err := findConflicts(ctx, s.bookings, candidate, "")
	if err != nil {
		unlock()
		return Result{}, err
	}
	if len(conflicts) > 0 {
		unlock()
		result := Result{Outcome: OutcomeConflict, Message: msgConflict, RequestID: request.ID, Conflicts: conflicts}
		if blockedBySibling(request, blocking) {
			result.SiblingConflict = true
			result.Message = msgSiblingConflict
		}
		return result, nil
	}

	booking := bookingFromRequest(s.idGenerator(), request)
	if err := s.requests.PromoteRequest(ctx, request.ID, booking); err != nil {
		unlock()
		switch {
		case errors.Is(err, persistence.ErrOverlap):
			return Result{Outcome: OutcomeConflict, Message: msgConflict, RequestID: request.ID}, nil
		case isNotFound(err):
			return Result{Outcome: OutcomeNotFound, Message: msgRequestNotFound, RequestID: request.ID}, nil
		}
		return Result{}, fmt.Errorf("promote request: %w", err)
	}
	unlock()

	result := Result{Outcome: OutcomeSuccess, Message: msgRequestApproved, RequestID: request.ID, BookingID: booking.ID}
	if nErr := s.notifyStatus(ctx, logger, request, persistence.StatusApproved); nErr != nil {
		result = withNotificationFailure(result, nErr)
	}
	return result, nil
}

// rejectRequest notifies the submitter before deleting the stored row.
func (s *RequestService) rejectRequest(ctx context.Context, logger *slog.Logger, request persistence.Request) (Result, error) {
	nErr := s.notifyStatus(ctx, logger, request, persistence.StatusRejected)

	if err := s.requests.DeleteRequest(ctx, request.ID); err != nil {
		if isNotFound(err) {
			return Result{Outcome: OutcomeNotFound, Message: msgRequestNotFound, RequestID: request.ID}, nil
		}
		return Result{}, fmt.Errorf("delete request: %w", err)
	}

	result := Result{Outcome: OutcomeSuccess, Message: msgRequestRejected, RequestID: request.ID}
	if nErr != nil {
		result = withNotificationFailure(result, nErr)
	}
	return result, nil
}

func (s *RequestService) notifyStatus(ctx context.Context, logger *slog.Logger, request persistence.Request, status string) error {
	change := StatusChange{
		SubmitterName:  request.SubmitterName,
		SubmitterEmail: request.SubmitterEmail,
		Topic:          request.Topic,
		Status:         status,
		Date:           request.Date,
		StartTime:      request.StartTime,
		EndTime:        request.EndTime,
		Room:           request.Room,
	}
	if err := s.notifier.NotifyStatusChange(ctx, change); err != nil {
		nErr := &NotificationError{Event: "status_" + status, Recipient: request.SubmitterEmail, Err: err}
		logger.WarnContext(ctx, "status notification failed", "error", nErr, "error_kind", ErrorKind(nErr))
		return nErr
	}
	return nil
}

// blockedBySibling reports whether one of the blocking bookings was
// materialised from a request identical to request.
func blockedBySibling(request persistence.Request, blocking []persistence.Booking) bool {
	for _, b := range blocking {
		if b.StartTime == request.StartTime &&
			b.EndTime == request.EndTime &&
			b.SpeakerName == request.SpeakerName &&
			b.Topic == request.Topic {
			return true
		}
	}
	return false
}

func groupPending(requests []persistence.Request) []RequestGroup {
	index := make(map[persistence.RequestKey]int)
	groups := []RequestGroup{}
	for _, r := range requests {
		if r.Status != persistence.StatusPending {
			continue
		}
		key := r.Key()
		pos, ok := index[key]
		if !ok {
			pos = len(groups)
			index[key] = pos
			groups = append(groups, RequestGroup{Key: key})
		}
		groups[pos].Requests = append(groups[pos].Requests, r)
	}
	return groups
}

func withNotificationFailure(result Result, nErr error) Result {
	result.NotificationErr = nErr
	result.Message += msgNotificationNotes
	return result
}

func resultSlice(result *Result) []Result {
	if result == nil {
		return nil
	}
	return []Result{*result}
}
