package application

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/example/seminar-scheduler/internal/persistence"
	"github.com/example/seminar-scheduler/internal/scheduler"
)

// storeStub keeps bookings and requests in memory and mirrors the overlap
// guard of the real store. Calls are appended to events so tests can assert
// ordering against the notifier.
type storeStub struct {
	mu       sync.Mutex
	bookings map[string]persistence.Booking
	requests map[string]persistence.Request
	order    []string
	events   *[]string

	listErr    error
	promoteErr error
	insertErr  error
	deleteErr  error
	slotReads  int
}

func newStoreStub(events *[]string) *storeStub {
	if events == nil {
		events = &[]string{}
	}
	return &storeStub{
		bookings: make(map[string]persistence.Booking),
		requests: make(map[string]persistence.Request),
		events:   events,
	}
}

func (s *storeStub) record(event string) {
	*s.events = append(*s.events, event)
}

func (s *storeStub) overlaps(b persistence.Booking) bool {
	for _, existing := range s.bookings {
		if existing.ID == b.ID || existing.Date != b.Date || existing.Room != b.Room {
			continue
		}
		if scheduler.Overlaps(existing.StartTime, existing.EndTime, b.StartTime, b.EndTime) {
			return true
		}
	}
	return false
}

func (s *storeStub) InsertBooking(ctx context.Context, booking persistence.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	if s.overlaps(booking) {
		return persistence.ErrOverlap
	}
	s.bookings[booking.ID] = booking
	s.record("insert_booking:" + booking.ID)
	return nil
}

func (s *storeStub) UpdateBooking(ctx context.Context, booking persistence.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[booking.ID]; !ok {
		return persistence.ErrNotFound
	}
	if s.overlaps(booking) {
		return persistence.ErrOverlap
	}
	s.bookings[booking.ID] = booking
	s.record("update_booking:" + booking.ID)
	return nil
}

func (s *storeStub) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	return b, nil
}

func (s *storeStub) DeleteBooking(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.bookings, id)
	s.record("delete_booking:" + id)
	return nil
}

func (s *storeStub) ListBookingsForSlot(ctx context.Context, date, room string) ([]persistence.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slotReads++
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []persistence.Booking
	for _, b := range s.bookings {
		if b.Date == date && b.Room == room {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *storeStub) listed(keep func(persistence.Booking) bool, less func(a, b persistence.Booking) bool) []persistence.ListedBooking {
	s.mu.Lock()
	defer s.mu.Unlock()
	var picked []persistence.Booking
	for _, b := range s.bookings {
		if keep(b) {
			picked = append(picked, b)
		}
	}
	sort.Slice(picked, func(i, j int) bool { return less(picked[i], picked[j]) })
	out := make([]persistence.ListedBooking, len(picked))
	for i, b := range picked {
		out[i] = persistence.ListedBooking{Booking: b, Ordinal: i + 1}
	}
	return out
}

func (s *storeStub) ListBookingsOnOrAfter(ctx context.Context, date string) ([]persistence.ListedBooking, error) {
	return s.listed(
		func(b persistence.Booking) bool { return b.Date >= date },
		func(a, b persistence.Booking) bool {
			if a.Date != b.Date {
				return a.Date < b.Date
			}
			return a.StartTime < b.StartTime
		},
	), nil
}

func (s *storeStub) ListBookingsBefore(ctx context.Context, date string) ([]persistence.ListedBooking, error) {
	return s.listed(
		func(b persistence.Booking) bool { return b.Date < date },
		func(a, b persistence.Booking) bool {
			if a.Date != b.Date {
				return a.Date > b.Date
			}
			return a.StartTime > b.StartTime
		},
	), nil
}

func (s *storeStub) InsertRequest(ctx context.Context, request persistence.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	if _, ok := s.requests[request.ID]; ok {
		return persistence.ErrDuplicate
	}
	s.requests[request.ID] = request
	s.order = append(s.order, request.ID)
	s.record("insert_request:" + request.ID)
	return nil
}

func (s *storeStub) UpdateRequest(ctx context.Context, request persistence.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[request.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.requests[request.ID] = request
	s.record("update_request:" + request.ID)
	return nil
}

func (s *storeStub) GetRequest(ctx context.Context, id string) (persistence.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return persistence.Request{}, persistence.ErrNotFound
	}
	return r, nil
}

func (s *storeStub) DeleteRequest(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.deleteRequestLocked(id)
}

func (s *storeStub) deleteRequestLocked(id string) error {
	if _, ok := s.requests[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.requests, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.record("delete_request:" + id)
	return nil
}

func (s *storeStub) ListRequests(ctx context.Context) ([]persistence.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]persistence.Request, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.requests[id])
	}
	return out, nil
}

func (s *storeStub) FindPendingDuplicate(ctx context.Context, key persistence.RequestKey) (persistence.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		r := s.requests[id]
		if r.Status == persistence.StatusPending && r.Key() == key {
			return r, nil
		}
	}
	return persistence.Request{}, persistence.ErrNotFound
}

func (s *storeStub) PromoteRequest(ctx context.Context, requestID string, booking persistence.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.promoteErr != nil {
		return s.promoteErr
	}
	if _, ok := s.requests[requestID]; !ok {
		return persistence.ErrNotFound
	}
	if s.overlaps(booking) {
		return persistence.ErrOverlap
	}
	s.bookings[booking.ID] = booking
	s.record("insert_booking:" + booking.ID)
	return s.deleteRequestLocked(requestID)
}

type notifierStub struct {
	events *[]string

	statusErr      error
	coordinatorErr error
	invitationErr  error

	statusChanges []StatusChange
	notices       []CoordinatorNotice
	invitations   []Invitation
}

func (n *notifierStub) NotifyStatusChange(ctx context.Context, change StatusChange) error {
	n.statusChanges = append(n.statusChanges, change)
	if n.events != nil {
		*n.events = append(*n.events, "notify_"+change.Status)
	}
	return n.statusErr
}

func (n *notifierStub) NotifyCoordinator(ctx context.Context, notice CoordinatorNotice) error {
	n.notices = append(n.notices, notice)
	if n.events != nil {
		*n.events = append(*n.events, "notify_coordinator")
	}
	return n.coordinatorErr
}

func (n *notifierStub) SendInvitation(ctx context.Context, invitation Invitation) error {
	n.invitations = append(n.invitations, invitation)
	return n.invitationErr
}

type lockerStub struct {
	keys    []string
	held    map[string]bool
	lockErr error
}

func (l *lockerStub) Lock(ctx context.Context, key string) (func(), error) {
	if l.lockErr != nil {
		return nil, l.lockErr
	}
	if l.held == nil {
		l.held = make(map[string]bool)
	}
	if l.held[key] {
		return nil, fmt.Errorf("lock %s already held", key)
	}
	l.held[key] = true
	l.keys = append(l.keys, key)
	return func() { delete(l.held, key) }, nil
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func sampleRequestInput() RequestInput {
	return RequestInput{
		SeminarInput: SeminarInput{
			Date:      "2025-03-10",
			StartTime: "10:00",
			EndTime:   "11:00",
			Room:      "A-101",
			Topic:     "Graph Neural Networks",
			Category:  "seminar",
		},
		SubmitterName:  "Dana Submitter",
		SubmitterEmail: "dana@example.com",
	}
}

func seedBooking(store *storeStub, id, date, room, start, end string) persistence.Booking {
	b := persistence.Booking{
		ID:           id,
		Date:         date,
		StartTime:    start,
		EndTime:      end,
		Room:         room,
		SpeakerName:  "Existing Speaker",
		SpeakerEmail: "existing@example.com",
		Topic:        "Existing Topic",
		Category:     CategoryOthers,
	}
	store.bookings[id] = b
	return b
}

func seedRequest(store *storeStub, id string, mutate func(*persistence.Request)) persistence.Request {
	r := persistence.Request{
		ID:             id,
		Date:           "2025-03-10",
		StartTime:      "10:00:00",
		EndTime:        "11:00:00",
		Room:           "A-101",
		SpeakerName:    "Dana Submitter",
		SpeakerEmail:   "dana@example.com",
		Topic:          "Graph Neural Networks",
		Category:       CategorySeminar,
		SubmitterName:  "Dana Submitter",
		SubmitterEmail: "dana@example.com",
		Status:         persistence.StatusPending,
	}
	if mutate != nil {
		mutate(&r)
	}
	store.requests[id] = r
	store.order = append(store.order, id)
	return r
}
