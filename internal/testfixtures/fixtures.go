package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/seminar-scheduler/internal/application"
	"github.com/example/seminar-scheduler/internal/persistence"
)

var (
	bookingCounter uint64
	requestCounter uint64
)

var referenceTime = time.Date(2025, time.March, 5, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// Slot is the (date, room, start, end) placement shared by bookings and requests.
type Slot struct {
	Date  string
	Room  string
	Start string
	End   string
}

// DefaultSlot is the slot fixtures use unless told otherwise.
var DefaultSlot = Slot{Date: "2025-03-10", Room: "A-101", Start: "10:00:00", End: "11:00:00"}

// ----------------------------- Booking fixtures -----------------------------

// BookingOption configures the generated booking.
type BookingOption func(*persistence.Booking)

// NewBooking returns a deterministic booking in DefaultSlot with optional overrides.
func NewBooking(opts ...BookingOption) persistence.Booking {
	idx := atomic.AddUint64(&bookingCounter, 1)
	b := persistence.Booking{
		ID:           fmt.Sprintf("booking-%03d", idx),
		Date:         DefaultSlot.Date,
		StartTime:    DefaultSlot.Start,
		EndTime:      DefaultSlot.End,
		Room:         DefaultSlot.Room,
		SpeakerName:  fmt.Sprintf("Speaker %03d", idx),
		SpeakerEmail: fmt.Sprintf("speaker-%03d@example.com", idx),
		Topic:        fmt.Sprintf("Topic %03d", idx),
		Category:     application.CategorySeminar,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// BookingID overrides the booking identifier.
func BookingID(id string) BookingOption {
	return func(b *persistence.Booking) {
		b.ID = id
	}
}

// BookingAt places the booking in slot.
func BookingAt(slot Slot) BookingOption {
	return func(b *persistence.Booking) {
		b.Date, b.Room, b.StartTime, b.EndTime = slot.Date, slot.Room, slot.Start, slot.End
	}
}

// BookingTopic overrides the speaker and topic.
func BookingTopic(speaker, topic string) BookingOption {
	return func(b *persistence.Booking) {
		b.SpeakerName, b.Topic = speaker, topic
	}
}

// ----------------------------- Request fixtures -----------------------------

// RequestOption configures the generated request.
type RequestOption func(*persistence.Request)

// NewRequest returns a deterministic pending request in DefaultSlot.
func NewRequest(opts ...RequestOption) persistence.Request {
	idx := atomic.AddUint64(&requestCounter, 1)
	r := persistence.Request{
		ID:             fmt.Sprintf("request-%03d", idx),
		Date:           DefaultSlot.Date,
		StartTime:      DefaultSlot.Start,
		EndTime:        DefaultSlot.End,
		Room:           DefaultSlot.Room,
		SpeakerName:    "Grace Hopper",
		SpeakerEmail:   "grace@example.com",
		Topic:          "Compilers",
		Category:       application.CategorySeminar,
		SubmitterName:  fmt.Sprintf("Submitter %03d", idx),
		SubmitterEmail: fmt.Sprintf("submitter-%03d@example.com", idx),
		Status:         persistence.StatusPending,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// RequestID overrides the request identifier.
func RequestID(id string) RequestOption {
	return func(r *persistence.Request) {
		r.ID = id
	}
}

// RequestAt places the request in slot.
func RequestAt(slot Slot) RequestOption {
	return func(r *persistence.Request) {
		r.Date, r.Room, r.StartTime, r.EndTime = slot.Date, slot.Room, slot.Start, slot.End
	}
}

// RequestTopic overrides the speaker and topic.
func RequestTopic(speaker, topic string) RequestOption {
	return func(r *persistence.Request) {
		r.SpeakerName, r.Topic = speaker, topic
	}
}

// RequestStatus overrides the lifecycle status.
func RequestStatus(status string) RequestOption {
	return func(r *persistence.Request) {
		r.Status = status
	}
}

// ------------------------------ Service inputs ------------------------------

// NewRequestInput returns a valid submission for DefaultSlot written the way a
// caller would send it, with HH:MM clocks.
func NewRequestInput() application.RequestInput {
	return application.RequestInput{
		SeminarInput: application.SeminarInput{
			Date:      DefaultSlot.Date,
			StartTime: DefaultSlot.Start[:5],
			EndTime:   DefaultSlot.End[:5],
			Room:      DefaultSlot.Room,
			Topic:     "Compilers",
			Category:  "seminar",
		},
		SubmitterName:  "Grace Hopper",
		SubmitterEmail: "grace@example.com",
	}
}

// NewSeminarInput returns a valid direct booking input for slot.
func NewSeminarInput(slot Slot) application.SeminarInput {
	return application.SeminarInput{
		Date:         slot.Date,
		StartTime:    slot.Start,
		EndTime:      slot.End,
		Room:         slot.Room,
		SpeakerName:  "Barbara Liskov",
		SpeakerEmail: "liskov@example.com",
		Topic:        "Data abstraction",
		Category:     application.CategoryColloquium,
	}
}
