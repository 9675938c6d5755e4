package application

import (
	"github.com/example/seminar-scheduler/internal/persistence"
	"github.com/example/seminar-scheduler/internal/scheduler"
)

// Principal identifies the administrator behind an authenticated call.
type Principal struct {
	Username string
}

// Seminar categories. Unknown values normalise to CategoryOthers.
const (
	CategorySeminar       = "Seminar"
	CategoryWorkshop      = "Workshop"
	CategoryColloquium    = "Colloquium"
	CategoryThesisDefense = "Thesis Defense"
	CategoryOthers        = "Others"
)

// Categories lists the accepted category values in display order.
var Categories = []string{CategorySeminar, CategoryWorkshop, CategoryColloquium, CategoryThesisDefense, CategoryOthers}

// SeminarInput carries the caller supplied fields of a seminar.
type SeminarInput struct {
	Date         string
	StartTime    string
	EndTime      string
	Room         string
	SpeakerName  string
	SpeakerEmail string
	SpeakerBio   string
	Topic        string
	Abstract     string
	Category     string
}

// RequestInput is a seminar proposal plus the identity of whoever submitted it.
type RequestInput struct {
	SeminarInput
	SubmitterName  string
	SubmitterEmail string
}

// RequestGroup collects pending requests that share the same
// (date, start, end, speaker, topic, room) tuple.
type RequestGroup struct {
	Key      persistence.RequestKey
	Requests []persistence.Request
}

// IDs returns the request ids of the group in submission order.
func (g RequestGroup) IDs() []string {
	ids := make([]string, len(g.Requests))
	for i, r := range g.Requests {
		ids[i] = r.ID
	}
	return ids
}

// Outcome classifies the business result of a lifecycle or booking operation.
type Outcome string

const (
	OutcomeSuccess            Outcome = "success"
	OutcomeInvalid            Outcome = "invalid"
	OutcomeConflict           Outcome = "conflict"
	OutcomeDuplicate          Outcome = "duplicate"
	OutcomeNotFound           Outcome = "not_found"
	OutcomeNotificationFailed Outcome = "notification_failed"
)

// Result reports the outcome of an operation as a (success, message) pair with
// supporting detail. Infrastructure failures are returned as errors instead.
type Result struct {
	Outcome   Outcome
	Message   string
	RequestID string
	BookingID string

	// Conflicts lists the bookings that blocked the operation.
	Conflicts []scheduler.Conflict
	// SiblingConflict is set when the blocking booking was created from a
	// request identical to this one, typically an earlier member of the same batch.
	SiblingConflict bool

	Validation *ValidationError
	// NotificationErr holds a failed best-effort notification. The operation
	// itself still took effect.
	NotificationErr error
}

// Success reports whether the operation took effect.
func (r Result) Success() bool {
	return r.Outcome == OutcomeSuccess
}

// Err converts a non-successful outcome into its sentinel error.
func (r Result) Err() error {
	switch r.Outcome {
	case OutcomeSuccess:
		return nil
	case OutcomeInvalid:
		if r.Validation != nil {
			return r.Validation
		}
		return &ValidationError{}
	case OutcomeConflict:
		return ErrConflict
	case OutcomeDuplicate:
		return ErrDuplicateRequest
	case OutcomeNotFound:
		return ErrNotFound
	case OutcomeNotificationFailed:
		return r.NotificationErr
	}
	return nil
}

// User-facing messages.
const (
	msgConflict          = "Time conflict: Another seminar is scheduled in the same room during this time slot."
	msgSiblingConflict   = "Time conflict: an identical request has already been approved for this time slot."
	msgInvalid           = "Please fill in all required fields correctly."
	msgRequestSubmitted  = "Seminar request submitted successfully."
	msgDuplicateRequest  = "An identical seminar request is already pending."
	msgRequestNotFound   = "Seminar request not found."
	msgRequestApproved   = "Seminar request approved and added to the schedule."
	msgRequestRejected   = "Seminar request rejected."
	msgRequestUpdated    = "Seminar request updated."
	msgBookingNotFound   = "Seminar not found."
	msgBookingCreated    = "Seminar added successfully."
	msgBookingUpdated    = "Seminar updated successfully."
	msgBookingDeleted    = "Seminar deleted successfully."
	msgInvitationSent    = "Calendar invitation sent."
	msgInvitationFailed  = "The calendar invitation could not be sent."
	msgNotificationNotes = " The notification email could not be delivered."
)

func invalidResult(vErr *ValidationError) Result {
	return Result{Outcome: OutcomeInvalid, Message: msgInvalid, Validation: vErr}
}
