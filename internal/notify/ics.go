package notify

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/example/seminar-scheduler/internal/persistence"
	"github.com/example/seminar-scheduler/internal/scheduler"
)

const productID = "-//seminar-scheduler//invitations//EN"

// BuildInvitation renders booking as an iCalendar REQUEST. The booking id
// becomes the event UID so later updates replace the same calendar entry.
func BuildInvitation(booking persistence.Booking, organizer string, recipients []string, loc *time.Location, stamp time.Time) (string, error) {
	start, err := scheduler.Instant(booking.Date, booking.StartTime, loc)
	if err != nil {
		return "", fmt.Errorf("invitation start: %w", err)
	}
	end, err := scheduler.Instant(booking.Date, booking.EndTime, loc)
	if err != nil {
		return "", fmt.Errorf("invitation end: %w", err)
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodRequest)
	cal.SetProductId(productID)

	event := cal.AddEvent(booking.ID + "@seminar-scheduler")
	event.SetDtStampTime(stamp)
	event.SetStartAt(start)
	event.SetEndAt(end)
	event.SetSummary(booking.Topic)
	event.SetLocation(booking.Room)
	event.SetDescription(invitationDescription(booking))
	if organizer != "" {
		event.SetOrganizer(organizer)
	}
	for _, recipient := range recipients {
		event.AddAttendee(recipient,
			ics.CalendarUserTypeIndividual,
			ics.ParticipationStatusNeedsAction,
			ics.ParticipationRoleReqParticipant,
			ics.WithRSVP(true),
		)
	}

	return cal.Serialize(), nil
}

func invitationDescription(booking persistence.Booking) string {
	parts := []string{"Speaker: " + booking.SpeakerName}
	if booking.Category != "" {
		parts = append(parts, "Category: "+booking.Category)
	}
	if booking.Abstract != "" {
		parts = append(parts, booking.Abstract)
	}
	return strings.Join(parts, "\n")
}
