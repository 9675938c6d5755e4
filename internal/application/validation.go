package application

import (
	"regexp"
	"strings"

	"github.com/example/seminar-scheduler/internal/persistence"
	"github.com/example/seminar-scheduler/internal/scheduler"
)

var emailPattern = regexp.MustCompile(`^[\w.+-]+@[\w.-]+\.\w{2,}$`)

// NormalizeCategory maps free-form input onto a known category.
func NormalizeCategory(category string) string {
	trimmed := strings.TrimSpace(category)
	for _, known := range Categories {
		if strings.EqualFold(trimmed, known) {
			return known
		}
	}
	return CategoryOthers
}

func validEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// normalizeSeminar trims text fields, canonicalises the date and times and
// records problems on vErr.
func normalizeSeminar(in SeminarInput, vErr *ValidationError) SeminarInput {
	out := SeminarInput{
		Room:         strings.TrimSpace(in.Room),
		SpeakerName:  strings.TrimSpace(in.SpeakerName),
		SpeakerEmail: strings.TrimSpace(in.SpeakerEmail),
		SpeakerBio:   strings.TrimSpace(in.SpeakerBio),
		Topic:        strings.TrimSpace(in.Topic),
		Abstract:     strings.TrimSpace(in.Abstract),
		Category:     NormalizeCategory(in.Category),
	}

	if strings.TrimSpace(in.Date) == "" {
		vErr.add("date", "date is required")
	} else if date, err := scheduler.ParseDate(in.Date); err != nil {
		vErr.add("date", "date must use YYYY-MM-DD")
	} else {
		out.Date = date
	}

	if strings.TrimSpace(in.StartTime) == "" {
		vErr.add("start_time", "start time is required")
	} else if start, err := scheduler.ParseClock(in.StartTime); err != nil {
		vErr.add("start_time", "start time must use HH:MM:SS")
	} else {
		out.StartTime = start
	}

	if strings.TrimSpace(in.EndTime) == "" {
		vErr.add("end_time", "end time is required")
	} else if end, err := scheduler.ParseClock(in.EndTime); err != nil {
		vErr.add("end_time", "end time must use HH:MM:SS")
	} else {
		out.EndTime = end
	}

	if out.StartTime != "" && out.EndTime != "" && out.StartTime >= out.EndTime {
		vErr.add("end_time", "end time must be after start time")
	}
	if out.Room == "" {
		vErr.add("room", "room is required")
	}
	if out.Topic == "" {
		vErr.add("topic", "topic is required")
	}
	if out.SpeakerEmail != "" && !validEmail(out.SpeakerEmail) {
		vErr.add("speaker_email", "speaker email is not a valid address")
	}

	return out
}

// normalizeRequestInput validates a public submission. The speaker defaults to
// the submitter when left blank.
func normalizeRequestInput(in RequestInput) (RequestInput, *ValidationError) {
	vErr := &ValidationError{}
	out := RequestInput{
		SeminarInput:   normalizeSeminar(in.SeminarInput, vErr),
		SubmitterName:  strings.TrimSpace(in.SubmitterName),
		SubmitterEmail: strings.TrimSpace(in.SubmitterEmail),
	}

	if out.SubmitterName == "" {
		vErr.add("submitter_name", "your name is required")
	}
	if out.SubmitterEmail == "" {
		vErr.add("submitter_email", "your email is required")
	} else if !validEmail(out.SubmitterEmail) {
		vErr.add("submitter_email", "your email is not a valid address")
	}

	if out.SpeakerName == "" {
		out.SpeakerName = out.SubmitterName
	}
	if out.SpeakerEmail == "" {
		out.SpeakerEmail = out.SubmitterEmail
	}

	if vErr.HasErrors() {
		return out, vErr
	}
	return out, nil
}

// normalizeBookingInput validates a direct administrative booking, which
// requires a speaker.
func normalizeBookingInput(in SeminarInput) (SeminarInput, *ValidationError) {
	vErr := &ValidationError{}
	out := normalizeSeminar(in, vErr)

	if out.SpeakerName == "" {
		vErr.add("speaker_name", "speaker name is required")
	}
	if out.SpeakerEmail == "" {
		vErr.add("speaker_email", "speaker email is required")
	}

	if vErr.HasErrors() {
		return out, vErr
	}
	return out, nil
}

func requestFromInput(id string, in RequestInput, status string) persistence.Request {
	return persistence.Request{
		ID:             id,
		Date:           in.Date,
		StartTime:      in.StartTime,
		EndTime:        in.EndTime,
		Room:           in.Room,
		SpeakerName:    in.SpeakerName,
		SpeakerEmail:   in.SpeakerEmail,
		SpeakerBio:     in.SpeakerBio,
		Topic:          in.Topic,
		Abstract:       in.Abstract,
		Category:       in.Category,
		SubmitterName:  in.SubmitterName,
		SubmitterEmail: in.SubmitterEmail,
		Status:         status,
	}
}

func bookingFromInput(id string, in SeminarInput) persistence.Booking {
	return persistence.Booking{
		ID:           id,
		Date:         in.Date,
		StartTime:    in.StartTime,
		EndTime:      in.EndTime,
		Room:         in.Room,
		SpeakerName:  in.SpeakerName,
		SpeakerEmail: in.SpeakerEmail,
		SpeakerBio:   in.SpeakerBio,
		Topic:        in.Topic,
		Abstract:     in.Abstract,
		Category:     in.Category,
	}
}

func bookingFromRequest(id string, r persistence.Request) persistence.Booking {
	return persistence.Booking{
		ID:           id,
		Date:         r.Date,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		Room:         r.Room,
		SpeakerName:  r.SpeakerName,
		SpeakerEmail: r.SpeakerEmail,
		SpeakerBio:   r.SpeakerBio,
		Topic:        r.Topic,
		Abstract:     r.Abstract,
		Category:     NormalizeCategory(r.Category),
	}
}
