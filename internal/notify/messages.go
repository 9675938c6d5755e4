package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/example/seminar-scheduler/internal/application"
	"github.com/example/seminar-scheduler/internal/persistence"
)

var (
	statusTemplate = template.Must(template.New("status").Parse(`Dear {{.SubmitterName}},

{{.Lead}}

  Topic: {{.Topic}}
  Date:  {{.Date}}
  Time:  {{.StartTime}} - {{.EndTime}}
  Room:  {{.Room}}

This is an automated message from the seminar scheduler.
`))

	coordinatorTemplate = template.Must(template.New("coordinator").Parse(`A new seminar request is waiting for review.

  Topic:     {{.Topic}}
  Speaker:   {{.SpeakerName}} <{{.SpeakerEmail}}>
  Submitted: {{.SubmitterName}} <{{.SubmitterEmail}}>
  Date:      {{.Date}}
  Time:      {{.StartTime}} - {{.EndTime}}
  Room:      {{.Room}}
  Request:   {{.RequestID}}
`))

	invitationTemplate = template.Must(template.New("invitation").Parse(`You are invited to the following seminar.

  Topic:    {{.Topic}}
  Speaker:  {{.SpeakerName}}
  Category: {{.Category}}
  Date:     {{.Date}}
  Time:     {{.StartTime}} - {{.EndTime}}
  Room:     {{.Room}}
{{- if .Abstract}}

{{.Abstract}}
{{- end}}

The attached calendar entry can be added to your calendar.
`))
)

type rendered struct {
	Subject string
	Body    string
}

func statusLead(status string) string {
	switch status {
	case persistence.StatusApproved:
		return "Your seminar request has been approved and added to the schedule."
	case persistence.StatusRejected:
		return "We are sorry, your seminar request has been rejected."
	default:
		return "Your seminar request has been updated and is pending review."
	}
}

func renderStatusChange(change application.StatusChange) (rendered, error) {
	var body bytes.Buffer
	data := struct {
		application.StatusChange
		Lead string
	}{change, statusLead(change.Status)}
	if err := statusTemplate.Execute(&body, data); err != nil {
		return rendered{}, fmt.Errorf("render status message: %w", err)
	}
	return rendered{
		Subject: fmt.Sprintf("Seminar request %s: %s", strings.ToLower(change.Status), change.Topic),
		Body:    body.String(),
	}, nil
}

func renderCoordinatorNotice(notice application.CoordinatorNotice) (rendered, error) {
	var body bytes.Buffer
	if err := coordinatorTemplate.Execute(&body, notice); err != nil {
		return rendered{}, fmt.Errorf("render coordinator message: %w", err)
	}
	return rendered{
		Subject: fmt.Sprintf("New seminar request: %s", notice.Topic),
		Body:    body.String(),
	}, nil
}

func renderInvitation(booking persistence.Booking) (rendered, error) {
	var body bytes.Buffer
	if err := invitationTemplate.Execute(&body, booking); err != nil {
		return rendered{}, fmt.Errorf("render invitation message: %w", err)
	}
	return rendered{
		Subject: fmt.Sprintf("Invitation: %s (%s %s)", booking.Topic, booking.Date, booking.StartTime),
		Body:    body.String(),
	}, nil
}
