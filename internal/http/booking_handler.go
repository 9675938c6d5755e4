package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/example/seminar-scheduler/internal/application"
	"github.com/example/seminar-scheduler/internal/persistence"
)

type bookingService interface {
	ListUpcoming(ctx context.Context) ([]persistence.ListedBooking, error)
	ListPast(ctx context.Context) ([]persistence.ListedBooking, error)
	GetBooking(ctx context.Context, id string) (persistence.Booking, error)
	CreateBooking(ctx context.Context, in application.SeminarInput) (application.Result, error)
	UpdateBooking(ctx context.Context, id string, in application.SeminarInput) (application.Result, error)
	DeleteBooking(ctx context.Context, id string) (application.Result, error)
	SendInvitation(ctx context.Context, id string, recipients []string) (application.Result, error)
}

type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

// ListUpcoming returns bookings dated today or later, soonest first.
func (h *BookingHandler) ListUpcoming(c echo.Context) error {
	if h == nil || h.service == nil {
		return c.NoContent(http.StatusInternalServerError)
	}
	return h.list(c, "ListUpcoming", h.service.ListUpcoming)
}

// ListPast returns bookings dated before today, most recent first.
func (h *BookingHandler) ListPast(c echo.Context) error {
	if h == nil || h.service == nil {
		return c.NoContent(http.StatusInternalServerError)
	}
	return h.list(c, "ListPast", h.service.ListPast)
}

func (h *BookingHandler) list(c echo.Context, operation string, fetch func(context.Context) ([]persistence.ListedBooking, error)) error {
	ctx := c.Request().Context()

	bookings, err := fetch(ctx)
	if err != nil {
		h.log(ctx, operation).ErrorContext(ctx, "failed to list bookings", "error", err, "error_kind", application.ErrorKind(err))
		return h.responder.handleServiceError(c, err)
	}

	resp := bookingListResponse{Bookings: make([]bookingDTO, len(bookings))}
	for i, b := range bookings {
		resp.Bookings[i] = toBookingDTO(b.Booking)
		resp.Bookings[i].Ordinal = b.Ordinal
	}
	return h.responder.writeJSON(c, http.StatusOK, resp)
}

func (h *BookingHandler) Get(c echo.Context) error {
	if h == nil || h.service == nil {
		return c.NoContent(http.StatusInternalServerError)
	}
	ctx := c.Request().Context()
	id := strings.TrimSpace(c.Param("id"))

	booking, err := h.service.GetBooking(ctx, id)
	if err != nil {
		h.log(ctx, "Get", "booking_id", id).ErrorContext(ctx, "failed to load booking", "error", err, "error_kind", application.ErrorKind(err))
		return h.responder.handleServiceError(c, err)
	}
	return h.responder.writeJSON(c, http.StatusOK, toBookingDTO(booking))
}

func (h *BookingHandler) Create(c echo.Context) error {
	if h == nil || h.service == nil {
		return c.NoContent(http.StatusInternalServerError)
	}
	ctx := c.Request().Context()

	var req seminarPayload
	if err := c.Bind(&req); err != nil {
		h.log(ctx, "Create", "error_kind", "bad_request").ErrorContext(ctx, "failed to decode booking request", "error", err)
		return h.responder.writeError(c, http.StatusBadRequest, errBadRequestBody)
	}

	result, err := h.service.CreateBooking(ctx, req.toInput())
	if err != nil {
		h.log(ctx, "Create").ErrorContext(ctx, "failed to create booking", "error", err, "error_kind", application.ErrorKind(err))
		return h.responder.handleServiceError(c, err)
	}
	return h.responder.writeResult(c, http.StatusCreated, result)
}

func (h *BookingHandler) Update(c echo.Context) error {
	if h == nil || h.service == nil {
		return c.NoContent(http.StatusInternalServerError)
	}
	ctx := c.Request().Context()
	id := strings.TrimSpace(c.Param("id"))

	var req seminarPayload
	if err := c.Bind(&req); err != nil {
		h.log(ctx, "Update", "booking_id", id, "error_kind", "bad_request").ErrorContext(ctx, "failed to decode booking request", "error", err)
		return h.responder.writeError(c, http.StatusBadRequest, errBadRequestBody)
	}

	result, err := h.service.UpdateBooking(ctx, id, req.toInput())
	if err != nil {
		h.log(ctx, "Update", "booking_id", id).ErrorContext(ctx, "failed to update booking", "error", err, "error_kind", application.ErrorKind(err))
		return h.responder.handleServiceError(c, err)
	}
	return h.responder.writeResult(c, http.StatusOK, result)
}

func (h *BookingHandler) Delete(c echo.Context) error {
	if h == nil || h.service == nil {
		return c.NoContent(http.StatusInternalServerError)
	}
	ctx := c.Request().Context()
	id := strings.TrimSpace(c.Param("id"))

	result, err := h.service.DeleteBooking(ctx, id)
	if err != nil {
		h.log(ctx, "Delete", "booking_id", id).ErrorContext(ctx, "failed to delete booking", "error", err, "error_kind", application.ErrorKind(err))
		return h.responder.handleServiceError(c, err)
	}
	return h.responder.writeResult(c, http.StatusOK, result)
}

// SendInvitation mails a calendar invitation for the booking to the listed
// recipients and the speaker.
func (h *BookingHandler) SendInvitation(c echo.Context) error {
	if h == nil || h.service == nil {
		return c.NoContent(http.StatusInternalServerError)
	}
	ctx := c.Request().Context()
	id := strings.TrimSpace(c.Param("id"))

	var req invitationRequest
	if err := c.Bind(&req); err != nil {
		h.log(ctx, "SendInvitation", "booking_id", id, "error_kind", "bad_request").ErrorContext(ctx, "failed to decode invitation request", "error", err)
		return h.responder.writeError(c, http.StatusBadRequest, errBadRequestBody)
	}

	result, err := h.service.SendInvitation(ctx, id, req.Recipients)
	if err != nil {
		h.log(ctx, "SendInvitation", "booking_id", id).ErrorContext(ctx, "failed to send invitation", "error", err, "error_kind", application.ErrorKind(err))
		return h.responder.handleServiceError(c, err)
	}
	return h.responder.writeResult(c, http.StatusOK, result)
}

type seminarPayload struct {
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Room         string `json:"room"`
	SpeakerName  string `json:"speaker_name"`
	SpeakerEmail string `json:"speaker_email"`
	SpeakerBio   string `json:"speaker_bio"`
	Topic        string `json:"topic"`
	Abstract     string `json:"abstract"`
	Category     string `json:"category"`
}

func (p seminarPayload) toInput() application.SeminarInput {
	return application.SeminarInput{
		Date:         p.Date,
		StartTime:    p.StartTime,
		EndTime:      p.EndTime,
		Room:         p.Room,
		SpeakerName:  p.SpeakerName,
		SpeakerEmail: p.SpeakerEmail,
		SpeakerBio:   p.SpeakerBio,
		Topic:        p.Topic,
		Abstract:     p.Abstract,
		Category:     p.Category,
	}
}

type invitationRequest struct {
	Recipients []string `json:"recipients"`
}

type bookingDTO struct {
	ID           string `json:"id"`
	Ordinal      int    `json:"ordinal,omitempty"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Room         string `json:"room"`
	SpeakerName  string `json:"speaker_name"`
	SpeakerEmail string `json:"speaker_email"`
	SpeakerBio   string `json:"speaker_bio,omitempty"`
	Topic        string `json:"topic"`
	Abstract     string `json:"abstract,omitempty"`
	Category     string `json:"category"`
}

type bookingListResponse struct {
	Bookings []bookingDTO `json:"bookings"`
}

func toBookingDTO(b persistence.Booking) bookingDTO {
	return bookingDTO{
		ID:           b.ID,
		Date:         b.Date,
		StartTime:    b.StartTime,
		EndTime:      b.EndTime,
		Room:         b.Room,
		SpeakerName:  b.SpeakerName,
		SpeakerEmail: b.SpeakerEmail,
		SpeakerBio:   b.SpeakerBio,
		Topic:        b.Topic,
		Abstract:     b.Abstract,
		Category:     b.Category,
	}
}
