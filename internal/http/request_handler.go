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

type requestService interface {
	Submit(ctx context.Context, in application.RequestInput) (application.Result, error)
	Approve(ctx context.Context, id string) (application.Result, error)
	ApproveBatch(ctx context.Context, ids []string) ([]application.Result, error)
	Reject(ctx context.Context, id string) (application.Result, error)
	Edit(ctx context.Context, id string, in application.RequestInput, status string) (application.Result, error)
	ListPending(ctx context.Context) ([]application.RequestGroup, error)
	ApproveGroup(ctx context.Context, id string) ([]application.Result, error)
	RejectGroup(ctx context.Context, id string) ([]application.Result, error)
}

type RequestHandler struct {
	service   requestService
	responder responder
	logger    *slog.Logger
}

func NewRequestHandler(service requestService, logger *slog.Logger) *RequestHandler {
	base := defaultLogger(logger)
	return &RequestHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RequestHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RequestHandler", operation, attrs...)
}

// Submit records a new pending seminar request. It is the only unauthenticated write.
func (h *RequestHandler) Submit(c echo.Context) error {
	if h == nil || h.service == nil {
		return c.NoContent(http.StatusInternalServerError)
	}
	ctx := c.Request().Context()

	var req requestPayload
	if err := c.Bind(&req); err != nil {
		h.log(ctx, "Submit", "error_kind", "bad_request").ErrorContext(ctx, "failed to decode seminar request", "error", err)
		return h.responder.writeError(c, http.StatusBadRequest, errBadRequestBody)
	}

	result, err := h.service.Submit(ctx, req.toInput())
	if err != nil {
		h.log(ctx, "Submit").ErrorContext(ctx, "failed to submit request", "error", err, "error_kind", application.ErrorKind(err))
		return h.responder.handleServiceError(c, err)
	}
	return h.responder.writeResult(c, http.StatusCreated, result)
}

func (h *RequestHandler) ListPending(c echo.Context) error {
	if h == nil || h.service == nil {
		return c.NoContent(http.StatusInternalServerError)
	}
	ctx := c.Request().Context()

	groups, err := h.service.ListPending(ctx)
	if err != nil {
		h.log(ctx, "ListPending").ErrorContext(ctx, "failed to list pending requests", "error", err, "error_kind", application.ErrorKind(err))
		return h.responder.handleServiceError(c, err)
	}

	resp := requestGroupListResponse{Groups: make([]requestGroupDTO, len(groups))}
	for i, group := range groups {
		dto := requestGroupDTO{
			Count:      len(group.Requests),
			RequestIDs: group.IDs(),
			Requests:   make([]requestDTO, len(group.Requests)),
		}
		for j, r := range group.Requests {
			dto.Requests[j] = toRequestDTO(r)
		}
		resp.Groups[i] = dto
	}
	return h.responder.writeJSON(c, http.StatusOK, resp)
}

func (h *RequestHandler) Approve(c echo.Context) error {
	return h.single(c, "Approve", requestService.Approve)
}

func (h *RequestHandler) Reject(c echo.Context) error {
	return h.single(c, "Reject", requestService.Reject)
}

func (h *RequestHandler) ApproveGroup(c echo.Context) error {
	return h.group(c, "ApproveGroup", requestService.ApproveGroup)
}

func (h *RequestHandler) RejectGroup(c echo.Context) error {
	return h.group(c, "RejectGroup", requestService.RejectGroup)
}

// ApproveBatch approves the listed requests in order. Later members of a
// group that collide with an earlier approval come back as conflicts.
func (h *RequestHandler) ApproveBatch(c echo.Context) error {
	if h == nil || h.service == nil {
		return c.NoContent(http.StatusInternalServerError)
	}
	ctx := c.Request().Context()

	var req batchRequest
	if err := c.Bind(&req); err != nil {
		h.log(ctx, "ApproveBatch", "error_kind", "bad_request").ErrorContext(ctx, "failed to decode batch request", "error", err)
		return h.responder.writeError(c, http.StatusBadRequest, errBadRequestBody)
	}
	if len(req.RequestIDs) == 0 {
		return h.responder.writeError(c, http.StatusBadRequest, errMissingIDs)
	}

	results, err := h.service.ApproveBatch(ctx, req.RequestIDs)
	return h.responder.writeResults(c, results, err)
}

// Edit rewrites a request and applies the chosen status.
func (h *RequestHandler) Edit(c echo.Context) error {
	if h == nil || h.service == nil {
		return c.NoContent(http.StatusInternalServerError)
	}
	ctx := c.Request().Context()
	id := strings.TrimSpace(c.Param("id"))

	var req editRequestPayload
	if err := c.Bind(&req); err != nil {
		h.log(ctx, "Edit", "request_id", id, "error_kind", "bad_request").ErrorContext(ctx, "failed to decode edit request", "error", err)
		return h.responder.writeError(c, http.StatusBadRequest, errBadRequestBody)
	}

	result, err := h.service.Edit(ctx, id, req.toInput(), req.Status)
	if err != nil {
		h.log(ctx, "Edit", "request_id", id).ErrorContext(ctx, "failed to edit request", "error", err, "error_kind", application.ErrorKind(err))
		return h.responder.handleServiceError(c, err)
	}
	return h.responder.writeResult(c, http.StatusOK, result)
}

func (h *RequestHandler) single(c echo.Context, operation string, op func(requestService, context.Context, string) (application.Result, error)) error {
	if h == nil || h.service == nil {
		return c.NoContent(http.StatusInternalServerError)
	}
	ctx := c.Request().Context()
	id := strings.TrimSpace(c.Param("id"))

	result, err := op(h.service, ctx, id)
	if err != nil {
		h.log(ctx, operation, "request_id", id).ErrorContext(ctx, "request operation failed", "error", err, "error_kind", application.ErrorKind(err))
		return h.responder.handleServiceError(c, err)
	}
	return h.responder.writeResult(c, http.StatusOK, result)
}

func (h *RequestHandler) group(c echo.Context, operation string, op func(requestService, context.Context, string) ([]application.Result, error)) error {
	if h == nil || h.service == nil {
		return c.NoContent(http.StatusInternalServerError)
	}
	ctx := c.Request().Context()
	id := strings.TrimSpace(c.Param("id"))

	results, err := op(h.service, ctx, id)
	h.log(ctx, operation, "request_id", id).InfoContext(ctx, "group processed", "results", len(results))
	if len(results) == 1 && results[0].Outcome == application.OutcomeNotFound && err == nil {
		return h.responder.writeResult(c, http.StatusOK, results[0])
	}
	return h.responder.writeResults(c, results, err)
}

type requestPayload struct {
	seminarPayload
	SubmitterName  string `json:"submitter_name"`
	SubmitterEmail string `json:"submitter_email"`
}

func (p requestPayload) toInput() application.RequestInput {
	return application.RequestInput{
		SeminarInput:   p.seminarPayload.toInput(),
		SubmitterName:  p.SubmitterName,
		SubmitterEmail: p.SubmitterEmail,
	}
}

type editRequestPayload struct {
	requestPayload
	Status string `json:"status"`
}

type batchRequest struct {
	RequestIDs []string `json:"request_ids"`
}

type requestDTO struct {
	ID             string `json:"id"`
	Date           string `json:"date"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	Room           string `json:"room"`
	SpeakerName    string `json:"speaker_name"`
	SpeakerEmail   string `json:"speaker_email"`
	SpeakerBio     string `json:"speaker_bio,omitempty"`
	Topic          string `json:"topic"`
	Abstract       string `json:"abstract,omitempty"`
	Category       string `json:"category"`
	SubmitterName  string `json:"submitter_name"`
	SubmitterEmail string `json:"submitter_email"`
	Status         string `json:"status"`
	SubmittedAt    string `json:"submitted_at,omitempty"`
}

type requestGroupDTO struct {
	Count      int          `json:"count"`
	RequestIDs []string     `json:"request_ids"`
	Requests   []requestDTO `json:"requests"`
}

type requestGroupListResponse struct {
	Groups []requestGroupDTO `json:"groups"`
}

func toRequestDTO(r persistence.Request) requestDTO {
	return requestDTO{
		ID:             r.ID,
		Date:           r.Date,
		StartTime:      r.StartTime,
		EndTime:        r.EndTime,
		Room:           r.Room,
		SpeakerName:    r.SpeakerName,
		SpeakerEmail:   r.SpeakerEmail,
		SpeakerBio:     r.SpeakerBio,
		Topic:          r.Topic,
		Abstract:       r.Abstract,
		Category:       r.Category,
		SubmitterName:  r.SubmitterName,
		SubmitterEmail: r.SubmitterEmail,
		Status:         r.Status,
		SubmittedAt:    r.CreatedAt,
	}
}
