package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/example/seminar-scheduler/internal/application"
	"github.com/example/seminar-scheduler/internal/logging"
)

var (
	errBadRequestBody  = errors.New("The request body is not valid.")
	errMissingBearer   = errors.New("A bearer token is required.")
	errMissingIDs      = errors.New("At least one request id is required.")
	errAuthUnavailable = errors.New("Authentication is not configured.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(c echo.Context, status int, payload any) error {
	if status == http.StatusNoContent || payload == nil {
		return c.NoContent(status)
	}
	if err := c.JSON(status, payload); err != nil {
		ctx := c.Request().Context()
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
		return err
	}
	return nil
}

func (r responder) writeError(c echo.Context, status int, err error) error {
	message := statusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		ctx := c.Request().Context()
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}
	return r.writeJSON(c, status, errorResponse{Message: message})
}

// handleServiceError maps errors returned next to a Result. Business outcomes
// travel in the Result, so anything reaching here is a sentinel from the auth
// or lookup paths or an infrastructure failure.
func (r responder) handleServiceError(c echo.Context, err error) error {
	if err == nil {
		return r.writeError(c, http.StatusInternalServerError, errors.New("unknown error"))
	}

	switch {
	case errors.Is(err, application.ErrInvalidCredentials):
		return r.writeJSON(c, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_INVALID_CREDENTIALS",
			Message:   "Invalid username or password.",
		})
	case errors.Is(err, application.ErrUnauthorized):
		return r.writeJSON(c, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_UNAUTHORIZED",
			Message:   "Your session is invalid or has expired. Please log in again.",
		})
	case errors.Is(err, application.ErrNotFound):
		return r.writeJSON(c, http.StatusNotFound, errorResponse{Message: statusMessage(http.StatusNotFound)})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			return r.writeJSON(c, http.StatusUnprocessableEntity, errorResponse{
				Message: statusMessage(http.StatusUnprocessableEntity),
				Errors:  vErr.FieldErrors,
			})
		}
		return r.writeJSON(c, http.StatusInternalServerError, errorResponse{Message: statusMessage(http.StatusInternalServerError)})
	}
}

func (r responder) writeResult(c echo.Context, successStatus int, result application.Result) error {
	return r.writeJSON(c, statusForOutcome(result.Outcome, successStatus), newResultResponse(result))
}

func (r responder) writeResults(c echo.Context, results []application.Result, err error) error {
	payload := batchResponse{Results: make([]resultResponse, len(results))}
	for i, result := range results {
		payload.Results[i] = newResultResponse(result)
	}
	if err != nil {
		ctx := c.Request().Context()
		r.loggerFor(ctx).ErrorContext(ctx, "batch partially failed", "error", err, "error_kind", application.ErrorKind(err))
		payload.Message = "Some requests could not be processed."
		return r.writeJSON(c, http.StatusInternalServerError, payload)
	}
	return r.writeJSON(c, http.StatusOK, payload)
}

// handleEchoError renders errors raised by echo itself, such as unknown
// routes, in the same envelope as handler errors.
func (r responder) handleEchoError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
	}
	if status >= http.StatusInternalServerError {
		ctx := c.Request().Context()
		r.loggerFor(ctx).ErrorContext(ctx, "unhandled error", "status", status, "error", err)
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = r.writeJSON(c, status, errorResponse{Message: statusMessage(status)})
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func statusForOutcome(outcome application.Outcome, successStatus int) int {
	switch outcome {
	case application.OutcomeSuccess:
		return successStatus
	case application.OutcomeInvalid:
		return http.StatusUnprocessableEntity
	case application.OutcomeConflict, application.OutcomeDuplicate:
		return http.StatusConflict
	case application.OutcomeNotFound:
		return http.StatusNotFound
	case application.OutcomeNotificationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "The request is malformed."
	case http.StatusUnauthorized:
		return "Authentication is required."
	case http.StatusForbidden:
		return "You are not allowed to perform this operation."
	case http.StatusNotFound:
		return "The requested resource was not found."
	case http.StatusMethodNotAllowed:
		return "The method is not allowed for this resource."
	case http.StatusConflict:
		return "The request conflicts with the current state of the resource."
	case http.StatusUnprocessableEntity:
		return "Please fill in all required fields correctly."
	case http.StatusRequestEntityTooLarge:
		return "The request body is too large."
	default:
		return "An internal server error occurred."
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}

type conflictDTO struct {
	BookingID string `json:"booking_id"`
	Date      string `json:"date"`
	Room      string `json:"room"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type resultResponse struct {
	Success            bool              `json:"success"`
	Outcome            string            `json:"outcome"`
	Message            string            `json:"message"`
	RequestID          string            `json:"request_id,omitempty"`
	BookingID          string            `json:"booking_id,omitempty"`
	Conflicts          []conflictDTO     `json:"conflicts,omitempty"`
	SiblingConflict    bool              `json:"sibling_conflict,omitempty"`
	Errors             map[string]string `json:"errors,omitempty"`
	NotificationFailed bool              `json:"notification_failed,omitempty"`
}

type batchResponse struct {
	Message string           `json:"message,omitempty"`
	Results []resultResponse `json:"results"`
}

func newResultResponse(result application.Result) resultResponse {
	resp := resultResponse{
		Success:            result.Success(),
		Outcome:            string(result.Outcome),
		Message:            result.Message,
		RequestID:          result.RequestID,
		BookingID:          result.BookingID,
		SiblingConflict:    result.SiblingConflict,
		NotificationFailed: result.NotificationErr != nil,
	}
	if result.Validation != nil {
		resp.Errors = result.Validation.FieldErrors
	}
	for _, conflict := range result.Conflicts {
		resp.Conflicts = append(resp.Conflicts, conflictDTO{
			BookingID: conflict.WithBookingID,
			Date:      conflict.Date,
			Room:      conflict.Room,
			StartTime: conflict.Start,
			EndTime:   conflict.End,
		})
	}
	return resp
}
