package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/example/seminar-scheduler/internal/application"
)

type authService interface {
	Login(ctx context.Context, username, password string) (string, time.Time, error)
}

type AuthHandler struct {
	service   authService
	responder responder
	logger    *slog.Logger
}

func NewAuthHandler(service authService, logger *slog.Logger) *AuthHandler {
	base := defaultLogger(logger)
	return &AuthHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

// Login exchanges administrator credentials for a bearer token.
func (h *AuthHandler) Login(c echo.Context) error {
	if h == nil || h.service == nil {
		return c.NoContent(http.StatusInternalServerError)
	}
	ctx := c.Request().Context()

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		h.log(ctx, "Login", "error_kind", "bad_request").ErrorContext(ctx, "failed to decode login request", "error", err)
		return h.responder.writeError(c, http.StatusBadRequest, errBadRequestBody)
	}

	username := strings.TrimSpace(req.Username)
	logger := h.log(ctx, "Login", "username", username)

	token, expires, err := h.service.Login(ctx, username, req.Password)
	if err != nil {
		if errors.Is(err, application.ErrInvalidCredentials) {
			logger.WarnContext(ctx, "login rejected", "error_kind", application.ErrorKind(err))
		} else {
			logger.ErrorContext(ctx, "login failed", "error", err, "error_kind", application.ErrorKind(err))
		}
		return h.responder.handleServiceError(c, err)
	}

	logger.InfoContext(ctx, "administrator authenticated")
	return h.responder.writeJSON(c, http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expires.UTC().Format(time.RFC3339),
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresAt string `json:"expires_at"`
}
