package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/example/seminar-scheduler/internal/application"
	"github.com/example/seminar-scheduler/internal/logging"
)

// TokenValidator resolves a bearer token into the administrator it was issued to.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (application.Principal, error)
}

// RequireAdmin rejects requests that do not carry a valid administrator bearer token.
func RequireAdmin(validator TokenValidator, logger *slog.Logger) echo.MiddlewareFunc {
	responder := newResponder(logger)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if validator == nil {
				return responder.writeError(c, http.StatusInternalServerError, errAuthUnavailable)
			}

			token := bearerToken(c.Request())
			if token == "" {
				return responder.writeJSON(c, http.StatusUnauthorized, errorResponse{
					ErrorCode: "AUTH_UNAUTHORIZED",
					Message:   errMissingBearer.Error(),
				})
			}

			principal, err := validator.ValidateToken(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, application.ErrUnauthorized) {
					return responder.handleServiceError(c, err)
				}
				return responder.writeError(c, http.StatusInternalServerError, err)
			}

			ctx := ContextWithPrincipal(c.Request().Context(), principal)
			if logger := logging.FromContext(ctx); logger != nil {
				ctx = logging.ContextWithLogger(ctx, logger.With("admin", principal.Username))
			}
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// RequestLogger attaches a per-request logger to the request context and logs
// the start and completion of every request.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := logging.ContextWithLogger(r.Context(), logger)
			c.SetRequest(r.WithContext(ctx))
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			if err := next(c); err != nil {
				c.Error(err)
			}
			logger.InfoContext(ctx, "request completed",
				"status", c.Response().Status,
				"duration", time.Since(start),
			)
			return nil
		}
	}
}

func bearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := strings.TrimSpace(r.Header.Get(echo.HeaderAuthorization))
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
