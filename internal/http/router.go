package http

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type RouterConfig struct {
	Auth     *AuthHandler
	Bookings *BookingHandler
	Requests *RequestHandler
	Health   *HealthHandler
	Tokens   TokenValidator
	Logger   *slog.Logger
}

// NewRouter wires every handler onto a fresh echo instance. Public routes live
// under /api; administrator routes live under /api/admin behind RequireAdmin.
func NewRouter(cfg RouterConfig) *echo.Echo {
	logger := defaultLogger(cfg.Logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = newResponder(logger).handleEchoError

	e.Use(middleware.Recover())
	e.Use(RequestLogger(logger))
	e.Use(middleware.BodyLimit("1M"))

	if cfg.Health != nil {
		e.GET("/healthz", cfg.Health.Check)
	}

	api := e.Group("/api")
	if cfg.Auth != nil {
		api.POST("/login", cfg.Auth.Login)
	}
	if cfg.Bookings != nil {
		api.GET("/bookings/upcoming", cfg.Bookings.ListUpcoming)
		api.GET("/bookings/past", cfg.Bookings.ListPast)
	}
	if cfg.Requests != nil {
		api.POST("/requests", cfg.Requests.Submit)
	}

	admin := api.Group("/admin", RequireAdmin(cfg.Tokens, logger))
	if cfg.Requests != nil {
		admin.GET("/requests", cfg.Requests.ListPending)
		admin.POST("/requests/approve-batch", cfg.Requests.ApproveBatch)
		admin.PUT("/requests/:id", cfg.Requests.Edit)
		admin.POST("/requests/:id/approve", cfg.Requests.Approve)
		admin.POST("/requests/:id/approve-group", cfg.Requests.ApproveGroup)
		admin.POST("/requests/:id/reject", cfg.Requests.Reject)
		admin.POST("/requests/:id/reject-group", cfg.Requests.RejectGroup)
	}
	if cfg.Bookings != nil {
		admin.POST("/bookings", cfg.Bookings.Create)
		admin.GET("/bookings/:id", cfg.Bookings.Get)
		admin.PUT("/bookings/:id", cfg.Bookings.Update)
		admin.DELETE("/bookings/:id", cfg.Bookings.Delete)
		admin.POST("/bookings/:id/invitations", cfg.Bookings.SendInvitation)
	}

	return e
}

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	checks  map[string]HealthCheck
	timeout time.Duration
	logger  *slog.Logger
}

func NewHealthHandler(checks map[string]HealthCheck, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second, logger: defaultLogger(logger)}
}

// Check runs every probe and reports 503 when any of them fails.
func (h *HealthHandler) Check(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			handlerLogger(ctx, h.logger, "HealthHandler", "Check", "dependency", name).WarnContext(ctx, "health check failed", "error", err)
			resp.Status = "unavailable"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}

	if resp.Status != "ok" {
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
