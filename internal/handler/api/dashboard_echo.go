package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"CycleScope/internal/domain/models"
	domrepo "CycleScope/internal/domain/repository"
	"CycleScope/internal/service/ratelimit"
	"CycleScope/internal/usecase"
	xhttp "CycleScope/pkg/http"
	xlogger "CycleScope/pkg/logger"
)

// HeaderRevalidationSecret carries the shared secret for POST /api/refresh.
const HeaderRevalidationSecret = "X-Revalidation-Secret"

const (
	refreshBurst     = 2
	refreshPerMinute = 6
	responseMaxAge   = 5 * time.Minute
)

func init() {
	if err := xhttp.RegisterSet("cachetag", domrepo.AllSources); err != nil {
		panic(err)
	}
}

type Dashboard interface {
	Compute(ctx context.Context) (*models.Dashboard, error)
	Indicator(ctx context.Context, id string) (models.IndicatorResult, error)
}

type Screeners interface {
	Altcoins(ctx context.Context, sortKey string, limit int) (models.AltcoinScreenerResult, error)
	Korean(ctx context.Context, sortKey string, limit int) (models.KoreanScreenerResult, error)
}

type Refresher interface {
	Run(ctx context.Context, tags []string) (*usecase.RefreshReport, error)
}

// DashboardEchoHandler serves indicators, screeners and cache refresh over Echo.
type DashboardEchoHandler struct {
	logger    *xlogger.Logger
	dashboard Dashboard
	screeners Screeners
	refresh   Refresher
	secret    string
	maxAge    time.Duration
	rl        *ratelimit.Limiter
}

func NewDashboardEchoHandler(logger *xlogger.Logger, dashboard Dashboard, screeners Screeners, refresh Refresher, secret string) *DashboardEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &DashboardEchoHandler{
		logger:    logger,
		dashboard: dashboard,
		screeners: screeners,
		refresh:   refresh,
		secret:    secret,
		maxAge:    responseMaxAge,
		rl:        ratelimit.New(),
	}
}

func (h *DashboardEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/indicators", h.Indicators)
	g.GET("/indicators/:id", h.Indicator)
	g.GET("/screener/altcoins", h.Altcoins)
	g.GET("/screener/korean", h.Korean)
	g.POST("/refresh", h.Refresh)
}

func (h *DashboardEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *DashboardEchoHandler) Indicators(c echo.Context) error {
	res, err := h.dashboard.Compute(c.Request().Context())
	if err != nil {
		h.logFailure("dashboard failed", err)
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CachedSuccessResponse(c, res, h.maxAge)
}

func (h *DashboardEchoHandler) Indicator(c echo.Context) error {
	req := &models.IndicatorRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.dashboard.Indicator(c.Request().Context(), req.ID)
	if err != nil {
		h.logFailure("indicator failed", err, xlogger.String("id", req.ID))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CachedSuccessResponse(c, res, h.maxAge)
}

func (h *DashboardEchoHandler) Altcoins(c echo.Context) error {
	req := &models.AltcoinScreenerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.screeners.Altcoins(c.Request().Context(), req.Sort, req.Limit)
	if err != nil {
		h.logFailure("altcoin screener failed", err)
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CachedSuccessResponse(c, res, h.maxAge)
}

func (h *DashboardEchoHandler) Korean(c echo.Context) error {
	req := &models.KoreanScreenerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.screeners.Korean(c.Request().Context(), req.Sort, req.Limit)
	if err != nil {
		h.logFailure("korean screener failed", err)
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CachedSuccessResponse(c, res, h.maxAge)
}

func (h *DashboardEchoHandler) Refresh(c echo.Context) error {
	if h.secret != "" {
		got := c.Request().Header.Get(HeaderRevalidationSecret)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			return xhttp.AppErrorResponse(c, xhttp.UnauthorizedError(HeaderRevalidationSecret, "invalid revalidation secret"))
		}
	}
	if !h.rl.Allow(c.RealIP()+":refresh", refreshBurst, ratelimit.PerMinute(refreshPerMinute)) {
		h.logger.Warn("refresh rate limited", xlogger.String("remote", c.RealIP()))
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("refresh rate limited"))
	}

	req := &models.RefreshRequest{}
	if c.Request().ContentLength != 0 {
		if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
			return xhttp.BadRequestResponse(c, verr)
		}
	}

	report, err := h.refresh.Run(c.Request().Context(), req.Tags)
	if errors.Is(err, usecase.ErrRefreshInProgress) {
		return xhttp.AppErrorResponse(c, xhttp.ConflictError(err.Error()))
	}
	if err != nil {
		h.logFailure("refresh failed", err)
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, report)
}

// logFailure logs server-side failures at error level and client-caused ones at warn.
func (h *DashboardEchoHandler) logFailure(msg string, err error, fields ...xlogger.Field) {
	fields = append(fields, xlogger.Error(err))
	if xhttp.StatusOf(err) >= http.StatusInternalServerError {
		h.logger.Error(msg, fields...)
		return
	}
	h.logger.Warn(msg, fields...)
}
