package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"SectorPulse/internal/domain"
	"SectorPulse/internal/domain/models"
	"SectorPulse/internal/usecase"
	xhttp "SectorPulse/pkg/http"
	xlogger "SectorPulse/pkg/logger"
	"SectorPulse/pkg/util"
)

const asOfLayout = "20060102"

// ReportRunner runs one sector report.
type ReportRunner interface {
	Run(ctx context.Context, opts usecase.ReportOptions) (*models.SectorReport, error)
}

// ScreenerRunner runs one valuation screen.
type ScreenerRunner interface {
	Run(ctx context.Context, opts usecase.ScreenerOptions) (*models.ScreenerReport, error)
}

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// ReportEchoHandler serves reports over Echo.
type ReportEchoHandler struct {
	logger   *xlogger.Logger
	report   ReportRunner
	screener ScreenerRunner
	windows  map[string]models.ComparisonWindow
	timeout  time.Duration
	checks   map[string]HealthCheck
}

// NewReportEchoHandler takes the configured windows; requests may only name
// those. timeout bounds each run; zero leaves it to the request context.
func NewReportEchoHandler(logger *xlogger.Logger, report ReportRunner, screener ScreenerRunner, windows []models.ComparisonWindow, timeout time.Duration) *ReportEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	byName := make(map[string]models.ComparisonWindow, len(windows))
	for _, w := range windows {
		byName[w.Name] = w
	}
	return &ReportEchoHandler{
		logger:   logger,
		report:   report,
		screener: screener,
		windows:  byName,
		timeout:  timeout,
		checks:   map[string]HealthCheck{},
	}
}

// AddHealthCheck registers a dependency probe for /healthz.
func (h *ReportEchoHandler) AddHealthCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

func (h *ReportEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/report", h.Report)
	g.GET("/screener", h.Screener)
	e.GET("/healthz", h.Health)
}

func (h *ReportEchoHandler) Report(c echo.Context) error {
	req := &ReportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	opts := usecase.ReportOptions{}
	for _, name := range util.SplitCSV(req.Windows) {
		w, ok := h.windows[name]
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("windows", "unknown window %q", name).WithParam("window", name))
		}
		opts.Windows = append(opts.Windows, w)
	}
	if req.AsOf != "" {
		asOf, err := time.Parse(asOfLayout, req.AsOf)
		if err != nil {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("as_of", "as_of must be a valid YYYYMMDD date"))
		}
		opts.AsOf = asOf
	}

	ctx, cancel := h.runContext(c)
	defer cancel()

	res, err := h.report.Run(ctx, opts)
	if err != nil {
		h.logger.Error("report usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapRunError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

func (h *ReportEchoHandler) Screener(c echo.Context) error {
	req := &ScreenerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	opts := usecase.ScreenerOptions{Limit: req.Limit}
	if req.MinRatio != "" {
		v, err := strconv.ParseFloat(req.MinRatio, 64)
		if err != nil || v < 0 {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("min_ratio", "min_ratio must be a non-negative number"))
		}
		opts.MinRatio = &v
	}
	if req.AsOf != "" {
		asOf, err := time.Parse(asOfLayout, req.AsOf)
		if err != nil {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("as_of", "as_of must be a valid YYYYMMDD date"))
		}
		opts.AsOf = asOf
	}

	ctx, cancel := h.runContext(c)
	defer cancel()

	res, err := h.screener.Run(ctx, opts)
	if err != nil {
		h.logger.Error("screener usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapRunError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

// Health reports ok, or 503 with the failing dependencies.
func (h *ReportEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, map[string]interface{}{"status": "degraded", "failed": failed})
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *ReportEchoHandler) runContext(c echo.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.Request().Context())
	}
	return context.WithTimeout(c.Request().Context(), h.timeout)
}

func mapRunError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.TimeoutError("run timed out").WithError(err)
	case errors.Is(err, domain.ErrCalendarUnavailable):
		return xhttp.UnavailableError("trading calendar unavailable").WithError(err)
	default:
		return xhttp.InternalError("run failed").WithError(err)
	}
}
