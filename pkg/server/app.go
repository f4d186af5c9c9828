package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"SectorPulse/internal/usecase"
	"SectorPulse/pkg/config"
	xhttp "SectorPulse/pkg/http"
	applogger "SectorPulse/pkg/logger"
)

// Jobs runnable in once mode.
const (
	JobReport   = "report"
	JobScreener = "screener"
)

// App encapsulates the application lifecycle in once or serve mode.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	report      *usecase.SectorReportService
	screener    *usecase.ScreenerService
	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
	out         io.Writer
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	report *usecase.SectorReportService,
	screener *usecase.ScreenerService,
	handler xhttp.Handler,
) *App {
	if log == nil {
		log = applogger.Nop()
	}
	return &App{
		cfg:         cfg,
		log:         log,
		report:      report,
		screener:    screener,
		httpHandler: handler,
		out:         os.Stdout,
	}
}

// SetOutput redirects once-mode JSON output.
func (a *App) SetOutput(w io.Writer) { a.out = w }

// Run starts the configured mode and blocks until it ends or an interrupt
// arrives.
func (a *App) Run(job string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch a.cfg.Run.Mode {
	case "serve":
		return a.Serve(ctx)
	default:
		return a.RunOnce(ctx, job)
	}
}

// RunOnce runs one job under the run timeout and writes its JSON to the
// configured output.
func (a *App) RunOnce(ctx context.Context, job string) error {
	if a.cfg.Run.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Run.Timeout)
		defer cancel()
	}

	var (
		result interface{}
		err    error
	)
	switch job {
	case "", JobReport:
		result, err = a.report.Run(ctx, usecase.ReportOptions{})
	case JobScreener:
		result, err = a.screener.Run(ctx, usecase.ScreenerOptions{})
	default:
		return fmt.Errorf("unknown job %q", job)
	}
	if err != nil {
		a.log.Error("run failed", applogger.String("job", job), applogger.Error(err))
		return err
	}

	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode %s: %w", job, err)
	}
	return nil
}

// Serve runs the HTTP surface until ctx ends.
func (a *App) Serve(ctx context.Context) error {
	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	a.httpServer = xhttp.NewServer(a.httpHandler, a.log,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)

	errCh := a.httpServer.Start()
	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			a.log.Error("http server start error", applogger.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutdown signal received")
	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		return err
	}
	a.log.Info("shutdown complete")
	return nil
}
