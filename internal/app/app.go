package app

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"catabus.org/transit/internal/appconf"
	"catabus.org/transit/internal/arrivals"
	"catabus.org/transit/internal/clock"
	"catabus.org/transit/internal/gtfs"
	"catabus.org/transit/internal/logging"
	"catabus.org/transit/internal/metrics"
	"catabus.org/transit/internal/publisher"
	"catabus.org/transit/internal/query"
	"catabus.org/transit/internal/realtime"
)

// Application holds the dependencies shared by the HTTP handlers and the background workers.
type Application struct {
	Config         appconf.Config
	GtfsConfig     gtfs.Config
	RealtimeConfig realtime.Config
	Logger         *slog.Logger
	StaticManager  *gtfs.Manager
	Snapshot       *realtime.Snapshot
	Poller         *realtime.Poller
	Reconciler     *arrivals.Reconciler
	Query          *query.Service
	Metrics        *metrics.Collector
	Notifier       *publisher.NATSNotifier
	Clock          clock.Clock
	LogCloser      io.Closer
}

// Shutdown stops the poller, then the static refresh loop, then drains the notifier and
// closes the log file. Components that were never built are skipped.
func (app *Application) Shutdown(ctx context.Context) error {
	var errs []error
	if app.Poller != nil {
		if err := app.Poller.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if app.StaticManager != nil {
		app.StaticManager.Shutdown()
	}
	if app.Notifier != nil {
		app.Notifier.Close()
	}
	err := errors.Join(errs...)
	if err != nil && app.Logger != nil {
		logging.LogError(app.Logger, "application shutdown incomplete", err)
	}
	if app.LogCloser != nil {
		logging.SafeCloseWithLogging(app.LogCloser, app.Logger, "log_file")
	}
	return err
}
