package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catabus.org/transit/internal/app"
	"catabus.org/transit/internal/appconf"
	"catabus.org/transit/internal/arrivals"
	"catabus.org/transit/internal/clock"
	"catabus.org/transit/internal/gtfs"
	"catabus.org/transit/internal/logging"
	"catabus.org/transit/internal/metrics"
	"catabus.org/transit/internal/publisher"
	"catabus.org/transit/internal/query"
	"catabus.org/transit/internal/realtime"
	"catabus.org/transit/internal/restapi"
	"catabus.org/transit/internal/utils"
)

const httpShutdownTimeout = 30 * time.Second

// LoadConfig assembles the configuration from, in increasing precedence: built-in defaults,
// the -config file, CATABUS_* environment variables, and explicitly set flags.
func LoadConfig(args []string) (*appconf.FileConfig, error) {
	fs := flag.NewFlagSet("api", flag.ContinueOnError)

	var configPath string
	var flags appconf.FileConfig
	fs.StringVar(&configPath, "config", "", "Path to a YAML or JSON config file")
	fs.IntVar(&flags.Port, "port", appconf.DefaultPort, "API server port")
	fs.StringVar(&flags.Env, "env", "development", "Environment (development|test|production)")
	fs.IntVar(&flags.RateLimit, "rate-limit", appconf.DefaultRateLimit, "Requests per second per client")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Log at debug level")
	fs.StringVar(&flags.LogFile, "log-file", "", "Also write logs to this file, rotated")
	fs.BoolVar(&flags.MetricsEnabled, "metrics", false, "Serve Prometheus metrics on /metrics")
	fs.StringVar(&flags.NATSURL, "nats-url", "", "Publish feed update notifications to this NATS server")
	fs.StringVar(&flags.Timezone, "timezone", appconf.DefaultTimezone, "Service day timezone")
	fs.StringVar(&flags.StaticFeed.URL, "gtfs-url", appconf.DefaultStaticURL, "URL or local path of the static GTFS zip")
	fs.StringVar(&flags.StaticFeed.CacheDir, "cache-dir", appconf.DefaultCacheDir, "Directory for the static GTFS cache")
	fs.DurationVar(&flags.StaticFeed.CacheTTL, "cache-ttl", appconf.DefaultCacheTTL, "Age after which the cached static GTFS is refreshed")
	fs.StringVar(&flags.RealtimeFeed.VehiclePositionsURL, "vehicle-positions-url", appconf.DefaultVehiclesURL, "URL for a GTFS-RT vehicle positions feed")
	fs.StringVar(&flags.RealtimeFeed.TripUpdatesURL, "trip-updates-url", appconf.DefaultTripUpdatesURL, "URL for a GTFS-RT trip updates feed")
	fs.StringVar(&flags.RealtimeFeed.ServiceAlertsURL, "service-alerts-url", appconf.DefaultServiceAlertsURL, "URL for a GTFS-RT service alerts feed")
	fs.StringVar(&flags.RealtimeFeed.RealTimeAuthHeaderName, "realtime-auth-header-name", "", "Optional header name for GTFS-RT auth")
	fs.StringVar(&flags.RealtimeFeed.RealTimeAuthHeaderValue, "realtime-auth-header-value", "", "Optional header value for GTFS-RT auth")
	fs.DurationVar(&flags.RealtimeFeed.PollInterval, "poll-interval", appconf.DefaultPollInterval, "GTFS-RT polling interval (minimum 15s)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	config := appconf.DefaultFileConfig()
	if configPath != "" {
		loaded, err := appconf.LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		config = *loaded
	}
	if err := config.ApplyEnvOverrides(); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		applyFlag(&config, &flags, f.Name)
	})

	if err := config.Finalize(); err != nil {
		return nil, err
	}
	return &config, nil
}

func applyFlag(config, flags *appconf.FileConfig, name string) {
	switch name {
	case "port":
		config.Port = flags.Port
	case "env":
		config.Env = flags.Env
	case "rate-limit":
		config.RateLimit = flags.RateLimit
	case "verbose":
		config.Verbose = flags.Verbose
	case "log-file":
		config.LogFile = flags.LogFile
	case "metrics":
		config.MetricsEnabled = flags.MetricsEnabled
	case "nats-url":
		config.NATSURL = flags.NATSURL
	case "timezone":
		config.Timezone = flags.Timezone
	case "gtfs-url":
		config.StaticFeed.URL = flags.StaticFeed.URL
	case "cache-dir":
		config.StaticFeed.CacheDir = flags.StaticFeed.CacheDir
	case "cache-ttl":
		config.StaticFeed.CacheTTL = flags.StaticFeed.CacheTTL
	case "vehicle-positions-url":
		config.RealtimeFeed.VehiclePositionsURL = flags.RealtimeFeed.VehiclePositionsURL
	case "trip-updates-url":
		config.RealtimeFeed.TripUpdatesURL = flags.RealtimeFeed.TripUpdatesURL
	case "service-alerts-url":
		config.RealtimeFeed.ServiceAlertsURL = flags.RealtimeFeed.ServiceAlertsURL
	case "realtime-auth-header-name":
		config.RealtimeFeed.RealTimeAuthHeaderName = flags.RealtimeFeed.RealTimeAuthHeaderName
	case "realtime-auth-header-value":
		config.RealtimeFeed.RealTimeAuthHeaderValue = flags.RealtimeFeed.RealTimeAuthHeaderValue
	case "poll-interval":
		config.RealtimeFeed.PollInterval = flags.RealtimeFeed.PollInterval
	}
}

// GtfsConfigFrom and RealtimeConfigFrom split the feed settings between the two packages.
func GtfsConfigFrom(data appconf.GtfsConfigData) gtfs.Config {
	return gtfs.Config{
		StaticURL:             data.StaticURL,
		StaticAuthHeaderKey:   data.StaticAuthHeaderKey,
		StaticAuthHeaderValue: data.StaticAuthHeaderValue,
		CacheDir:              data.CacheDir,
		CacheTTL:              data.CacheTTL,
		Timezone:              data.Timezone,
		Env:                   data.Env,
		Verbose:               data.Verbose,
	}
}

func RealtimeConfigFrom(data appconf.GtfsConfigData) realtime.Config {
	return realtime.Config{
		VehiclePositionsURL:     data.VehiclePositionsURL,
		TripUpdatesURL:          data.TripUpdatesURL,
		ServiceAlertsURL:        data.ServiceAlertsURL,
		RealTimeAuthHeaderKey:   data.RealTimeAuthHeaderKey,
		RealTimeAuthHeaderValue: data.RealTimeAuthHeaderValue,
		PollInterval:            data.PollInterval,
		RequestTimeout:          data.RequestTimeout,
		Stagger:                 data.Stagger,
		ShutdownGrace:           realtime.DefaultShutdownGrace,
	}
}

func newLogger(cfg appconf.Config) (*slog.Logger, io.Closer) {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	if cfg.LogFile == "" {
		return logging.NewStructuredLogger(os.Stdout, level), nil
	}
	fileWriter, closer := logging.NewLogWriter(cfg.LogFile)
	return logging.NewStructuredLogger(io.MultiWriter(os.Stdout, fileWriter), level), closer
}

// BuildApplication creates and initializes the Application with all dependencies.
// The initial static load never fails the build: a broken or unreachable schedule leaves the
// service degraded with an empty dataset until a refresh succeeds. The poller is built but
// not started; see StartBackground.
func BuildApplication(ctx context.Context, cfg appconf.Config, gtfsCfg gtfs.Config, rtCfg realtime.Config) (*app.Application, error) {
	logger, logCloser := newLogger(cfg)
	clk := clock.RealClock{}

	timezone := gtfsCfg.Timezone
	if timezone == "" {
		timezone = gtfs.DefaultServiceTimezone
	}
	loc := utils.LoadLocationWithUTCFallBack(timezone, "gtfs timezone")

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.NewCollector()
	}

	staticManager, result := gtfs.InitStaticManager(ctx, gtfsCfg, logger, clk)
	if collector != nil {
		collector.RecordStaticLoad(result)
	}
	if result.Degraded() {
		logging.LogError(logger, "starting with degraded static schedule", result.Err)
	}

	snapshot := realtime.NewSnapshot()
	reconciler := arrivals.NewReconciler(staticManager, snapshot, clk, loc, logger)

	var observers []realtime.Observer
	if collector != nil {
		observers = append(observers, collector)
	}

	var notifier *publisher.NATSNotifier
	if cfg.NATSURL != "" {
		var publisherMetrics publisher.PublisherMetrics
		if collector != nil {
			publisherMetrics = collector
		}
		n, err := publisher.NewNATSNotifier(cfg.NATSURL, logger, publisherMetrics)
		if err != nil {
			logging.LogError(logger, "NATS unavailable, continuing without feed notifications", err,
				slog.String("url", cfg.NATSURL))
		} else {
			notifier = n
			observers = append(observers, notifier)
		}
	}

	poller := realtime.NewPoller(rtCfg, nil, snapshot, clk, logger, observers...)

	coreApp := &app.Application{
		Config:         cfg,
		GtfsConfig:     gtfsCfg,
		RealtimeConfig: rtCfg,
		Logger:         logger,
		StaticManager:  staticManager,
		Snapshot:       snapshot,
		Poller:         poller,
		Reconciler:     reconciler,
		Query:          query.NewService(staticManager, snapshot, reconciler, clk),
		Metrics:        collector,
		Notifier:       notifier,
		Clock:          clk,
		LogCloser:      logCloser,
	}

	return coreApp, nil
}

// StartBackground polls every feed once, then starts the poll loops. It blocks for the
// warm-up, so callers run it alongside the HTTP listener. Warm-up failures are logged and
// leave that category empty.
func StartBackground(ctx context.Context, coreApp *app.Application) {
	for _, feed := range coreApp.Poller.Feeds() {
		if err := coreApp.Poller.PollOnce(ctx, feed.Category); err != nil {
			logging.LogError(coreApp.Logger, "initial realtime poll failed", err,
				slog.String("category", string(feed.Category)))
		}
	}
	coreApp.Poller.Start(ctx)
}

// CreateServer creates and configures the HTTP server with routes and middleware.
// Request logging is the outermost layer.
func CreateServer(coreApp *app.Application, cfg appconf.Config) *http.Server {
	api := restapi.NewRestAPI(coreApp)

	requestLogMiddleware := restapi.NewRequestLoggingMiddleware(coreApp.Logger)
	handler := requestLogMiddleware(api.SetupAPIRoutes())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(coreApp.Logger.Handler(), slog.LevelError),
	}
	srv.RegisterOnShutdown(api.Shutdown)

	return srv
}

// Run manages the server lifecycle with graceful shutdown on SIGINT or SIGTERM.
func Run(srv *http.Server, coreApp *app.Application) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return serve(ctx, srv, coreApp)
}

// serve binds srv.Addr and runs until ctx is done, then shuts down the HTTP server, the
// poller and the static manager in that order.
func serve(ctx context.Context, srv *http.Server, coreApp *app.Application) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return serveListener(ctx, srv, ln, coreApp)
}

// serveListener accepts requests on ln before the realtime warm-up begins, so queries are
// answered from the static schedule while the first polls are in flight.
func serveListener(ctx context.Context, srv *http.Server, ln net.Listener, coreApp *app.Application) error {
	logger := coreApp.Logger
	logger.Info("starting server", "addr", ln.Addr().String())

	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	backgroundCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()
	warmedUp := make(chan struct{})
	go func() {
		defer close(warmedUp)
		StartBackground(backgroundCtx, coreApp)
	}()

	var runErr error
	select {
	case err := <-serverErrors:
		runErr = fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.LogError(logger, "server forced to shutdown", err)
		runErr = errors.Join(runErr, fmt.Errorf("server forced to shutdown: %w", err))
	}

	// The poller must not be started after it has been stopped.
	stopBackground()
	select {
	case <-warmedUp:
	case <-shutdownCtx.Done():
	}
	if err := coreApp.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}

	if runErr == nil {
		logger.Info("server exited")
	}
	return runErr
}
