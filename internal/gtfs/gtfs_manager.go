package gtfs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"catabus.org/transit/internal/clock"
	"catabus.org/transit/internal/logging"
)

// Manager owns the current static schedule. Readers take the dataset with Current and
// keep using that pointer; a reload swaps in a new dataset without disturbing them.
type Manager struct {
	config       Config
	source       *staticSource
	logger       *slog.Logger
	clock        clock.Clock
	current      atomic.Pointer[Static]
	lastLoad     atomic.Pointer[LoadResult]
	loadMutex    sync.Mutex // serializes Load calls
	shutdownChan chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// NewManager returns a manager serving an empty dataset until the first Load.
func NewManager(config Config, logger *slog.Logger, clk clock.Clock) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	logger = logger.With(slog.String("component", "gtfs_manager"))

	manager := &Manager{
		config:       config,
		source:       newStaticSource(config, logger),
		logger:       logger,
		clock:        clk,
		shutdownChan: make(chan struct{}),
	}
	manager.current.Store(EmptyStatic())
	manager.lastLoad.Store(&LoadResult{Static: manager.current.Load(), Status: LoadDegraded,
		Err: fmt.Errorf("static schedule not loaded yet")})
	return manager
}

// InitStaticManager performs the initial load and, for remote sources, starts the
// periodic refresh. Static failures never abort startup; they surface as a degraded LoadResult.
func InitStaticManager(ctx context.Context, config Config, logger *slog.Logger, clk clock.Clock) (*Manager, LoadResult) {
	manager := NewManager(config, logger, clk)
	result := manager.Load(ctx)

	if !config.isLocalFile() {
		manager.wg.Add(1)
		go manager.refreshPeriodically()
	}
	return manager, result
}

// Load fetches and parses the schedule and publishes it. On failure the previously loaded
// dataset stays current (or the empty dataset if none ever loaded) and the result is degraded.
func (manager *Manager) Load(ctx context.Context) LoadResult {
	manager.loadMutex.Lock()
	defer manager.loadMutex.Unlock()

	started := manager.clock.Now()
	static, err := manager.fetchAndParse(ctx)

	var result LoadResult
	if err != nil {
		logging.LogError(manager.logger, "Static GTFS load failed, serving previous dataset", err,
			slog.String("source", manager.config.StaticURL))
		result = LoadResult{
			Static:   manager.current.Load(),
			Status:   LoadDegraded,
			Err:      err,
			LoadedAt: manager.clock.Now(),
		}
	} else {
		manager.current.Store(static)
		result = LoadResult{Static: static, Status: LoadOK, LoadedAt: manager.clock.Now()}

		summary := static.Summary()
		logging.LogOperation(manager.logger, "gtfs_static_data_loaded",
			slog.String("source", manager.config.StaticURL),
			slog.Int("routes", summary.Routes),
			slog.Int("stops", summary.Stops),
			slog.Int("trips", summary.Trips),
			slog.Int("stop_times", summary.StopTimes),
			slog.Duration("duration", manager.clock.Now().Sub(started)))
	}

	manager.lastLoad.Store(&result)
	return result
}

func (manager *Manager) fetchAndParse(ctx context.Context) (*Static, error) {
	b, err := manager.source.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("error reading GTFS data: %w", err)
	}
	static, err := ParseStatic(b)
	if err != nil {
		return nil, fmt.Errorf("error parsing GTFS data: %w", err)
	}
	return static, nil
}

// Current returns the dataset in service. It is never nil.
func (manager *Manager) Current() *Static {
	return manager.current.Load()
}

// LastLoad returns the outcome of the most recent load attempt.
func (manager *Manager) LastLoad() LoadResult {
	return *manager.lastLoad.Load()
}

func (manager *Manager) refreshPeriodically() {
	defer manager.wg.Done()

	ticker := time.NewTicker(manager.config.cacheTTL())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), downloadTimeout)
			manager.Load(ctx)
			cancel()
		case <-manager.shutdownChan:
			logging.LogOperation(manager.logger, "shutting_down_static_gtfs_updates")
			return
		}
	}
}

// Shutdown stops the refresh goroutine. It is safe to call more than once.
func (manager *Manager) Shutdown() {
	manager.shutdownOnce.Do(func() {
		close(manager.shutdownChan)
		manager.wg.Wait()
	})
}
