package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"golang.org/x/time/rate"

	"catabus.org/transit/internal/clock"
	"catabus.org/transit/internal/logging"
)

type Category string

const (
	CategoryVehicles    Category = "vehicles"
	CategoryTripUpdates Category = "trip_updates"
	CategoryAlerts      Category = "alerts"
)

// Feed is one realtime endpoint and its polling interval.
type Feed struct {
	Category Category
	URL      string
	Interval time.Duration
}

// Observer is told the outcome of every poll cycle.
type Observer interface {
	PollSucceeded(category Category, entities int, duration time.Duration)
	PollFailed(category Category, err error)
}

// ErrStopTimeout is returned by Stop when poll loops outlive the shutdown grace period.
var ErrStopTimeout = errors.New("realtime poller did not stop within grace period")

// Poller runs one fetch, decode, and publish loop per feed. A failed cycle leaves the
// category's previous snapshot in place and the loop carries on.
type Poller struct {
	feeds          []Feed
	limiters       map[Category]*rate.Limiter
	fetcher        Fetcher
	snapshot       *Snapshot
	clock          clock.Clock
	logger         *slog.Logger
	observers      []Observer
	requestTimeout time.Duration
	stagger        time.Duration
	shutdownGrace  time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewPoller builds a poller for config's feeds. A nil fetcher uses an HTTPFetcher carrying
// the configured auth header.
func NewPoller(config Config, fetcher Fetcher, snapshot *Snapshot, clk clock.Clock, logger *slog.Logger, observers ...Observer) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	if fetcher == nil {
		fetcher = NewHTTPFetcher(config.RequestTimeout, config.headers(), logger)
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if config.Stagger < 0 {
		config.Stagger = 0
	}
	if config.ShutdownGrace <= 0 {
		config.ShutdownGrace = DefaultShutdownGrace
	}

	feeds := config.Feeds()
	limiters := make(map[Category]*rate.Limiter, len(feeds))
	for _, f := range feeds {
		limiters[f.Category] = rate.NewLimiter(rate.Every(f.Interval), 1)
	}

	return &Poller{
		feeds:          feeds,
		limiters:       limiters,
		fetcher:        fetcher,
		snapshot:       snapshot,
		clock:          clk,
		logger:         logger.With(slog.String("component", "gtfs_realtime_poller")),
		observers:      observers,
		requestTimeout: config.RequestTimeout,
		stagger:        config.Stagger,
		shutdownGrace:  config.ShutdownGrace,
	}
}

func (p *Poller) Feeds() []Feed {
	return append([]Feed(nil), p.feeds...)
}

// Start launches the poll loops. Loop i begins i*stagger after Start. Calling Start twice is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	for i, feed := range p.feeds {
		p.wg.Add(1)
		go p.run(ctx, feed, time.Duration(i)*p.stagger)
	}
	logging.LogOperation(p.logger, "gtfs_realtime_polling_started", slog.Int("feeds", len(p.feeds)))
}

// Stop cancels the loops and waits for them, bounded by ctx and the shutdown grace period.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	grace := time.NewTimer(p.shutdownGrace)
	defer grace.Stop()

	select {
	case <-done:
		logging.LogOperation(p.logger, "shutting_down_realtime_updates")
		return nil
	case <-grace.C:
		return ErrStopTimeout
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrStopTimeout, ctx.Err())
	}
}

func (p *Poller) run(ctx context.Context, feed Feed, delay time.Duration) {
	defer p.wg.Done()

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	for {
		if err := p.poll(ctx, feed); err != nil && ctx.Err() != nil {
			return
		}
	}
}

// PollOnce runs a single cycle for category, honoring the feed's rate limit.
func (p *Poller) PollOnce(ctx context.Context, category Category) error {
	for _, feed := range p.feeds {
		if feed.Category == category {
			return p.poll(ctx, feed)
		}
	}
	return fmt.Errorf("no realtime feed configured for %s", category)
}

func (p *Poller) poll(ctx context.Context, feed Feed) error {
	if err := p.limiters[feed.Category].Wait(ctx); err != nil {
		return err
	}

	started := p.clock.Now()
	entities, err := p.fetchAndPublish(ctx, feed)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logging.LogError(p.logger, "Error polling GTFS-RT feed", err,
			slog.String("category", string(feed.Category)),
			slog.String("url", feed.URL))
		for _, o := range p.observers {
			o.PollFailed(feed.Category, err)
		}
		return err
	}

	duration := p.clock.Now().Sub(started)
	p.logger.Debug("gtfs_realtime_feed_updated",
		slog.String("category", string(feed.Category)),
		slog.Int("entities", entities),
		slog.Duration("duration", duration))
	for _, o := range p.observers {
		o.PollSucceeded(feed.Category, entities, duration)
	}
	return nil
}

func (p *Poller) fetchAndPublish(ctx context.Context, feed Feed) (int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, p.requestTimeout)
	defer cancel()

	payload, err := p.fetcher.Fetch(reqCtx, feed.URL)
	if err != nil {
		return 0, err
	}
	msg, err := Decode(feed.URL, payload)
	if err != nil {
		return 0, err
	}

	// A cycle cancelled while its fetch was in flight must not publish.
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return p.publish(feed.Category, msg, p.clock.Now()), nil
}

func (p *Poller) publish(category Category, msg *gtfsrt.FeedMessage, receivedAt time.Time) int {
	switch category {
	case CategoryVehicles:
		vehicles := TranslateVehicles(msg)
		p.snapshot.PublishVehicles(vehicles, receivedAt)
		return len(vehicles)
	case CategoryTripUpdates:
		updates := TranslateTripUpdates(msg, receivedAt)
		p.snapshot.PublishTripUpdates(updates, receivedAt)
		return len(updates)
	case CategoryAlerts:
		alerts := TranslateAlerts(msg)
		p.snapshot.PublishAlerts(alerts, receivedAt)
		return len(alerts)
	default:
		return 0
	}
}
