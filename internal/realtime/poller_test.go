package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"catabus.org/transit/internal/clock"
)

type fakeFetcher struct {
	mu       sync.Mutex
	payloads map[string][]byte
	errs     map[string]error
	calls    map[string]int
	block    chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{payloads: map[string][]byte{}, errs: map[string]error{}, calls: map[string]int{}}
}

func (f *fakeFetcher) set(url string, payload []byte, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads[url] = payload
	f.errs[url] = err
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.calls[url]++
	payload, err, block := f.payloads[url], f.errs[url], f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return payload, err
}

func (f *fakeFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

type recordingObserver struct {
	mu        sync.Mutex
	successes map[Category]int
	failures  map[Category][]error
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{successes: map[Category]int{}, failures: map[Category][]error{}}
}

func (o *recordingObserver) PollSucceeded(category Category, entities int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.successes[category] += entities
}

func (o *recordingObserver) PollFailed(category Category, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures[category] = append(o.failures[category], err)
}

const (
	vehiclesURL = "https://feed.test/vehicles"
	updatesURL  = "https://feed.test/trip-updates"
	alertsURL   = "https://feed.test/alerts"
)

func testConfig() Config {
	return Config{
		VehiclePositionsURL: vehiclesURL,
		TripUpdatesURL:      updatesURL,
		ServiceAlertsURL:    alertsURL,
		PollInterval:        time.Second,
		Stagger:             0,
		ShutdownGrace:       time.Second,
	}
}

// unthrottle lifts the per-feed rate floor so tests can run cycles back to back.
func unthrottle(p *Poller) {
	for c := range p.limiters {
		p.limiters[c] = rate.NewLimiter(rate.Inf, 1)
	}
}

func TestConfigFeedsClampInterval(t *testing.T) {
	feeds := testConfig().Feeds()
	require.Len(t, feeds, 3)
	for _, f := range feeds {
		assert.Equal(t, MinPollInterval, f.Interval)
	}

	cfg := testConfig()
	cfg.ServiceAlertsURL = ""
	cfg.PollInterval = time.Minute
	feeds = cfg.Feeds()
	require.Len(t, feeds, 2)
	assert.Equal(t, time.Minute, feeds[0].Interval)
}

func TestPollOncePublishesEachCategory(t *testing.T) {
	now := time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC)
	fetcher := newFakeFetcher()
	fetcher.set(vehiclesURL, marshalFeed(t, feedMessage(vehicleEntity("e1", "301", "N1", "N", 40.8, -77.86))), nil)
	fetcher.set(updatesURL, marshalFeed(t, feedMessage(tripUpdateEntity("N1", delayUpdate("HUB", 180)))), nil)
	fetcher.set(alertsURL, marshalFeed(t, feedMessage(alertEntity("a1", "N"), alertEntity("a2", "V"))), nil)

	observer := newRecordingObserver()
	snapshot := NewSnapshot()
	poller := NewPoller(testConfig(), fetcher, snapshot, clock.NewMockClock(now), nil, observer)

	ctx := context.Background()
	require.NoError(t, poller.PollOnce(ctx, CategoryVehicles))
	require.NoError(t, poller.PollOnce(ctx, CategoryTripUpdates))
	require.NoError(t, poller.PollOnce(ctx, CategoryAlerts))

	assert.Contains(t, snapshot.Vehicles().ByID, "301")
	_, ok := snapshot.TripUpdate("N1")
	assert.True(t, ok)
	assert.Len(t, snapshot.Alerts().Alerts, 2)
	assert.Equal(t, Freshness{Vehicles: now, TripUpdates: now, Alerts: now}, snapshot.Freshness())

	assert.Equal(t, map[Category]int{CategoryVehicles: 1, CategoryTripUpdates: 1, CategoryAlerts: 2}, observer.successes)
	assert.Empty(t, observer.failures)
}

func TestFailedPollKeepsPreviousSnapshot(t *testing.T) {
	now := time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC)
	fetcher := newFakeFetcher()
	fetcher.set(vehiclesURL, marshalFeed(t, feedMessage(vehicleEntity("e1", "301", "", "", 40.8, -77.86))), nil)

	observer := newRecordingObserver()
	snapshot := NewSnapshot()
	clk := clock.NewMockClock(now)
	poller := NewPoller(testConfig(), fetcher, snapshot, clk, nil, observer)
	unthrottle(poller)

	ctx := context.Background()
	require.NoError(t, poller.PollOnce(ctx, CategoryVehicles))
	published := snapshot.Vehicles()
	clk.Advance(time.Minute)

	fetcher.set(vehiclesURL, nil, &NetworkError{URL: vehiclesURL, StatusCode: 503, Err: errors.New("unavailable")})
	err := poller.PollOnce(ctx, CategoryVehicles)
	var netErr *NetworkError
	assert.True(t, errors.As(err, &netErr))
	assert.Same(t, published, snapshot.Vehicles())

	fetcher.set(vehiclesURL, []byte("\x0a\x10truncated"), nil)
	err = poller.PollOnce(ctx, CategoryVehicles)
	var decodeErr *DecodeError
	assert.True(t, errors.As(err, &decodeErr))
	assert.Same(t, published, snapshot.Vehicles())
	assert.Equal(t, now, snapshot.Freshness().Vehicles)

	assert.Len(t, observer.failures[CategoryVehicles], 2)

	fetcher.set(vehiclesURL, marshalFeed(t, feedMessage(vehicleEntity("e2", "302", "", "", 40.79, -77.85))), nil)
	require.NoError(t, poller.PollOnce(ctx, CategoryVehicles))

	replaced := snapshot.Vehicles()
	assert.NotSame(t, published, replaced)
	assert.Contains(t, replaced.ByID, "302")
	assert.NotContains(t, replaced.ByID, "301")
	assert.Equal(t, now.Add(time.Minute), replaced.UpdatedAt)
	assert.Equal(t, now.Add(time.Minute), snapshot.Freshness().Vehicles)
}

func TestPollOnceHonorsRateFloor(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.set(alertsURL, marshalFeed(t, feedMessage()), nil)
	poller := NewPoller(testConfig(), fetcher, NewSnapshot(), nil, nil)

	require.NoError(t, poller.PollOnce(context.Background(), CategoryAlerts))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.Error(t, poller.PollOnce(ctx, CategoryAlerts))
	assert.Equal(t, 1, fetcher.callCount(alertsURL), "second request inside the interval never reaches upstream")
}

func TestPollOnceUnknownCategory(t *testing.T) {
	cfg := testConfig()
	cfg.ServiceAlertsURL = ""
	poller := NewPoller(cfg, newFakeFetcher(), NewSnapshot(), nil, nil)
	assert.Error(t, poller.PollOnce(context.Background(), CategoryAlerts))
}

func TestCancelledCycleDoesNotPublish(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.block = make(chan struct{})
	fetcher.set(vehiclesURL, marshalFeed(t, feedMessage(vehicleEntity("e1", "301", "", "", 40.8, -77.86))), nil)

	observer := newRecordingObserver()
	snapshot := NewSnapshot()
	poller := NewPoller(testConfig(), fetcher, snapshot, nil, nil, observer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- poller.PollOnce(ctx, CategoryVehicles) }()

	require.Eventually(t, func() bool { return fetcher.callCount(vehiclesURL) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	close(fetcher.block)

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Empty(t, snapshot.Vehicles().ByID, "late result is discarded")
	assert.Empty(t, observer.failures, "cancellation is not reported as a failed poll")
}

func TestStartAndStop(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.set(vehiclesURL, marshalFeed(t, feedMessage(vehicleEntity("e1", "301", "", "", 40.8, -77.86))), nil)
	fetcher.set(updatesURL, marshalFeed(t, feedMessage(tripUpdateEntity("N1"))), nil)
	fetcher.set(alertsURL, marshalFeed(t, feedMessage(alertEntity("a1", "N"))), nil)

	snapshot := NewSnapshot()
	poller := NewPoller(testConfig(), fetcher, snapshot, nil, nil)
	unthrottle(poller)

	poller.Start(context.Background())
	poller.Start(context.Background())

	require.Eventually(t, func() bool {
		f := snapshot.Freshness()
		return !f.Vehicles.IsZero() && !f.TripUpdates.IsZero() && !f.Alerts.IsZero()
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, poller.Stop(context.Background()))
	require.NoError(t, poller.Stop(context.Background()))

	// Loops are gone: nothing fetches again although the limiter is lifted.
	calls := fetcher.callCount(vehiclesURL)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, fetcher.callCount(vehiclesURL))
}

func TestStopWaitsForStaggeredLoops(t *testing.T) {
	cfg := testConfig()
	cfg.Stagger = time.Hour
	fetcher := newFakeFetcher()
	fetcher.set(vehiclesURL, marshalFeed(t, feedMessage()), nil)

	poller := NewPoller(cfg, fetcher, NewSnapshot(), nil, nil)
	poller.Start(context.Background())

	require.Eventually(t, func() bool { return fetcher.callCount(vehiclesURL) == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, fetcher.callCount(updatesURL), "second loop is still in its stagger delay")

	require.NoError(t, poller.Stop(context.Background()))
}

func TestStopTimesOutOnStuckFetch(t *testing.T) {
	cfg := testConfig()
	cfg.ShutdownGrace = 50 * time.Millisecond
	cfg.ServiceAlertsURL = ""
	cfg.TripUpdatesURL = ""

	fetcher := newFakeFetcher()
	fetcher.block = make(chan struct{})
	defer close(fetcher.block)

	poller := NewPoller(cfg, fetcher, NewSnapshot(), nil, nil)
	poller.Start(context.Background())
	require.Eventually(t, func() bool { return fetcher.callCount(vehiclesURL) == 1 }, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, poller.Stop(context.Background()), ErrStopTimeout)
}
