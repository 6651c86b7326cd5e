// Package metrics exposes poll, static load, HTTP and NATS counters on a private Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"catabus.org/transit/internal/gtfs"
	"catabus.org/transit/internal/realtime"
)

type Collector struct {
	reg *prometheus.Registry

	Polls            *prometheus.CounterVec
	PollDuration     *prometheus.HistogramVec
	FeedEntities     *prometheus.GaugeVec
	LastPollSuccess  *prometheus.GaugeVec
	StaticLoads      *prometheus.CounterVec
	StaticEntities   *prometheus.GaugeVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	NATSPublished    prometheus.Counter
	NATSPublishErrs  prometheus.Counter
	NATSConnected    prometheus.Gauge
	PublishDurations prometheus.Histogram
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catabus_realtime_polls_total",
			Help: "Realtime poll cycles by feed category and outcome.",
		}, []string{"category", "outcome"}),
		PollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catabus_realtime_poll_duration_seconds",
			Help:    "Duration of successful poll cycles.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"category"}),
		FeedEntities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "catabus_realtime_entities",
			Help: "Entities in the latest published snapshot per category.",
		}, []string{"category"}),
		LastPollSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "catabus_realtime_last_success_timestamp_seconds",
			Help: "Unix time of the last successful poll per category.",
		}, []string{"category"}),
		StaticLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catabus_static_loads_total",
			Help: "Static schedule load attempts by resulting status.",
		}, []string{"status"}),
		StaticEntities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "catabus_static_entities",
			Help: "Entities in the static schedule in service.",
		}, []string{"kind"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catabus_http_requests_total",
			Help: "API requests by method and status code.",
		}, []string{"method", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catabus_http_request_duration_seconds",
			Help:    "API request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catabus_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catabus_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catabus_nats_connected",
			Help: "1 if the NATS connection is established, 0 otherwise.",
		}),
		PublishDurations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "catabus_nats_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
	}

	reg.MustRegister(
		c.Polls, c.PollDuration, c.FeedEntities, c.LastPollSuccess,
		c.StaticLoads, c.StaticEntities,
		c.HTTPRequests, c.HTTPDuration,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected, c.PublishDurations,
	)
	return c
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{Registry: c.reg})
}

// InstrumentHandler counts and times every request passing through next.
func (c *Collector) InstrumentHandler(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerDuration(c.HTTPDuration,
		promhttp.InstrumentHandlerCounter(c.HTTPRequests, next))
}

func (c *Collector) PollSucceeded(category realtime.Category, entities int, duration time.Duration) {
	label := string(category)
	c.Polls.WithLabelValues(label, "success").Inc()
	c.PollDuration.WithLabelValues(label).Observe(duration.Seconds())
	c.FeedEntities.WithLabelValues(label).Set(float64(entities))
	c.LastPollSuccess.WithLabelValues(label).SetToCurrentTime()
}

func (c *Collector) PollFailed(category realtime.Category, _ error) {
	c.Polls.WithLabelValues(string(category), "failure").Inc()
}

// RecordStaticLoad counts a load attempt and tracks the size of the dataset in service.
func (c *Collector) RecordStaticLoad(result gtfs.LoadResult) {
	c.StaticLoads.WithLabelValues(result.Status.String()).Inc()
	if result.Static == nil {
		return
	}
	summary := result.Static.Summary()
	for kind, n := range map[string]int{
		"routes":     summary.Routes,
		"stops":      summary.Stops,
		"trips":      summary.Trips,
		"stop_times": summary.StopTimes,
		"shapes":     summary.Shapes,
	} {
		c.StaticEntities.WithLabelValues(kind).Set(float64(n))
	}
}

func (c *Collector) NATSPublishedInc()  { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc() { c.NATSPublishErrs.Inc() }

func (c *Collector) PublishObserve(d time.Duration) { c.PublishDurations.Observe(d.Seconds()) }

func (c *Collector) NATSSetConnected(connected bool) {
	c.NATSConnected.Set(float64(boolToInt(connected)))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
