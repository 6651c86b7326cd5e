// Package publisher announces realtime poll outcomes on NATS so downstream consumers can
// refresh without polling the API.
package publisher

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"catabus.org/transit/internal/logging"
	"catabus.org/transit/internal/realtime"
)

const subjectPrefix = "catabus.realtime"

// PublisherMetrics receives publish accounting; *metrics.Collector implements it.
type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

// conn is the part of *nats.Conn the notifier uses.
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
	Close()
}

// NATSNotifier is a realtime.Observer that publishes one message per poll cycle.
type NATSNotifier struct {
	nc      conn
	logger  *slog.Logger
	metrics PublisherMetrics
	now     func() time.Time
}

// UpdateMessage is the JSON payload published after a poll cycle.
type UpdateMessage struct {
	Category   string    `json:"category"`
	Success    bool      `json:"success"`
	Entities   int       `json:"entities,omitempty"`
	DurationMs int64     `json:"durationMs,omitempty"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

func NewNATSNotifier(url string, logger *slog.Logger, m PublisherMetrics) (*NATSNotifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "nats_notifier"))

	nc, err := nats.Connect(url,
		nats.Name("catabus-transit"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			if err != nil {
				logging.LogError(logger, "nats disconnected", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			logging.LogOperation(logger, "nats_reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logging.LogOperation(logger, "nats_closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return newNotifier(nc, logger, m), nil
}

func newNotifier(nc conn, logger *slog.Logger, m PublisherMetrics) *NATSNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSNotifier{nc: nc, logger: logger, metrics: m, now: time.Now}
}

// Close flushes pending messages and closes the connection.
func (n *NATSNotifier) Close() {
	if n.nc == nil {
		return
	}
	if err := n.nc.Drain(); err != nil {
		logging.LogError(n.logger, "nats drain failed", err)
	}
	n.nc.Close()
}

func (n *NATSNotifier) PollSucceeded(category realtime.Category, entities int, duration time.Duration) {
	n.publish(Subject(category), UpdateMessage{
		Category:   string(category),
		Success:    true,
		Entities:   entities,
		DurationMs: duration.Milliseconds(),
		At:         n.now().UTC(),
	})
}

func (n *NATSNotifier) PollFailed(category realtime.Category, err error) {
	msg := UpdateMessage{Category: string(category), At: n.now().UTC()}
	if err != nil {
		msg.Error = err.Error()
	}
	n.publish(Subject(category)+".error", msg)
}

func (n *NATSNotifier) publish(subject string, msg UpdateMessage) {
	b, err := json.Marshal(msg)
	if err != nil {
		logging.LogError(n.logger, "failed to encode NATS message", err)
		return
	}

	start := time.Now()
	err = n.nc.Publish(subject, b)
	if n.metrics != nil {
		n.metrics.PublishObserve(time.Since(start))
		if err != nil {
			n.metrics.NATSPublishErrInc()
		} else {
			n.metrics.NATSPublishedInc()
		}
	}
	if err != nil {
		logging.LogError(n.logger, "nats publish failed", err, slog.String("subject", subject))
	}
}

// Subject is the NATS subject carrying updates for category.
func Subject(category realtime.Category) string {
	return subjectPrefix + "." + subjectToken(string(category))
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
