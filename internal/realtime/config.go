package realtime

import "time"

const (
	DefaultVehiclePositionsURL = "https://realtime.catabus.com/InfoPoint/GTFS-Realtime.ashx?Type=VehiclePosition"
	DefaultTripUpdatesURL      = "https://realtime.catabus.com/InfoPoint/GTFS-Realtime.ashx?Type=TripUpdate"
	DefaultServiceAlertsURL    = "https://realtime.catabus.com/InfoPoint/GTFS-Realtime.ashx?Type=Alert"

	// MinPollInterval is the upstream rate-limit floor. Shorter intervals are raised to it.
	MinPollInterval      = 15 * time.Second
	DefaultStagger       = 5 * time.Second
	DefaultShutdownGrace = 5 * time.Second
)

type Config struct {
	VehiclePositionsURL     string
	TripUpdatesURL          string
	ServiceAlertsURL        string
	RealTimeAuthHeaderKey   string
	RealTimeAuthHeaderValue string
	PollInterval            time.Duration
	RequestTimeout          time.Duration
	Stagger                 time.Duration
	ShutdownGrace           time.Duration
}

// DefaultConfig polls the CATA endpoints at the rate-limit floor.
func DefaultConfig() Config {
	return Config{
		VehiclePositionsURL: DefaultVehiclePositionsURL,
		TripUpdatesURL:      DefaultTripUpdatesURL,
		ServiceAlertsURL:    DefaultServiceAlertsURL,
		PollInterval:        MinPollInterval,
		RequestTimeout:      DefaultRequestTimeout,
		Stagger:             DefaultStagger,
		ShutdownGrace:       DefaultShutdownGrace,
	}
}

// Feeds lists the configured endpoints in polling order. Categories without a URL are omitted.
func (config Config) Feeds() []Feed {
	interval := config.PollInterval
	if interval < MinPollInterval {
		interval = MinPollInterval
	}

	var feeds []Feed
	for _, f := range []Feed{
		{Category: CategoryVehicles, URL: config.VehiclePositionsURL},
		{Category: CategoryTripUpdates, URL: config.TripUpdatesURL},
		{Category: CategoryAlerts, URL: config.ServiceAlertsURL},
	} {
		if f.URL == "" {
			continue
		}
		f.Interval = interval
		feeds = append(feeds, f)
	}
	return feeds
}

func (config Config) headers() map[string]string {
	headers := map[string]string{}
	if config.RealTimeAuthHeaderKey != "" && config.RealTimeAuthHeaderValue != "" {
		headers[config.RealTimeAuthHeaderKey] = config.RealTimeAuthHeaderValue
	}
	return headers
}
