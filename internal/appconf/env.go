package appconf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "CATABUS_"

// LoadDotEnv loads variables from the given .env files (default ".env") into the process
// environment. Missing files are not an error; variables already set are left alone.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnvOverrides overwrites fields with any CATABUS_* variables present in the environment.
func (config *FileConfig) ApplyEnvOverrides() error {
	stringVars := map[string]*string{
		"ENV":                      &config.Env,
		"LOG_FILE":                 &config.LogFile,
		"NATS_URL":                 &config.NATSURL,
		"TIMEZONE":                 &config.Timezone,
		"STATIC_URL":               &config.StaticFeed.URL,
		"STATIC_AUTH_HEADER_NAME":  &config.StaticFeed.AuthHeaderName,
		"STATIC_AUTH_HEADER_VALUE": &config.StaticFeed.AuthHeaderValue,
		"CACHE_DIR":                &config.StaticFeed.CacheDir,
		"VEHICLE_POSITIONS_URL":    &config.RealtimeFeed.VehiclePositionsURL,
		"TRIP_UPDATES_URL":         &config.RealtimeFeed.TripUpdatesURL,
		"SERVICE_ALERTS_URL":       &config.RealtimeFeed.ServiceAlertsURL,
		"RT_AUTH_HEADER_NAME":      &config.RealtimeFeed.RealTimeAuthHeaderName,
		"RT_AUTH_HEADER_VALUE":     &config.RealtimeFeed.RealTimeAuthHeaderValue,
	}
	for name, target := range stringVars {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			*target = v
		}
	}

	intVars := map[string]*int{
		"PORT":       &config.Port,
		"RATE_LIMIT": &config.RateLimit,
	}
	for name, target := range intVars {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s%s: %q", envPrefix, name, v)
			}
			*target = n
		}
	}

	durationVars := map[string]*time.Duration{
		"CACHE_TTL":       &config.StaticFeed.CacheTTL,
		"POLL_INTERVAL":   &config.RealtimeFeed.PollInterval,
		"REQUEST_TIMEOUT": &config.RealtimeFeed.RequestTimeout,
	}
	for name, target := range durationVars {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s%s: %q", envPrefix, name, v)
			}
			*target = d
		}
	}

	boolVars := map[string]*bool{
		"VERBOSE": &config.Verbose,
		"METRICS": &config.MetricsEnabled,
	}
	for name, target := range boolVars {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s%s: %q", envPrefix, name, v)
			}
			*target = b
		}
	}

	return nil
}
