package appconf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *FileConfig {
	config := DefaultFileConfig()
	return &config
}

func TestLoadFromFile_ValidConfig(t *testing.T) {
	config, err := LoadFromFile("../../testdata/config_valid.yaml")
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, 3000, config.Port)
	assert.Equal(t, "development", config.Env)

	// Defaults
	assert.Equal(t, DefaultRateLimit, config.RateLimit)
	assert.Equal(t, DefaultStaticURL, config.StaticFeed.URL)
	assert.Equal(t, DefaultCacheTTL, config.StaticFeed.CacheTTL)
	assert.Equal(t, DefaultVehiclesURL, config.RealtimeFeed.VehiclePositionsURL)
	assert.Equal(t, DefaultTripUpdatesURL, config.RealtimeFeed.TripUpdatesURL)
	assert.Equal(t, DefaultServiceAlertsURL, config.RealtimeFeed.ServiceAlertsURL)
	assert.Equal(t, DefaultPollInterval, config.RealtimeFeed.PollInterval)
	assert.Equal(t, DefaultRequestTimeout, config.RealtimeFeed.RequestTimeout)
	assert.Equal(t, DefaultTimezone, config.Timezone)
}

func TestLoadFromFile_FullJSONConfig(t *testing.T) {
	config, err := LoadFromFile("../../testdata/config_full.json")
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, 8080, config.Port)
	assert.Equal(t, "production", config.Env)
	assert.Equal(t, 50, config.RateLimit)
	assert.True(t, config.Verbose)
	assert.True(t, config.MetricsEnabled)
	assert.Equal(t, "nats://127.0.0.1:4222", config.NATSURL)
	assert.Equal(t, "https://example.com/gtfs.zip", config.StaticFeed.URL)
	assert.Equal(t, "Authorization", config.StaticFeed.AuthHeaderName)
	assert.Equal(t, "Bearer token456", config.StaticFeed.AuthHeaderValue)
	assert.Equal(t, 12*time.Hour, config.StaticFeed.CacheTTL)

	feed := config.RealtimeFeed
	assert.Equal(t, "https://api.example.com/trip-updates.pb", feed.TripUpdatesURL)
	assert.Equal(t, "https://api.example.com/vehicle-positions.pb", feed.VehiclePositionsURL)
	assert.Equal(t, "https://api.example.com/service-alerts.pb", feed.ServiceAlertsURL)
	assert.Equal(t, 20*time.Second, feed.PollInterval)
	assert.Equal(t, 10*time.Second, feed.RequestTimeout)
	assert.Equal(t, 2*time.Second, feed.Stagger)
}

func TestLoadFromFile_Malformed(t *testing.T) {
	config, err := LoadFromFile("../../testdata/config_malformed.yaml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadFromFile_InvalidConfig(t *testing.T) {
	config, err := LoadFromFile("../../testdata/config_invalid.yaml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, err.Error(), "env must be one of")
}

func TestLoadFromFile_FileNotFound(t *testing.T) {
	config, err := LoadFromFile("nonexistent.yaml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to stat config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *FileConfig)
		wantErr string
	}{
		{"defaults are valid", func(c *FileConfig) {}, ""},
		{"port too low", func(c *FileConfig) { c.Port = -1 }, "port must be between"},
		{"port too high", func(c *FileConfig) { c.Port = 99999 }, "port must be between"},
		{"bad env", func(c *FileConfig) { c.Env = "staging" }, "env must be one of"},
		{"rate limit", func(c *FileConfig) { c.RateLimit = -5 }, "rate-limit must be at least 1"},
		{"file url", func(c *FileConfig) { c.StaticFeed.URL = "file:///etc/gtfs.zip" }, "file:// URLs are not allowed"},
		{"static path traversal", func(c *FileConfig) { c.StaticFeed.URL = "../../etc/gtfs.zip" }, "gtfs-static-feed.url"},
		{"cache dir traversal", func(c *FileConfig) { c.StaticFeed.CacheDir = "./cache/../../tmp" }, "cache-dir"},
		{"local static path", func(c *FileConfig) { c.StaticFeed.URL = "/data/google_transit.zip" }, ""},
		{"partial static auth", func(c *FileConfig) { c.StaticFeed.AuthHeaderName = "Authorization" }, "both auth-header-name and auth-header-value must be provided together"},
		{"partial realtime auth", func(c *FileConfig) { c.RealtimeFeed.RealTimeAuthHeaderValue = "secret" }, "both auth-header-name and auth-header-value must be provided together"},
		{"poll faster than floor", func(c *FileConfig) { c.RealtimeFeed.PollInterval = 5 * time.Second }, "poll-interval must be at least"},
		{"bad timezone", func(c *FileConfig) { c.Timezone = "Mars/Olympus" }, "timezone"},
		{"bad realtime url", func(c *FileConfig) { c.RealtimeFeed.TripUpdatesURL = "not a url" }, "TripUpdatesURL"},
		{"bad nats url", func(c *FileConfig) { c.NATSURL = "::" }, "NATSURL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(config)
			err := config.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSetDefaults_PartialRealtimeFeed(t *testing.T) {
	config := &FileConfig{
		RealtimeFeed: RealtimeFeed{VehiclePositionsURL: "https://example.com/vp.pb"},
	}
	config.setDefaults()

	assert.Equal(t, "https://example.com/vp.pb", config.RealtimeFeed.VehiclePositionsURL)
	assert.Empty(t, config.RealtimeFeed.TripUpdatesURL, "explicit feed sets are not mixed with defaults")
	assert.Empty(t, config.RealtimeFeed.ServiceAlertsURL)
}

func TestToAppConfig(t *testing.T) {
	config := validConfig()
	config.Port = 8080
	config.Env = "production"
	config.RateLimit = 50
	config.NATSURL = "nats://localhost:4222"
	config.MetricsEnabled = true

	appConfig := config.ToAppConfig()
	assert.Equal(t, 8080, appConfig.Port)
	assert.Equal(t, Production, appConfig.Env)
	assert.Equal(t, 50, appConfig.RateLimit)
	assert.Equal(t, "nats://localhost:4222", appConfig.NATSURL)
	assert.True(t, appConfig.MetricsEnabled)
}

func TestToGtfsConfigData(t *testing.T) {
	config := validConfig()
	config.StaticFeed.AuthHeaderName = "X-API-Key"
	config.StaticFeed.AuthHeaderValue = "secret123"
	config.RealtimeFeed.RealTimeAuthHeaderName = "Authorization"
	config.RealtimeFeed.RealTimeAuthHeaderValue = "Bearer token123"

	data := config.ToGtfsConfigData()
	assert.Equal(t, DefaultStaticURL, data.StaticURL)
	assert.Equal(t, "X-API-Key", data.StaticAuthHeaderKey)
	assert.Equal(t, "secret123", data.StaticAuthHeaderValue)
	assert.Equal(t, "Authorization", data.RealTimeAuthHeaderKey)
	assert.Equal(t, "Bearer token123", data.RealTimeAuthHeaderValue)
	assert.Equal(t, DefaultVehiclesURL, data.VehiclePositionsURL)
	assert.Equal(t, DefaultPollInterval, data.PollInterval)
	assert.Equal(t, DefaultStagger, data.Stagger)
	assert.Equal(t, Development, data.Env)
	assert.Equal(t, DefaultTimezone, data.Timezone)
}

func TestLoadFromFile_FileSizeLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.yaml")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(maxConfigFileSize+1))
	require.NoError(t, f.Close())

	config, err := LoadFromFile(path)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "config file too large")
}
