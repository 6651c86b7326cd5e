package appconf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("CATABUS_PORT", "9090")
	t.Setenv("CATABUS_ENV", "production")
	t.Setenv("CATABUS_TRIP_UPDATES_URL", "https://example.com/tu.pb")
	t.Setenv("CATABUS_POLL_INTERVAL", "45s")
	t.Setenv("CATABUS_METRICS", "true")

	config := validConfig()
	require.NoError(t, config.ApplyEnvOverrides())

	assert.Equal(t, 9090, config.Port)
	assert.Equal(t, "production", config.Env)
	assert.Equal(t, "https://example.com/tu.pb", config.RealtimeFeed.TripUpdatesURL)
	assert.Equal(t, 45*time.Second, config.RealtimeFeed.PollInterval)
	assert.True(t, config.MetricsEnabled)
	assert.Equal(t, DefaultVehiclesURL, config.RealtimeFeed.VehiclePositionsURL)
}

func TestApplyEnvOverrides_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port", "CATABUS_PORT", "eighty"},
		{"duration", "CATABUS_CACHE_TTL", "a day"},
		{"bool", "CATABUS_VERBOSE", "sometimes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			config := validConfig()
			err := config.ApplyEnvOverrides()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("missing file is ignored", func(t *testing.T) {
		assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
	})

	t.Run("loads variables", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.env")
		require.NoError(t, os.WriteFile(path, []byte("CATABUS_TEST_DOTENV=loaded\n"), 0o600))
		t.Cleanup(func() { _ = os.Unsetenv("CATABUS_TEST_DOTENV") })

		require.NoError(t, LoadDotEnv(path))
		assert.Equal(t, "loaded", os.Getenv("CATABUS_TEST_DOTENV"))
	})
}

func TestFinalize(t *testing.T) {
	config := &FileConfig{Port: 5000}
	require.NoError(t, config.Finalize())
	assert.Equal(t, 5000, config.Port)
	assert.Equal(t, DefaultStaticURL, config.StaticFeed.URL)

	bad := &FileConfig{Env: "qa"}
	assert.Error(t, bad.Finalize())
}
