package appconf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const maxConfigFileSize = 10 * 1024 * 1024

// Defaults for the CATA feeds.
const (
	DefaultPort             = 4000
	DefaultRateLimit        = 100
	DefaultStaticURL        = "https://catabus.com/wp-content/uploads/google_transit.zip"
	DefaultVehiclesURL      = "https://realtime.catabus.com/InfoPoint/GTFS-Realtime.ashx?Type=VehiclePosition"
	DefaultTripUpdatesURL   = "https://realtime.catabus.com/InfoPoint/GTFS-Realtime.ashx?Type=TripUpdate"
	DefaultServiceAlertsURL = "https://realtime.catabus.com/InfoPoint/GTFS-Realtime.ashx?Type=Alert"
	DefaultCacheDir         = "./cache"
	DefaultCacheTTL         = 24 * time.Hour
	DefaultPollInterval     = 15 * time.Second
	DefaultRequestTimeout   = 30 * time.Second
	DefaultStagger          = 5 * time.Second
	DefaultTimezone         = "America/New_York"

	// MinPollInterval is the upstream rate-limit floor; configs asking for faster polling are rejected.
	MinPollInterval = 15 * time.Second
)

// StaticFeed describes where the GTFS schedule zip comes from.
type StaticFeed struct {
	URL             string        `yaml:"url" json:"url"`
	AuthHeaderName  string        `yaml:"auth-header-name" json:"auth-header-name"`
	AuthHeaderValue string        `yaml:"auth-header-value" json:"auth-header-value"`
	CacheDir        string        `yaml:"cache-dir" json:"cache-dir"`
	CacheTTL        time.Duration `yaml:"cache-ttl" json:"cache-ttl" validate:"gte=0"`
}

// RealtimeFeed describes the three GTFS-RT endpoints and how they are polled.
type RealtimeFeed struct {
	VehiclePositionsURL     string        `yaml:"vehicle-positions-url" json:"vehicle-positions-url" validate:"omitempty,url"`
	TripUpdatesURL          string        `yaml:"trip-updates-url" json:"trip-updates-url" validate:"omitempty,url"`
	ServiceAlertsURL        string        `yaml:"service-alerts-url" json:"service-alerts-url" validate:"omitempty,url"`
	RealTimeAuthHeaderName  string        `yaml:"auth-header-name" json:"auth-header-name"`
	RealTimeAuthHeaderValue string        `yaml:"auth-header-value" json:"auth-header-value"`
	PollInterval            time.Duration `yaml:"poll-interval" json:"poll-interval"`
	RequestTimeout          time.Duration `yaml:"request-timeout" json:"request-timeout" validate:"gte=0"`
	Stagger                 time.Duration `yaml:"stagger" json:"stagger" validate:"gte=0"`
}

// FileConfig is the on-disk configuration. YAML is the primary format; JSON files parse too.
type FileConfig struct {
	Port           int          `yaml:"port" json:"port"`
	Env            string       `yaml:"env" json:"env"`
	RateLimit      int          `yaml:"rate-limit" json:"rate-limit"`
	Verbose        bool         `yaml:"verbose" json:"verbose"`
	LogFile        string       `yaml:"log-file" json:"log-file"`
	MetricsEnabled bool         `yaml:"metrics" json:"metrics"`
	NATSURL        string       `yaml:"nats-url" json:"nats-url" validate:"omitempty,url"`
	Timezone       string       `yaml:"timezone" json:"timezone"`
	StaticFeed     StaticFeed   `yaml:"gtfs-static-feed" json:"gtfs-static-feed"`
	RealtimeFeed   RealtimeFeed `yaml:"gtfs-rt-feed" json:"gtfs-rt-feed"`
}

// GtfsConfigData carries the feed settings over to the gtfs and realtime packages.
type GtfsConfigData struct {
	StaticURL               string
	StaticAuthHeaderKey     string
	StaticAuthHeaderValue   string
	CacheDir                string
	CacheTTL                time.Duration
	VehiclePositionsURL     string
	TripUpdatesURL          string
	ServiceAlertsURL        string
	RealTimeAuthHeaderKey   string
	RealTimeAuthHeaderValue string
	PollInterval            time.Duration
	RequestTimeout          time.Duration
	Stagger                 time.Duration
	Timezone                string
	Env                     Environment
	Verbose                 bool
}

var configValidator = validator.New()

// LoadFromFile reads, defaults and validates a config file.
func LoadFromFile(path string) (*FileConfig, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.setDefaults()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// DefaultFileConfig returns a config with every default applied.
func DefaultFileConfig() FileConfig {
	var config FileConfig
	config.setDefaults()
	return config
}

// Finalize applies defaults and validates a config assembled from flags and the environment.
func (config *FileConfig) Finalize() error {
	config.setDefaults()
	if err := config.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (config *FileConfig) setDefaults() {
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	if config.Env == "" {
		config.Env = "development"
	}
	if config.RateLimit == 0 {
		config.RateLimit = DefaultRateLimit
	}
	if config.Timezone == "" {
		config.Timezone = DefaultTimezone
	}
	if config.StaticFeed.URL == "" {
		config.StaticFeed.URL = DefaultStaticURL
	}
	if config.StaticFeed.CacheDir == "" {
		config.StaticFeed.CacheDir = DefaultCacheDir
	}
	if config.StaticFeed.CacheTTL == 0 {
		config.StaticFeed.CacheTTL = DefaultCacheTTL
	}

	rt := &config.RealtimeFeed
	if rt.VehiclePositionsURL == "" && rt.TripUpdatesURL == "" && rt.ServiceAlertsURL == "" {
		rt.VehiclePositionsURL = DefaultVehiclesURL
		rt.TripUpdatesURL = DefaultTripUpdatesURL
		rt.ServiceAlertsURL = DefaultServiceAlertsURL
	}
	if rt.PollInterval == 0 {
		rt.PollInterval = DefaultPollInterval
	}
	if rt.RequestTimeout == 0 {
		rt.RequestTimeout = DefaultRequestTimeout
	}
	if rt.Stagger == 0 {
		rt.Stagger = DefaultStagger
	}
}

func (config *FileConfig) validate() error {
	if config.Port < 1 || config.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", config.Port)
	}

	switch config.Env {
	case "development", "test", "production":
	default:
		return fmt.Errorf("env must be one of: development, test, production; got %q", config.Env)
	}

	if config.RateLimit < 1 {
		return fmt.Errorf("rate-limit must be at least 1, got %d", config.RateLimit)
	}

	if err := validateFeedLocation("gtfs-static-feed.url", config.StaticFeed.URL); err != nil {
		return err
	}
	if err := validateLocalPath("gtfs-static-feed.cache-dir", config.StaticFeed.CacheDir); err != nil {
		return err
	}
	if config.LogFile != "" {
		if err := validateLocalPath("log-file", config.LogFile); err != nil {
			return err
		}
	}

	if (config.StaticFeed.AuthHeaderName == "") != (config.StaticFeed.AuthHeaderValue == "") {
		return errors.New("gtfs-static-feed: both auth-header-name and auth-header-value must be provided together")
	}
	rt := config.RealtimeFeed
	if (rt.RealTimeAuthHeaderName == "") != (rt.RealTimeAuthHeaderValue == "") {
		return errors.New("gtfs-rt-feed: both auth-header-name and auth-header-value must be provided together")
	}

	if rt.PollInterval < MinPollInterval {
		return fmt.Errorf("gtfs-rt-feed.poll-interval must be at least %s, got %s", MinPollInterval, rt.PollInterval)
	}

	if _, err := time.LoadLocation(config.Timezone); err != nil {
		return fmt.Errorf("timezone %q is not a valid IANA zone: %w", config.Timezone, err)
	}

	if err := configValidator.Struct(config); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			first := validationErrs[0]
			return fmt.Errorf("%s failed %q validation", first.Namespace(), first.Tag())
		}
		return err
	}

	return nil
}

// validateFeedLocation accepts http(s) URLs and plain local paths without traversal.
func validateFeedLocation(field, location string) error {
	if strings.HasPrefix(strings.ToLower(location), "file://") {
		return fmt.Errorf("%s: file:// URLs are not allowed, use a plain path", field)
	}
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return nil
	}
	return validateLocalPath(field, location)
}

func validateLocalPath(field, path string) error {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("%s: path traversal is not allowed: %q", field, path)
		}
	}
	return nil
}

// ToAppConfig converts the file config into the server Config.
func (config *FileConfig) ToAppConfig() Config {
	return Config{
		Port:           config.Port,
		Env:            EnvFlagToEnvironment(config.Env),
		Verbose:        config.Verbose,
		RateLimit:      config.RateLimit,
		LogFile:        config.LogFile,
		MetricsEnabled: config.MetricsEnabled,
		NATSURL:        config.NATSURL,
	}
}

// ToGtfsConfigData converts the file config into feed settings.
func (config *FileConfig) ToGtfsConfigData() GtfsConfigData {
	return GtfsConfigData{
		StaticURL:               config.StaticFeed.URL,
		StaticAuthHeaderKey:     config.StaticFeed.AuthHeaderName,
		StaticAuthHeaderValue:   config.StaticFeed.AuthHeaderValue,
		CacheDir:                config.StaticFeed.CacheDir,
		CacheTTL:                config.StaticFeed.CacheTTL,
		VehiclePositionsURL:     config.RealtimeFeed.VehiclePositionsURL,
		TripUpdatesURL:          config.RealtimeFeed.TripUpdatesURL,
		ServiceAlertsURL:        config.RealtimeFeed.ServiceAlertsURL,
		RealTimeAuthHeaderKey:   config.RealtimeFeed.RealTimeAuthHeaderName,
		RealTimeAuthHeaderValue: config.RealtimeFeed.RealTimeAuthHeaderValue,
		PollInterval:            config.RealtimeFeed.PollInterval,
		RequestTimeout:          config.RealtimeFeed.RequestTimeout,
		Stagger:                 config.RealtimeFeed.Stagger,
		Timezone:                config.Timezone,
		Env:                     EnvFlagToEnvironment(config.Env),
		Verbose:                 config.Verbose,
	}
}
