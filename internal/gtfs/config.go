package gtfs

import (
	"strings"
	"time"

	"catabus.org/transit/internal/appconf"
)

type Config struct {
	StaticURL             string
	StaticAuthHeaderKey   string
	StaticAuthHeaderValue string
	CacheDir              string
	CacheTTL              time.Duration
	Timezone              string
	Env                   appconf.Environment
	Verbose               bool
}

func (config Config) isLocalFile() bool {
	return !strings.HasPrefix(config.StaticURL, "http://") && !strings.HasPrefix(config.StaticURL, "https://")
}

func (config Config) cacheTTL() time.Duration {
	if config.CacheTTL <= 0 {
		return appconf.DefaultCacheTTL
	}
	return config.CacheTTL
}
