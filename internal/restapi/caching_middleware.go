package restapi

import (
	"fmt"
	"net/http"
	"time"
)

// Cache lifetimes per resource. Anything derived from realtime data is never cached.
const (
	staticCacheTTL   = 5 * time.Minute
	shapeCacheTTL    = time.Hour
	realtimeCacheTTL = 0
)

// CacheControlMiddleware sets Cache-Control from maxAge; zero disables caching.
func CacheControlMiddleware(maxAge time.Duration, next http.Handler) http.Handler {
	header := "no-cache, no-store, must-revalidate"
	if seconds := int(maxAge.Seconds()); seconds > 0 {
		header = fmt.Sprintf("public, max-age=%d", seconds)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", header)
		next.ServeHTTP(w, r)
	})
}
