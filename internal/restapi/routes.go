package restapi

import (
	"net/http"
	"time"
)

// withMiddleware wraps a query handler in rate limiting, compression and cache headers.
func withMiddleware(api *RestAPI, maxAge time.Duration, handler http.HandlerFunc) http.Handler {
	cached := CacheControlMiddleware(maxAge, handler)
	compressed := CompressionMiddleware(cached)

	if api.rateLimiter == nil {
		return compressed
	}
	return api.rateLimiter.Handler()(compressed)
}

// SetRoutes registers all API endpoints.
func (api *RestAPI) SetRoutes(mux *http.ServeMux) {
	// Health and metrics are exempt from rate limiting.
	mux.HandleFunc("GET /healthz", api.healthHandler)
	if api.Metrics != nil {
		mux.Handle("GET /metrics", api.Metrics.Handler())
	}

	mux.Handle("GET /api/routes", withMiddleware(api, staticCacheTTL, api.listRoutesHandler))
	mux.Handle("GET /api/routes/{id}/vehicles", withMiddleware(api, realtimeCacheTTL, api.vehiclesForRouteHandler))
	mux.Handle("GET /api/routes/{id}/shapes", withMiddleware(api, shapeCacheTTL, api.shapesForRouteHandler))
	mux.Handle("GET /api/alerts", withMiddleware(api, realtimeCacheTTL, api.alertsHandler))
	mux.Handle("GET /api/stops/search", withMiddleware(api, staticCacheTTL, api.searchStopsHandler))
	mux.Handle("GET /api/stops/near", withMiddleware(api, staticCacheTTL, api.stopsNearHandler))
	mux.Handle("GET /api/stops/{id}/arrivals", withMiddleware(api, realtimeCacheTTL, api.arrivalsForStopHandler))
}

// SetupAPIRoutes returns the routed handler with the request id, security and metrics layers
// applied. Request logging is added by the caller as the outermost layer.
func (api *RestAPI) SetupAPIRoutes() http.Handler {
	mux := http.NewServeMux()
	api.SetRoutes(mux)

	var handler http.Handler = RequestIDMiddleware(mux)
	handler = api.WithSecurityHeaders(handler)
	if api.Metrics != nil {
		handler = api.Metrics.InstrumentHandler(handler)
	}
	return handler
}
