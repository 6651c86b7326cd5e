package restapi

import (
	"sync"
	"time"

	"catabus.org/transit/internal/app"
)

type RestAPI struct {
	*app.Application
	rateLimiter  *RateLimitMiddleware
	shutdownOnce sync.Once
}

// NewRestAPI creates a new RestAPI instance with initialized rate limiter
func NewRestAPI(app *app.Application) *RestAPI {
	return &RestAPI{
		Application: app,
		rateLimiter: NewRateLimitMiddleware(app.Config.RateLimit, time.Second),
	}
}

// Shutdown stops the rate limiter's background sweep. Calling it again is a no-op.
func (api *RestAPI) Shutdown() {
	api.shutdownOnce.Do(func() {
		if api.rateLimiter != nil {
			api.rateLimiter.Stop()
		}
	})
}
