package restapi

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"catabus.org/transit/internal/models"
)

const (
	limiterIdleTTL       = 10 * time.Minute
	limiterSweepInterval = time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware applies a token bucket per client IP. Idle buckets are evicted by a
// background sweep that runs until Stop.
type RateLimitMiddleware struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*clientLimiter

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	now      func() time.Time
}

// NewRateLimitMiddleware allows requestsPerWindow requests per window for each client, with
// bursts up to requestsPerWindow. A non-positive limit disables limiting.
func NewRateLimitMiddleware(requestsPerWindow int, window time.Duration) *RateLimitMiddleware {
	m := &RateLimitMiddleware{
		limit:   rate.Inf,
		burst:   1,
		clients: make(map[string]*clientLimiter),
		stop:    make(chan struct{}),
		now:     time.Now,
	}
	if requestsPerWindow > 0 && window > 0 {
		m.limit = rate.Every(window / time.Duration(requestsPerWindow))
		m.burst = requestsPerWindow
	}

	m.wg.Add(1)
	go m.sweep()
	return m
}

func (m *RateLimitMiddleware) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.allow(clientKey(r)) {
				w.Header().Set("Retry-After", "1")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(models.ResponseModel{
					Code:        http.StatusTooManyRequests,
					CurrentTime: m.now().UnixMilli(),
					Text:        "rate limit exceeded",
					Version:     2,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *RateLimitMiddleware) allow(key string) bool {
	if m.limit == rate.Inf {
		return true
	}
	now := m.now()

	m.mu.Lock()
	client, ok := m.clients[key]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.clients[key] = client
	}
	client.lastSeen = now
	m.mu.Unlock()

	return client.limiter.AllowN(now, 1)
}

func (m *RateLimitMiddleware) sweep() {
	defer m.wg.Done()
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evictIdle(m.now())
		case <-m.stop:
			return
		}
	}
}

func (m *RateLimitMiddleware) evictIdle(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, client := range m.clients {
		if now.Sub(client.lastSeen) > limiterIdleTTL {
			delete(m.clients, key)
		}
	}
}

// Stop ends the eviction goroutine. It is safe to call more than once.
func (m *RateLimitMiddleware) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	m.wg.Wait()
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
