// Package ratelimit throttles requests per client key over a fixed window.
// The server applies it to the sign-in and sign-up forms.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"martelinho/internal/log"
)

// Limiter provides rate limiting functionality
type Limiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
	now          func() time.Time
	logger       *log.Logger
	hits         atomic.Int64

	requests        int
	window          time.Duration
	cleanupInterval time.Duration
}

type clientInfo struct {
	windowStart time.Time
	requests    int
}

// Config holds rate limiter configuration
type Config struct {
	// Requests allowed per client within Window.
	Requests        int
	Window          time.Duration
	CleanupInterval time.Duration
	Logger          *log.Logger
}

// DefaultConfig allows ten attempts a minute.
func DefaultConfig() Config {
	return Config{
		Requests:        10,
		Window:          time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// NewLimiter creates a new rate limiter and starts its cleanup loop.
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.Requests <= 0 {
		config.Requests = def.Requests
	}
	if config.Window <= 0 {
		config.Window = def.Window
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Discard()
	}

	rl := &Limiter{
		clients:         make(map[string]*clientInfo),
		stopCleanup:     make(chan struct{}),
		now:             time.Now,
		logger:          logger.WithComponent(log.ComponentRateLimit),
		requests:        config.Requests,
		window:          config.Window,
		cleanupInterval: config.CleanupInterval,
	}
	go rl.startCleanup()
	return rl
}

// Allow checks if a request from the given key should be allowed
func (rl *Limiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	client, exists := rl.clients[key]
	if !exists || now.Sub(client.windowStart) >= rl.window {
		rl.clients[key] = &clientInfo{windowStart: now, requests: 1}
		return true
	}

	client.requests++
	if client.requests > rl.requests {
		rl.hits.Add(1)
		return false
	}
	return true
}

// RetryAfter is how long key has to wait before its window resets.
func (rl *Limiter) RetryAfter(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	client, ok := rl.clients[key]
	if !ok {
		return 0
	}
	wait := client.windowStart.Add(rl.window).Sub(rl.now())
	if wait < 0 {
		return 0
	}
	return wait
}

func (rl *Limiter) startCleanup() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries drops clients whose window has passed.
func (rl *Limiter) cleanupStaleEntries() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window)
	removed := 0
	for key, client := range rl.clients {
		if client.windowStart.Before(cutoff) {
			delete(rl.clients, key)
			removed++
		}
	}
	return removed
}

// ActiveClients returns the number of currently tracked clients
func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Stop gracefully shuts down the rate limiter cleanup goroutine
func (rl *Limiter) Stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

// Metrics for monitoring rate limit performance
type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   rl.hits.Load(),
		ClientCount: int64(rl.ActiveClients()),
	}
}

// Middleware limits requests keyed by extractKey. onLimit renders the
// rejection; without it a plain 429 is written.
func (rl *Limiter) Middleware(extractKey func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extractKey(r)
			if !rl.Allow(key) {
				retry := rl.RetryAfter(key)
				rl.logger.WarnContext(r.Context(), "Rate limit exceeded",
					log.FieldClientIP, key,
					log.FieldPath, r.URL.Path,
					"retry_after", retry.String())
				w.Header().Set("Retry-After", strconv.Itoa(int(retry.Round(time.Second).Seconds())))
				if onLimit != nil {
					onLimit(w, r)
				} else {
					http.Error(w, "Muitas tentativas. Tente novamente em instantes.", http.StatusTooManyRequests)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
