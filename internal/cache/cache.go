// Package cache holds in-process caches with TTL and size-based eviction.
package cache

import (
	"time"

	"martelinho/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// DeletePrefix removes every key starting with prefix and returns how many.
	DeletePrefix(prefix string) int
	Size() int
}

// Cleaner is implemented by caches that drop expired entries on demand
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically cleans registered caches
type Manager struct {
	caches      []Cleaner
	logger      *log.Logger
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     bool
}

func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Discard()
	}
	return &Manager{
		logger:      logger.WithComponent(log.ComponentCache),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	m.started = true
	go m.cleanup(interval)
}

// CleanNow cleans every registered cache once.
func (m *Manager) CleanNow() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.CleanNow(); n > 0 {
				m.logger.Debug("Expired cache entries removed", "count", n)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop ends the cleanup goroutine, if it was started
func (m *Manager) Stop() {
	if !m.started {
		return
	}
	m.started = false
	close(m.stopCleanup)
	<-m.cleanupDone
}
