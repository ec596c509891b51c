package iot

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type sensorLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterStore keeps one token bucket per sensor id for the ingestion endpoints.
type RateLimiterStore struct {
	limiters     map[string]*sensorLimiter
	mu           sync.Mutex
	defaultRate  rate.Limit
	defaultBurst int
}

func NewRateLimiterStore(defaultRate rate.Limit, defaultBurst int) *RateLimiterStore {
	return &RateLimiterStore{
		limiters:     make(map[string]*sensorLimiter),
		defaultRate:  defaultRate,
		defaultBurst: defaultBurst,
	}
}

func (s *RateLimiterStore) GetLimiter(sensorID string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.limiters[sensorID]
	if !exists {
		entry = &sensorLimiter{limiter: rate.NewLimiter(s.defaultRate, s.defaultBurst)}
		s.limiters[sensorID] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

func (s *RateLimiterStore) SetLimiter(sensorID string, sensorRate rate.Limit, sensorBurst int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limiters[sensorID] = &sensorLimiter{
		limiter:  rate.NewLimiter(sensorRate, sensorBurst),
		lastSeen: time.Now(),
	}
}

func (s *RateLimiterStore) Allow(sensorID string) bool {
	return s.GetLimiter(sensorID).Allow()
}

// Prune forgets limiters of sensors not seen for idle, and returns how many were dropped.
func (s *RateLimiterStore) Prune(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-idle)
	dropped := 0
	for id, entry := range s.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(s.limiters, id)
			dropped++
		}
	}
	return dropped
}

func (s *RateLimiterStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}
