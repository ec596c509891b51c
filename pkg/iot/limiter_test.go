package iot

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterStore_Basic(t *testing.T) {
	store := NewRateLimiterStore(1, 2)

	limiter := store.GetLimiter("sensor1")
	require.NotNil(t, limiter)
	assert.EqualValues(t, 1, limiter.Limit())
	assert.Equal(t, 2, limiter.Burst())
	assert.Same(t, limiter, store.GetLimiter("sensor1"))
}

func TestRateLimiterStore_CustomLimit(t *testing.T) {
	store := NewRateLimiterStore(1, 2)

	store.SetLimiter("sensor2", 5, 10)
	limiter := store.GetLimiter("sensor2")

	assert.EqualValues(t, 5, limiter.Limit())
	assert.Equal(t, 10, limiter.Burst())
}

func TestRateLimiterStore_Concurrency(t *testing.T) {
	store := NewRateLimiterStore(10, 5)
	sensorID := uuid.NewString()

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.GetLimiter(sensorID) == nil {
				t.Error("expected limiter, got nil")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.Len())
}

func TestRateLimiterStore_Enforcement(t *testing.T) {
	store := NewRateLimiterStore(2, 2) // 2 events/sec

	sensorID := uuid.NewString()

	require.True(t, store.Allow(sensorID))
	require.True(t, store.Allow(sensorID))
	assert.False(t, store.Allow(sensorID), "expected third call to be rate limited")

	// other sensors have their own bucket
	assert.True(t, store.Allow(uuid.NewString()))

	time.Sleep(600 * time.Millisecond)
	assert.True(t, store.Allow(sensorID), "expected one token to be available after refill")
}

func TestRateLimiterStore_Prune(t *testing.T) {
	store := NewRateLimiterStore(1, 1)

	store.GetLimiter("stale")
	time.Sleep(50 * time.Millisecond)
	store.GetLimiter("fresh")

	assert.Equal(t, 1, store.Prune(25*time.Millisecond))
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 0, store.Prune(time.Hour))
}
