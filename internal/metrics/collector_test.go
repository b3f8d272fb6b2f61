package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_EmptySnapshot(t *testing.T) {
	c := NewCollector()

	snap := c.Snapshot()
	assert.Zero(t, snap.TotalRequests)
	assert.Zero(t, snap.CacheHitRate)
	assert.Empty(t, snap.Models)
	assert.Zero(t, snap.Latency.P99Millis)
}

func TestCollector_RecordRequest(t *testing.T) {
	c := NewCollector()

	c.RecordRequest("gpt-4o-mini", 100*time.Millisecond, false, true, 10, 5)
	c.RecordRequest("gpt-4o-mini", 200*time.Millisecond, true, true, 0, 0)
	c.RecordRequest("gpt-4o-mini", 300*time.Millisecond, false, false, 8, 0)

	snap := c.Snapshot()
	assert.Equal(t, int64(3), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.TotalErrors)
	assert.Equal(t, int64(1), snap.CacheHits)
	assert.InDelta(t, 1.0/3.0, snap.CacheHitRate, 1e-9)
	assert.Equal(t, int64(18), snap.PromptTokens)
	assert.Equal(t, int64(5), snap.CompletionTokens)

	stats, ok := snap.Models["gpt-4o-mini"]
	require.True(t, ok)
	assert.Equal(t, int64(3), stats.RequestCount)
	assert.Equal(t, int64(2), stats.SuccessCount)
	assert.Equal(t, int64(1), stats.FailureCount)
	assert.Equal(t, int64(200), stats.AvgLatencyMillis)
}

func TestCollector_EmptyModelNotTracked(t *testing.T) {
	c := NewCollector()

	c.RecordRequest("", 50*time.Millisecond, false, false, 0, 0)

	snap := c.Snapshot()
	assert.Equal(t, int64(1), snap.TotalRequests)
	assert.Empty(t, snap.Models)
}

func TestCollector_RecordError(t *testing.T) {
	c := NewCollector()

	c.RecordError("upstream")
	c.RecordError("upstream")
	c.RecordError("render")

	snap := c.Snapshot()
	assert.Equal(t, int64(2), snap.ErrorCounts["upstream"])
	assert.Equal(t, int64(1), snap.ErrorCounts["render"])
}

func TestCollector_LatencyPercentiles(t *testing.T) {
	c := NewCollector()

	for i := 1; i <= 100; i++ {
		c.RecordRequest("m", time.Duration(i)*time.Millisecond, false, true, 0, 0)
	}

	snap := c.Snapshot()
	assert.Equal(t, int64(50), snap.Latency.P50Millis)
	assert.Equal(t, int64(90), snap.Latency.P90Millis)
	assert.Equal(t, int64(99), snap.Latency.P99Millis)
}

func TestCollector_LatencyWindowBounded(t *testing.T) {
	c := NewCollector()

	// Flood past the window with slow requests, then fill the window
	// with fast ones; the old samples must age out of the percentiles.
	for i := 0; i < latencyWindow; i++ {
		c.RecordRequest("m", time.Second, false, true, 0, 0)
	}
	for i := 0; i < latencyWindow; i++ {
		c.RecordRequest("m", time.Millisecond, false, true, 0, 0)
	}

	snap := c.Snapshot()
	assert.Equal(t, int64(1), snap.Latency.P99Millis)
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.RecordRequest("m", time.Millisecond, j%2 == 0, true, 1, 1)
				c.RecordError("race")
				_ = c.Snapshot()
			}
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	assert.Equal(t, int64(400), snap.TotalRequests)
	assert.Equal(t, int64(400), snap.ErrorCounts["race"])
}

func TestCollector_SnapshotIsACopy(t *testing.T) {
	c := NewCollector()
	c.RecordRequest("m", time.Millisecond, false, true, 0, 0)

	snap := c.Snapshot()
	snap.Models["m"].RequestCount = 999

	assert.Equal(t, int64(1), c.Snapshot().Models["m"].RequestCount)
}
