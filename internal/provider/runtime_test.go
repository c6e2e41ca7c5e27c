package provider

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guliveer/vitalis/resmon/internal/models"
)

func TestRuntime_Memory(t *testing.T) {
	p := NewRuntime()

	used, bound, err := p.HeapUsage()
	require.NoError(t, err)
	assert.Positive(t, used)
	assert.GreaterOrEqual(t, bound, used)

	nonHeap, err := p.NonHeapUsage()
	require.NoError(t, err)
	assert.Positive(t, nonHeap)
}

func TestRuntime_CPU(t *testing.T) {
	p := NewRuntime()
	assert.Positive(t, p.AvailableProcessors())

	load, err := p.SystemLoadAverage(context.Background())
	require.NoError(t, err)
	assert.True(t, load >= 0 || load == -1)
	assert.False(t, p.CPUTimeSupported())
}

func TestRuntime_Threads(t *testing.T) {
	p := NewRuntime()

	var mu sync.Mutex
	mu.Lock()
	done := make(chan struct{})
	go func() {
		mu.Lock()
		mu.Unlock()
		close(done)
	}()
	defer func() {
		mu.Unlock()
		<-done
	}()

	var blocked int64
	require.Eventually(t, func() bool {
		ids, err := p.AllThreadIDs(context.Background())
		if err != nil {
			return false
		}
		for _, id := range ids {
			if info, ok := p.ThreadInfo(id); ok && info.State == models.StateBlocked {
				blocked = id
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	counts := p.ThreadCounts()
	assert.GreaterOrEqual(t, counts.Live, 2)
	assert.GreaterOrEqual(t, counts.Peak, counts.Live)
	assert.GreaterOrEqual(t, counts.Started, blocked)

	// Waits shorter than a minute are not reported by the runtime.
	stuck, err := p.FindDeadlockedThreads(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, stuck, blocked)

	_, ok := p.ThreadInfo(-1)
	assert.False(t, ok)
}

func TestRuntime_SchedulerStats(t *testing.T) {
	// The OS thread count is best effort; GOMAXPROCS is always reported.
	stats, _ := NewRuntime().SchedulerStats(context.Background())
	assert.Positive(t, stats.MaxProcs)
}
