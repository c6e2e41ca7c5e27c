package provider

import (
	"context"
	"fmt"
	"math"
	"os"
	"runtime"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/Guliveer/vitalis/resmon/internal/models"
)

// DefaultStuckThreshold is how long a goroutine must wait on a lock before
// it is reported as deadlocked.
const DefaultStuckThreshold = 5 * time.Minute

// Runtime is a MetricsProvider for the current Go process. Threads are
// goroutines, read from a full stack dump.
//
// The Go runtime exposes neither lock owners nor lock cycles, so
// FindDeadlockedThreads reports goroutines parked on a mutex for at least
// the stuck threshold, and LockOwnerName is always empty. Goroutines have
// no per-goroutine CPU accounting and no daemon flag: CPUTimeSupported is
// false and ThreadCounts.Daemon is zero.
type Runtime struct {
	stuckThreshold time.Duration
	proc           *process.Process

	mu      sync.Mutex
	threads map[int64]goroutine
	peak    int
	started int64
}

// RuntimeOption configures a Runtime provider.
type RuntimeOption func(*Runtime)

// WithStuckThreshold overrides DefaultStuckThreshold.
func WithStuckThreshold(d time.Duration) RuntimeOption {
	return func(r *Runtime) {
		if d > 0 {
			r.stuckThreshold = d
		}
	}
}

// NewRuntime creates a provider for the current process.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		stuckThreshold: DefaultStuckThreshold,
		threads:        make(map[int64]goroutine),
	}
	for _, opt := range opts {
		opt(r)
	}
	// Process-level counters are optional; the provider works without them.
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		r.proc = p
	}
	return r
}

// HeapUsage returns the bytes of allocated heap objects and the heap bound:
// the soft memory limit when one is set, otherwise the heap reserved from
// the OS.
func (r *Runtime) HeapUsage() (uint64, uint64, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	bound := m.HeapSys
	if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
		bound = uint64(limit)
	}
	return m.HeapAlloc, bound, nil
}

// NonHeapUsage returns runtime memory outside the heap: stacks, GC metadata
// and other runtime structures.
func (r *Runtime) NonHeapUsage() (uint64, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	if m.Sys < m.HeapSys {
		return 0, nil
	}
	return m.Sys - m.HeapSys, nil
}

// SystemLoadAverage returns the one-minute load average, or -1 when the
// platform cannot supply it.
func (r *Runtime) SystemLoadAverage(ctx context.Context) (float64, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil || avg == nil {
		return -1, nil
	}
	return avg.Load1, nil
}

// AvailableProcessors returns the number of logical CPUs.
func (r *Runtime) AvailableProcessors() int { return runtime.NumCPU() }

// AllThreadIDs takes a goroutine dump and returns the ids in ascending order.
func (r *Runtime) AllThreadIDs(ctx context.Context) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gs := parseGoroutines(stackDump())
	if len(gs) == 0 {
		return nil, fmt.Errorf("goroutine dump contained no goroutines")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.threads = make(map[int64]goroutine, len(gs))
	ids := make([]int64, 0, len(gs))
	for _, g := range gs {
		r.threads[g.ID] = g
		ids = append(ids, g.ID)
		if g.ID > r.started {
			r.started = g.ID
		}
	}
	if len(gs) > r.peak {
		r.peak = len(gs)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// ThreadInfo returns the goroutine from the last dump.
func (r *Runtime) ThreadInfo(id int64) (ThreadInfo, bool) {
	r.mu.Lock()
	g, ok := r.threads[id]
	r.mu.Unlock()
	if !ok {
		return ThreadInfo{}, false
	}

	info := ThreadInfo{
		ID:    g.ID,
		Name:  g.Function,
		State: g.State,
	}
	if g.State == models.StateBlocked {
		info.BlockedTime = g.Wait
	}
	return info, true
}

// ThreadCounts returns counters from the last dump. Goroutine ids are
// allocated sequentially, so the highest id seen approximates the number
// of goroutines ever started.
func (r *Runtime) ThreadCounts() models.ThreadCounts {
	r.mu.Lock()
	defer r.mu.Unlock()
	return models.ThreadCounts{
		Live:    len(r.threads),
		Peak:    r.peak,
		Started: r.started,
	}
}

// FindDeadlockedThreads returns goroutines from the last dump that have
// waited on a lock for at least the stuck threshold.
func (r *Runtime) FindDeadlockedThreads(ctx context.Context) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []int64
	for id, g := range r.threads {
		if g.State == models.StateBlocked && g.Wait >= r.stuckThreshold {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// CPUTimeSupported is false: the Go runtime does not account CPU time per
// goroutine.
func (r *Runtime) CPUTimeSupported() bool { return false }

// CPUTime always returns false.
func (r *Runtime) CPUTime(int64) (time.Duration, bool) { return 0, false }

// SchedulerStats reports GOMAXPROCS, the OS threads of the process and the
// number of cgo calls made.
func (r *Runtime) SchedulerStats(ctx context.Context) (models.SchedulerStats, error) {
	stats := models.SchedulerStats{
		MaxProcs: runtime.GOMAXPROCS(0),
		CgoCalls: runtime.NumCgoCall(),
	}
	if r.proc == nil {
		return stats, nil
	}
	n, err := r.proc.NumThreadsWithContext(ctx)
	if err != nil {
		return stats, fmt.Errorf("reading os thread count: %w", err)
	}
	stats.OSThreads = int(n)
	return stats, nil
}

// ProcessCPUPercent returns the CPU usage of this process.
func (r *Runtime) ProcessCPUPercent(ctx context.Context) (float64, error) {
	if r.proc == nil {
		return -1, fmt.Errorf("process handle unavailable")
	}
	return r.proc.CPUPercentWithContext(ctx)
}

var (
	_ MetricsProvider = (*Runtime)(nil)
	_ SchedulerReader = (*Runtime)(nil)
	_ ProcessReader   = (*Runtime)(nil)
)
