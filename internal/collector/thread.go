// Thread collector: counts, state distribution, deadlocks, CPU ranking and
// blocked-thread detail.
package collector

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/resmon/internal/models"
	"github.com/Guliveer/vitalis/resmon/internal/provider"
)

// DefaultTopN is the size of the high-CPU ranking when none is configured.
const DefaultTopN = 5

// ThreadOptions toggles the thread sub-reports.
type ThreadOptions struct {
	StateDistribution bool
	DeadlockDetection bool
	HighCPUThreads    bool
	BlockedThreads    bool
	// Scheduler adds the scheduler section when the provider implements
	// provider.SchedulerReader.
	Scheduler bool
	TopN      int
}

// ThreadCollector collects the thread snapshot.
type ThreadCollector struct {
	provider provider.MetricsProvider
	opts     ThreadOptions
	logger   *zap.Logger
}

// NewThreadCollector creates a new thread collector. A TopN of zero or less
// falls back to DefaultTopN.
func NewThreadCollector(p provider.MetricsProvider, opts ThreadOptions, logger *zap.Logger) *ThreadCollector {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ThreadCollector{provider: p, opts: opts, logger: logger}
}

// Kind returns models.KindThread.
func (c *ThreadCollector) Kind() models.Kind { return models.KindThread }

// Collect snapshots the live threads and builds the enabled sections.
// Threads that exit between the id snapshot and the lookup are skipped.
func (c *ThreadCollector) Collect(ctx context.Context) (models.Metrics, error) {
	ids, err := c.provider.AllThreadIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing threads: %w", err)
	}

	infos := make([]provider.ThreadInfo, 0, len(ids))
	for _, id := range ids {
		if info, ok := c.provider.ThreadInfo(id); ok {
			infos = append(infos, info)
		}
	}

	snap := models.ThreadSnapshot{Counts: c.provider.ThreadCounts()}

	if c.opts.StateDistribution {
		snap.States = stateDistribution(infos)
	}

	if c.opts.DeadlockDetection {
		deadlocked, err := c.provider.FindDeadlockedThreads(ctx)
		if err != nil {
			return nil, fmt.Errorf("detecting deadlocks: %w", err)
		}
		if len(deadlocked) > 0 {
			snap.Deadlocked = append([]int64(nil), deadlocked...)
		}
	}

	if c.opts.HighCPUThreads && c.provider.CPUTimeSupported() {
		snap.TopCPU = c.topCPU(infos)
	}

	if c.opts.BlockedThreads {
		snap.Blocked = blockedThreads(infos)
	}

	if c.opts.Scheduler {
		if sr, ok := c.provider.(provider.SchedulerReader); ok {
			stats, err := sr.SchedulerStats(ctx)
			if err != nil {
				c.logger.Debug("Scheduler stats incomplete", zap.Error(err))
			}
			snap.Scheduler = &stats
		}
	}

	return snap, nil
}

// IsAvailable returns true: the thread snapshot is always available.
func (c *ThreadCollector) IsAvailable() bool { return true }

func stateDistribution(infos []provider.ThreadInfo) map[models.ThreadState]int {
	states := make(map[models.ThreadState]int, len(models.ThreadStates))
	for _, s := range models.ThreadStates {
		states[s] = 0
	}
	for _, info := range infos {
		if _, ok := states[info.State]; ok {
			states[info.State]++
		}
	}
	return states
}

// topCPU ranks threads by CPU time, descending, ties broken by id.
// It returns an empty, non-nil slice when no thread reports CPU time so the
// section is distinguishable from "unsupported".
func (c *ThreadCollector) topCPU(infos []provider.ThreadInfo) []models.ThreadCPU {
	ranked := make([]models.ThreadCPU, 0, len(infos))
	for _, info := range infos {
		cpu, ok := c.provider.CPUTime(info.ID)
		if !ok {
			continue
		}
		ranked = append(ranked, models.ThreadCPU{ID: info.ID, Name: info.Name, CPUTime: cpu})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].CPUTime != ranked[j].CPUTime {
			return ranked[i].CPUTime > ranked[j].CPUTime
		}
		return ranked[i].ID < ranked[j].ID
	})
	if len(ranked) > c.opts.TopN {
		ranked = ranked[:c.opts.TopN]
	}
	return ranked
}

func blockedThreads(infos []provider.ThreadInfo) []models.BlockedThread {
	var out []models.BlockedThread
	for _, info := range infos {
		if info.State != models.StateBlocked {
			continue
		}
		bt := models.BlockedThread{
			ID:         info.ID,
			Name:       info.Name,
			BlockedFor: models.UnknownDuration,
			LockOwner:  info.LockOwnerName,
		}
		if info.BlockedTime > 0 {
			bt.BlockedFor = info.BlockedTime
		}
		out = append(out, bt)
	}
	return out
}
