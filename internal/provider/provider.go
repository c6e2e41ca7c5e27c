// Package provider defines the MetricsProvider interface the collectors read
// from, and a Runtime implementation backed by the Go runtime and gopsutil.
package provider

import (
	"context"
	"time"

	"github.com/Guliveer/vitalis/resmon/internal/models"
)

// ThreadInfo is the provider's view of a single thread.
type ThreadInfo struct {
	ID    int64
	Name  string
	State models.ThreadState
	// BlockedTime is the accumulated time spent blocked; zero or negative
	// when unknown.
	BlockedTime time.Duration
	// LockOwnerName is the thread holding the contested lock, if known.
	LockOwnerName string
}

// MetricsProvider supplies the current memory, CPU and thread statistics
// of the monitored process.
type MetricsProvider interface {
	// HeapUsage returns heap bytes in use and the heap bound.
	HeapUsage() (used, max uint64, err error)
	NonHeapUsage() (uint64, error)

	// SystemLoadAverage returns the one-minute load average, or a negative
	// value when the platform does not support it.
	SystemLoadAverage(ctx context.Context) (float64, error)
	AvailableProcessors() int

	// AllThreadIDs snapshots the live threads. ThreadInfo, CPUTime and
	// ThreadCounts answer from the most recent snapshot.
	AllThreadIDs(ctx context.Context) ([]int64, error)
	// ThreadInfo returns false when the thread exited since the snapshot.
	ThreadInfo(id int64) (ThreadInfo, bool)
	ThreadCounts() models.ThreadCounts

	FindDeadlockedThreads(ctx context.Context) ([]int64, error)

	CPUTimeSupported() bool
	CPUTime(id int64) (time.Duration, bool)
}

// SchedulerReader is implemented by providers that can describe the
// scheduler multiplexing threads onto the OS.
type SchedulerReader interface {
	SchedulerStats(ctx context.Context) (models.SchedulerStats, error)
}

// ProcessReader is implemented by providers that can report the CPU usage
// of the whole process.
type ProcessReader interface {
	ProcessCPUPercent(ctx context.Context) (float64, error)
}
