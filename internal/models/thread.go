package models

import (
	"fmt"
	"time"
)

// ThreadState is the scheduling state of a thread.
type ThreadState string

const (
	StateRunnable     ThreadState = "RUNNABLE"
	StateBlocked      ThreadState = "BLOCKED"
	StateWaiting      ThreadState = "WAITING"
	StateTimedWaiting ThreadState = "TIMED_WAITING"
	StateNew          ThreadState = "NEW"
	StateTerminated   ThreadState = "TERMINATED"
)

// ThreadStates lists every state in display order.
var ThreadStates = []ThreadState{
	StateRunnable,
	StateBlocked,
	StateWaiting,
	StateTimedWaiting,
	StateNew,
	StateTerminated,
}

// ThreadCounts holds the thread population counters.
type ThreadCounts struct {
	Live    int   `json:"live"`
	Peak    int   `json:"peak"`
	Daemon  int   `json:"daemon"`
	Started int64 `json:"started"`
}

// ThreadCPU is one entry of the high-CPU ranking.
type ThreadCPU struct {
	ID      int64         `json:"id"`
	Name    string        `json:"name"`
	CPUTime time.Duration `json:"cpu_time_ns"`
}

// BlockedThread describes a thread waiting to acquire a lock.
type BlockedThread struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	// BlockedFor is UnknownDuration when the provider could not tell.
	BlockedFor time.Duration `json:"blocked_for_ns"`
	// LockOwner is empty when the holder is unknown.
	LockOwner string `json:"lock_owner,omitempty"`
}

// SchedulerStats describes the runtime scheduler backing the threads.
type SchedulerStats struct {
	MaxProcs  int   `json:"max_procs"`
	OSThreads int   `json:"os_threads"`
	CgoCalls  int64 `json:"cgo_calls"`
}

// ThreadSnapshot is the thread collector's payload. Sections that were
// disabled or unsupported are nil.
type ThreadSnapshot struct {
	Counts     ThreadCounts        `json:"counts"`
	States     map[ThreadState]int `json:"states,omitempty"`
	Deadlocked []int64             `json:"deadlocked,omitempty"`
	TopCPU     []ThreadCPU         `json:"top_cpu,omitempty"`
	Blocked    []BlockedThread     `json:"blocked,omitempty"`
	Scheduler  *SchedulerStats     `json:"scheduler,omitempty"`
}

// Kind returns KindThread.
func (s ThreadSnapshot) Kind() Kind { return KindThread }

// Findings reports a critical finding when deadlocked threads were detected.
func (s ThreadSnapshot) Findings() []Finding {
	if len(s.Deadlocked) == 0 {
		return nil
	}
	return []Finding{{
		Kind:    KindThread,
		Level:   LevelCritical,
		Subject: "deadlock",
		Message: fmt.Sprintf("%d deadlocked threads: %v", len(s.Deadlocked), s.Deadlocked),
	}}
}
