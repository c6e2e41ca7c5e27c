// Package models defines the report data structures produced by the collection
// engine. These structures are handed to reporters and serialized to JSON by
// the webhook reporter.
package models

import "time"

// UnknownDuration marks a duration the provider could not supply.
const UnknownDuration time.Duration = -1

// MemoryMetrics holds heap and non-heap usage in bytes.
type MemoryMetrics struct {
	HeapUsed    uint64 `json:"heap_used"`
	HeapMax     uint64 `json:"heap_max"`
	NonHeapUsed uint64 `json:"non_heap_used"`
}

// Kind returns KindMemory.
func (m MemoryMetrics) Kind() Kind { return KindMemory }

// HeapUtilization returns heap used as a percentage of heap max.
// The second value is false when heap max is zero.
func (m MemoryMetrics) HeapUtilization() (float64, bool) {
	if m.HeapMax == 0 {
		return 0, false
	}
	return float64(m.HeapUsed) / float64(m.HeapMax) * 100, true
}

// Findings reports heap utilization at warning level or above.
func (m MemoryMetrics) Findings() []Finding {
	pct, ok := m.HeapUtilization()
	if !ok {
		return nil
	}
	if level := Classify(pct); level != LevelNormal {
		return []Finding{{
			Kind:    KindMemory,
			Level:   level,
			Subject: "heap",
			Message: formatPercent("heap utilization", pct),
		}}
	}
	return nil
}

// CPUMetrics holds the system load average and processor count.
type CPUMetrics struct {
	// LoadAverage is the one-minute system load average, negative when the
	// platform does not support it.
	LoadAverage float64 `json:"load_average"`
	Processors  int     `json:"processors"`
	// ProcessCPUPercent is this process's CPU usage, negative when unavailable.
	ProcessCPUPercent float64 `json:"process_cpu_percent"`
}

// Kind returns KindCPU.
func (m CPUMetrics) Kind() Kind { return KindCPU }

// LoadSupported reports whether the platform supplied a load average.
func (m CPUMetrics) LoadSupported() bool { return m.LoadAverage >= 0 }

// Utilization returns load / processors × 100. The second value is false
// when the load average is unsupported or the processor count is unknown.
func (m CPUMetrics) Utilization() (float64, bool) {
	if m.LoadAverage < 0 || m.Processors <= 0 {
		return 0, false
	}
	return m.LoadAverage / float64(m.Processors) * 100, true
}

// Findings reports CPU utilization at warning level or above.
func (m CPUMetrics) Findings() []Finding {
	pct, ok := m.Utilization()
	if !ok {
		return nil
	}
	if level := Classify(pct); level != LevelNormal {
		return []Finding{{
			Kind:    KindCPU,
			Level:   level,
			Subject: "load",
			Message: formatPercent("cpu utilization", pct),
		}}
	}
	return nil
}

// BytesToMB converts a byte count to mebibytes.
func BytesToMB(b uint64) float64 {
	return float64(b) / (1024 * 1024)
}
