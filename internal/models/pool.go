package models

import (
	"fmt"
	"time"
)

// PoolCounts holds connection counts reported by a pool.
type PoolCounts struct {
	Active int `json:"active"`
	Idle   int `json:"idle"`
	Total  int `json:"total"`
}

// PoolSettings echoes pool configuration when the adapter can read it.
// Zero values mean the pool does not expose the setting.
type PoolSettings struct {
	ConnectionTimeout time.Duration `json:"connection_timeout_ns,omitempty"`
	IdleTimeout       time.Duration `json:"idle_timeout_ns,omitempty"`
	MaxLifetime       time.Duration `json:"max_lifetime_ns,omitempty"`
}

// WaitStats holds contention counters for pools that track them.
type WaitStats struct {
	Count int64         `json:"count"`
	Total time.Duration `json:"total_ns"`
}

// Average returns the mean wait per waited acquisition.
func (w WaitStats) Average() time.Duration {
	if w.Count <= 0 {
		return 0
	}
	return w.Total / time.Duration(w.Count)
}

// PoolStats is the uniform view of one connection pool.
type PoolStats struct {
	Index          int    `json:"index"`
	Name           string `json:"name"`
	Adapter        string `json:"adapter"`
	Implementation string `json:"implementation"`

	Counts      *PoolCounts   `json:"counts,omitempty"`
	Capacity    *int          `json:"capacity,omitempty"`
	Utilization *float64      `json:"utilization,omitempty"`
	Settings    *PoolSettings `json:"settings,omitempty"`
	Wait        *WaitStats    `json:"wait,omitempty"`

	AtCapacity bool `json:"at_capacity"`
	Contention bool `json:"contention"`

	// Degraded is set when the matching adapter failed and only the
	// fallback fields are populated.
	Degraded bool   `json:"degraded,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Finalize derives utilization and the health flags from the raw fields.
// Utilization is computed only when counts and a positive capacity are known.
func (p *PoolStats) Finalize() {
	p.Utilization = nil
	p.AtCapacity = false
	if p.Counts != nil && p.Capacity != nil && *p.Capacity > 0 {
		pct := float64(p.Counts.Active) / float64(*p.Capacity) * 100
		p.Utilization = &pct
		p.AtCapacity = p.Counts.Active >= *p.Capacity
	}
	p.Contention = p.Wait != nil && p.Wait.Count > 0
}

// Label returns the pool name, or its index when unnamed.
func (p PoolStats) Label() string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("pool-%d", p.Index)
}

// DatabaseMetrics is the database collector's payload.
type DatabaseMetrics struct {
	Pools []PoolStats `json:"pools"`
	// PartialFailures lists per-pool extraction errors of this tick.
	PartialFailures []string `json:"partial_failures,omitempty"`
}

// Kind returns KindDatabase.
func (m DatabaseMetrics) Kind() Kind { return KindDatabase }

// Findings reports pools at capacity, pools with contention and pools whose
// utilization is at warning level or above.
func (m DatabaseMetrics) Findings() []Finding {
	var out []Finding
	for _, p := range m.Pools {
		switch {
		case p.AtCapacity:
			out = append(out, Finding{
				Kind:    KindDatabase,
				Level:   LevelCritical,
				Subject: p.Label(),
				Message: fmt.Sprintf("pool at capacity (%d/%d)", p.Counts.Active, *p.Capacity),
			})
		case p.Utilization != nil && Classify(*p.Utilization) != LevelNormal:
			out = append(out, Finding{
				Kind:    KindDatabase,
				Level:   Classify(*p.Utilization),
				Subject: p.Label(),
				Message: formatPercent("pool utilization", *p.Utilization),
			})
		}
		if p.Contention {
			out = append(out, Finding{
				Kind:    KindDatabase,
				Level:   LevelCritical,
				Subject: p.Label(),
				Message: fmt.Sprintf("contention observed: %d waits, avg %s", p.Wait.Count, p.Wait.Average()),
			})
		}
	}
	return out
}
