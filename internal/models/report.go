package models

import "time"

// Kind identifies a metric family. Kinds are ordered: results always appear
// in the order memory, cpu, thread, database.
type Kind int

const (
	KindMemory Kind = iota
	KindCPU
	KindThread
	KindDatabase
)

// String returns the collector name for the kind.
func (k Kind) String() string {
	switch k {
	case KindMemory:
		return "memory"
	case KindCPU:
		return "cpu"
	case KindThread:
		return "thread"
	case KindDatabase:
		return "database"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Metrics is the kind-specific payload of a successful collection.
type Metrics interface {
	Kind() Kind
	Findings() []Finding
}

// Failure describes why a collector produced no metrics.
type Failure struct {
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// CollectionResult is the outcome of one collector in one tick: either
// Metrics or Failure is set.
type CollectionResult struct {
	Kind    Kind          `json:"kind"`
	Metrics Metrics       `json:"metrics,omitempty"`
	Failure *Failure      `json:"failure,omitempty"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Failed reports whether the collector failed.
func (r CollectionResult) Failed() bool { return r.Failure != nil }

// CollectionReport is the immutable product of a single tick.
type CollectionReport struct {
	Timestamp time.Time          `json:"timestamp"`
	Results   []CollectionResult `json:"results"`
	Duration  time.Duration      `json:"duration_ns"`
}

// Result returns the result for the given kind, if the collector ran.
func (r *CollectionReport) Result(kind Kind) (CollectionResult, bool) {
	for _, res := range r.Results {
		if res.Kind == kind {
			return res, true
		}
	}
	return CollectionResult{}, false
}

// Findings returns the findings of every successful result, in result order.
func (r *CollectionReport) Findings() []Finding {
	var out []Finding
	for _, res := range r.Results {
		if res.Metrics == nil {
			continue
		}
		out = append(out, res.Metrics.Findings()...)
	}
	return out
}

// HasCritical reports whether any finding is critical.
func (r *CollectionReport) HasCritical() bool {
	for _, f := range r.Findings() {
		if f.Level == LevelCritical {
			return true
		}
	}
	return false
}
