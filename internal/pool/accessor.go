package pool

import (
	"time"

	"github.com/Guliveer/vitalis/resmon/internal/models"
)

// CounterPool is implemented by host pools that expose plain counters.
// MaxConnections returns zero or less when the pool has no fixed bound.
type CounterPool interface {
	ActiveConnections() int
	IdleConnections() int
	MaxConnections() int
}

// WaitReporter is optionally implemented by a CounterPool that tracks
// callers waiting for a connection.
type WaitReporter interface {
	WaitCount() int64
	WaitTime() time.Duration
}

// SettingsReporter is optionally implemented by a CounterPool that can
// echo its configuration.
type SettingsReporter interface {
	ConnectionTimeout() time.Duration
	IdleTimeout() time.Duration
	MaxLifetime() time.Duration
}

// AccessorAdapter handles any CounterPool.
type AccessorAdapter struct{}

// Name returns the adapter identifier.
func (AccessorAdapter) Name() string { return "accessor" }

// Accepts reports whether the handle implements CounterPool.
func (AccessorAdapter) Accepts(pool any) bool {
	_, ok := pool.(CounterPool)
	return ok
}

// Extract reads the counters and the optional wait and settings reports.
func (AccessorAdapter) Extract(pool any) (models.PoolStats, error) {
	p := pool.(CounterPool)
	active, idle := p.ActiveConnections(), p.IdleConnections()

	out := models.PoolStats{
		Counts: &models.PoolCounts{
			Active: active,
			Idle:   idle,
			Total:  active + idle,
		},
	}
	if limit := p.MaxConnections(); limit > 0 {
		out.Capacity = intPtr(limit)
	}
	if w, ok := pool.(WaitReporter); ok {
		out.Wait = &models.WaitStats{Count: w.WaitCount(), Total: w.WaitTime()}
	}
	if s, ok := pool.(SettingsReporter); ok {
		out.Settings = &models.PoolSettings{
			ConnectionTimeout: s.ConnectionTimeout(),
			IdleTimeout:       s.IdleTimeout(),
			MaxLifetime:       s.MaxLifetime(),
		}
	}
	return out, nil
}

// FallbackAdapter accepts every handle and reports only its implementation
// label, which the registry fills in.
type FallbackAdapter struct{}

// Name returns the adapter identifier.
func (FallbackAdapter) Name() string { return "fallback" }

// Accepts always returns true.
func (FallbackAdapter) Accepts(any) bool { return true }

// Extract returns empty stats.
func (FallbackAdapter) Extract(any) (models.PoolStats, error) {
	return models.PoolStats{}, nil
}
