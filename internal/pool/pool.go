// Package pool resolves connection-pool handles of unknown implementation to
// adapters that extract a uniform models.PoolStats.
//
// Adapters are tried in a fixed priority order and the first one whose
// Accepts returns true is used. Acceptance is structural: an adapter checks
// the handle's method set, so wrappers that embed a supported pool are
// accepted too. The fallback adapter is always last and always accepts.
package pool

import (
	"fmt"

	"github.com/Guliveer/vitalis/resmon/internal/models"
)

// Handle is a pool registered by the host. Pool is opaque to the monitor.
type Handle struct {
	Name string
	Pool any
}

// Adapter extracts statistics from one family of pool implementations.
// Adapters are stateless.
type Adapter interface {
	Name() string
	Accepts(pool any) bool
	// Extract reads the pool's counters. Index, Name, Adapter and
	// Implementation are filled in by the registry.
	Extract(pool any) (models.PoolStats, error)
}

// DefaultAdapters returns the built-in adapters in priority order, most
// specific first. The fallback is not included.
func DefaultAdapters() []Adapter {
	return []Adapter{
		RedisAdapter{},
		RedisV8Adapter{},
		SQLAdapter{},
		AccessorAdapter{},
	}
}

// Registry is an ordered, immutable list of adapters ending with the
// fallback.
type Registry struct {
	adapters []Adapter
	fallback Adapter
}

// NewRegistry creates a registry trying adapters in the given order, then
// the fallback.
func NewRegistry(adapters ...Adapter) *Registry {
	list := make([]Adapter, 0, len(adapters)+1)
	for _, a := range adapters {
		if a != nil {
			list = append(list, a)
		}
	}
	fb := FallbackAdapter{}
	return &Registry{
		adapters: append(list, fb),
		fallback: fb,
	}
}

// NewDefaultRegistry creates a registry with DefaultAdapters.
func NewDefaultRegistry() *Registry {
	return NewRegistry(DefaultAdapters()...)
}

// Adapters returns a copy of the adapters in resolution order.
func (r *Registry) Adapters() []Adapter {
	out := make([]Adapter, len(r.adapters))
	copy(out, r.adapters)
	return out
}

// Resolve returns the first adapter accepting the pool. It never returns nil.
func (r *Registry) Resolve(pool any) Adapter {
	for _, a := range r.adapters {
		if accepts(a, pool) {
			return a
		}
	}
	return r.fallback
}

// Stats resolves and runs the adapter for h. When the adapter fails, the
// returned stats are the fallback's with Degraded set, and the error says
// why. Stats never fails to produce a record.
func (r *Registry) Stats(index int, h Handle) (models.PoolStats, error) {
	a := r.Resolve(h.Pool)

	stats, err := extract(a, h.Pool)
	if err != nil {
		stats, _ = extract(r.fallback, h.Pool)
		stats.Adapter = r.fallback.Name()
		stats.Degraded = true
		stats.Error = err.Error()
	} else {
		stats.Adapter = a.Name()
	}

	stats.Index = index
	stats.Name = h.Name
	stats.Implementation = implementation(h.Pool)
	stats.Finalize()
	return stats, err
}

// accepts guards Accepts against panicking adapters.
func accepts(a Adapter, pool any) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return a.Accepts(pool)
}

func extract(a Adapter, pool any) (stats models.PoolStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			stats = models.PoolStats{}
			err = fmt.Errorf("%s adapter panicked: %v", a.Name(), r)
		}
	}()
	stats, err = a.Extract(pool)
	if err != nil {
		return models.PoolStats{}, fmt.Errorf("%s adapter: %w", a.Name(), err)
	}
	return stats, nil
}

func implementation(pool any) string {
	if pool == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", pool)
}

func intPtr(v int) *int { return &v }
