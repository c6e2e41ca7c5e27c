// Database pool collector: per-pool statistics via the adapter registry.
package collector

import (
	"context"
	"fmt"

	"github.com/Guliveer/vitalis/resmon/internal/models"
	"github.com/Guliveer/vitalis/resmon/internal/pool"
)

// DatabaseCollector collects statistics for every registered pool handle.
type DatabaseCollector struct {
	handles  []pool.Handle
	registry *pool.Registry
}

// NewDatabaseCollector creates a collector over handles. A nil registry
// uses pool.NewDefaultRegistry.
func NewDatabaseCollector(handles []pool.Handle, registry *pool.Registry) *DatabaseCollector {
	if registry == nil {
		registry = pool.NewDefaultRegistry()
	}
	hs := make([]pool.Handle, len(handles))
	copy(hs, handles)
	return &DatabaseCollector{handles: hs, registry: registry}
}

// Kind returns models.KindDatabase.
func (c *DatabaseCollector) Kind() models.Kind { return models.KindDatabase }

// Collect extracts every pool in registration order. A pool whose adapter
// fails is reported degraded and recorded as a partial failure; Collect
// itself only fails when the context is done.
func (c *DatabaseCollector) Collect(ctx context.Context) (models.Metrics, error) {
	out := models.DatabaseMetrics{Pools: make([]models.PoolStats, 0, len(c.handles))}

	for i, h := range c.handles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stats, err := c.registry.Stats(i, h)
		if err != nil {
			out.PartialFailures = append(out.PartialFailures, fmt.Sprintf("%s: %v", stats.Label(), err))
		}
		out.Pools = append(out.Pools, stats)
	}
	return out, nil
}

// IsAvailable returns false when no pool handles are registered.
func (c *DatabaseCollector) IsAvailable() bool { return len(c.handles) > 0 }
