// Heap and non-heap usage collector.
package collector

import (
	"context"
	"fmt"

	"github.com/Guliveer/vitalis/resmon/internal/models"
	"github.com/Guliveer/vitalis/resmon/internal/provider"
)

// MemoryCollector collects heap and non-heap usage of the process.
type MemoryCollector struct {
	provider provider.MetricsProvider
}

// NewMemoryCollector creates a new memory collector.
func NewMemoryCollector(p provider.MetricsProvider) *MemoryCollector {
	return &MemoryCollector{provider: p}
}

// Kind returns models.KindMemory.
func (c *MemoryCollector) Kind() models.Kind { return models.KindMemory }

// Collect gathers heap used/max and non-heap used bytes.
func (c *MemoryCollector) Collect(ctx context.Context) (models.Metrics, error) {
	used, bound, err := c.provider.HeapUsage()
	if err != nil {
		return nil, fmt.Errorf("reading heap usage: %w", err)
	}
	nonHeap, err := c.provider.NonHeapUsage()
	if err != nil {
		return nil, fmt.Errorf("reading non-heap usage: %w", err)
	}
	return models.MemoryMetrics{
		HeapUsed:    used,
		HeapMax:     bound,
		NonHeapUsed: nonHeap,
	}, nil
}

// IsAvailable returns true: memory metrics are always available.
func (c *MemoryCollector) IsAvailable() bool { return true }
