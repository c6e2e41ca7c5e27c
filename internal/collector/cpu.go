// CPU load collector: system load average relative to available processors.
package collector

import (
	"context"
	"fmt"

	"github.com/Guliveer/vitalis/resmon/internal/models"
	"github.com/Guliveer/vitalis/resmon/internal/provider"
)

// CPUCollector collects the system load average and, when the provider
// supports it, the process CPU percentage.
type CPUCollector struct {
	provider provider.MetricsProvider
}

// NewCPUCollector creates a new CPU collector.
func NewCPUCollector(p provider.MetricsProvider) *CPUCollector {
	return &CPUCollector{provider: p}
}

// Kind returns models.KindCPU.
func (c *CPUCollector) Kind() models.Kind { return models.KindCPU }

// Collect gathers the load average and processor count. A negative load
// average is passed through as "unsupported".
func (c *CPUCollector) Collect(ctx context.Context) (models.Metrics, error) {
	load, err := c.provider.SystemLoadAverage(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading load average: %w", err)
	}
	if load < 0 {
		load = -1
	}

	result := models.CPUMetrics{
		LoadAverage:       load,
		Processors:        c.provider.AvailableProcessors(),
		ProcessCPUPercent: -1,
	}

	// Non-fatal: the process percentage is supplementary.
	if pr, ok := c.provider.(provider.ProcessReader); ok {
		if pct, err := pr.ProcessCPUPercent(ctx); err == nil {
			result.ProcessCPUPercent = pct
		}
	}
	return result, nil
}

// IsAvailable returns true: CPU metrics are always available.
func (c *CPUCollector) IsAvailable() bool { return true }
