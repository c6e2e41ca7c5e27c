// Package collector defines the Collector interface and the memory, CPU,
// thread and database-pool collectors that read from a MetricsProvider.
package collector

import (
	"context"

	"github.com/Guliveer/vitalis/resmon/internal/models"
)

// Collector is the interface that all metric collectors must implement.
// Each collector gathers one metric family.
type Collector interface {
	// Kind identifies the metric family and fixes the collector's position
	// in a report.
	Kind() models.Kind

	// Collect gathers the metric data and returns it.
	// The context allows for cancellation and timeout control.
	Collect(ctx context.Context) (models.Metrics, error)

	// IsAvailable reports whether this collector has anything to collect.
	// Collectors that return false will not be registered.
	IsAvailable() bool
}
