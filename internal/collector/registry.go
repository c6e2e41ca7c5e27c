// Package collector provides a registry for managing metric collectors.
// Collectors are registered at startup; the engine queries the registry
// to run all registered collectors in kind order.
package collector

import (
	"context"
	"fmt"
	"sort"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/resmon/internal/models"
)

// Registry manages all registered collectors and runs them sequentially.
type Registry struct {
	collectors []Collector
	logger     *zap.Logger
	clock      clock.Clock
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithClock sets the time source used to measure collector durations.
func WithClock(c clock.Clock) RegistryOption {
	return func(r *Registry) { r.clock = c }
}

// NewRegistry creates a new collector registry with the given logger.
func NewRegistry(logger *zap.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		collectors: make([]Collector, 0, 4),
		logger:     logger,
		clock:      clock.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a collector if it's available. Unavailable collectors are
// logged and skipped. Collectors are kept ordered by kind, so registration
// order does not affect report order.
func (r *Registry) Register(c Collector) {
	if !c.IsAvailable() {
		r.logger.Info("Collector not available, skipping", zap.Stringer("kind", c.Kind()))
		return
	}
	r.collectors = append(r.collectors, c)
	sort.SliceStable(r.collectors, func(i, j int) bool {
		return r.collectors[i].Kind() < r.collectors[j].Kind()
	})
	r.logger.Debug("Registered collector", zap.Stringer("kind", c.Kind()))
}

// CollectAll runs all registered collectors one after another and returns
// one result per collector. A failing or panicking collector yields a
// Failure result and does not prevent the others from running.
func (r *Registry) CollectAll(ctx context.Context) []models.CollectionResult {
	results := make([]models.CollectionResult, 0, len(r.collectors))
	for _, c := range r.collectors {
		results = append(results, r.collect(ctx, c))
	}
	return results
}

func (r *Registry) collect(ctx context.Context, c Collector) (res models.CollectionResult) {
	start := r.clock.Now()
	res.Kind = c.Kind()

	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("collector panicked: %v", p)
			res.Metrics = nil
			res.Failure = &models.Failure{Reason: err.Error(), Err: err}
			r.logger.Error("Collector panicked",
				zap.Stringer("kind", res.Kind),
				zap.Any("panic", p),
				zap.Stack("stack"))
		}
		res.Elapsed = r.clock.Since(start)
	}()

	metrics, err := c.Collect(ctx)
	switch {
	case err != nil:
		res.Failure = &models.Failure{Reason: err.Error(), Err: err}
		r.logger.Warn("Collection failed", zap.Stringer("kind", res.Kind), zap.Error(err))
	case metrics == nil:
		err = fmt.Errorf("collector returned no metrics")
		res.Failure = &models.Failure{Reason: err.Error(), Err: err}
	default:
		res.Metrics = metrics
	}
	return res
}

// Collectors returns a copy of all registered collectors.
func (r *Registry) Collectors() []Collector {
	result := make([]Collector, len(r.collectors))
	copy(result, r.collectors)
	return result
}
