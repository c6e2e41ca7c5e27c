// Package engine implements the fixed-rate collection engine. One goroutine
// runs every tick; each tick runs the enabled collectors in kind order,
// assembles a CollectionReport and publishes it to the Reporter.
package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/resmon/internal/collector"
	"github.com/Guliveer/vitalis/resmon/internal/config"
	"github.com/Guliveer/vitalis/resmon/internal/models"
	"github.com/Guliveer/vitalis/resmon/internal/pool"
	"github.com/Guliveer/vitalis/resmon/internal/provider"
	"github.com/Guliveer/vitalis/resmon/internal/report"
)

var (
	// ErrInvalidConfiguration is returned by New for configuration that
	// cannot be scheduled.
	ErrInvalidConfiguration = config.ErrInvalidConfiguration

	// ErrStopped is returned by Start once the engine has been stopped.
	ErrStopped = errors.New("engine stopped")

	// ErrShutdownTimeout is returned by Stop when the in-flight tick did not
	// finish within the drain timeout. That tick's report is discarded.
	ErrShutdownTimeout = errors.New("shutdown timed out, in-flight tick abandoned")
)

// Engine schedules collection ticks at a fixed interval.
type Engine struct {
	interval time.Duration
	registry *collector.Registry
	reporter report.Reporter
	logger   *zap.Logger
	clock    clock.Clock
	pools    *pool.Registry

	// base is the parent of every tick context; cancelling it abandons the
	// in-flight tick.
	base   context.Context
	cancel context.CancelFunc

	// tickMu serializes ticks, scheduled or called through Tick.
	tickMu sync.Mutex

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	done    chan struct{}

	lastEnd time.Time
	ticks   atomic.Int64
	skipped atomic.Int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source used for scheduling and timestamps.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithPoolRegistry replaces the default pool adapter registry, for hosts
// that register adapters of their own.
func WithPoolRegistry(r *pool.Registry) Option {
	return func(e *Engine) { e.pools = r }
}

// New validates cfg and builds an engine whose collectors follow the
// configuration toggles. Nothing is scheduled until Start.
func New(
	cfg *config.Config,
	p provider.MetricsProvider,
	pools []pool.Handle,
	reporter report.Reporter,
	logger *zap.Logger,
	opts ...Option,
) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		interval: cfg.Monitor.Interval.Duration,
		reporter: reporter,
		logger:   logger.Named("engine"),
		clock:    clock.New(),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.pools == nil {
		e.pools = pool.NewDefaultRegistry()
	}
	e.base, e.cancel = context.WithCancel(context.Background())

	e.registry = collector.NewRegistry(logger.Named("collector"), collector.WithClock(e.clock))
	toggles := cfg.Monitor.Collectors
	if toggles.Memory {
		e.registry.Register(collector.NewMemoryCollector(p))
	}
	if toggles.CPU {
		e.registry.Register(collector.NewCPUCollector(p))
	}
	if toggles.Thread {
		th := cfg.Monitor.Threads
		e.registry.Register(collector.NewThreadCollector(p, collector.ThreadOptions{
			StateDistribution: th.StateDistribution,
			DeadlockDetection: th.DeadlockDetection,
			HighCPUThreads:    th.HighCPUThreads,
			BlockedThreads:    th.BlockedThreads,
			Scheduler:         toggles.ThreadPool,
			TopN:              th.TopN,
		}, logger.Named("collector")))
	}
	if toggles.DatabasePool {
		e.registry.Register(collector.NewDatabaseCollector(pools, e.pools))
	}

	return e, nil
}

// Start begins scheduling. The first tick runs immediately. Calling Start
// on a running engine does nothing; calling it after Stop returns ErrStopped.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return ErrStopped
	}
	if e.started {
		return nil
	}
	e.started = true

	e.logger.Info("Starting resource monitor",
		zap.Duration("interval", e.interval),
		zap.Int("collectors", len(e.registry.Collectors())))

	ticker := e.clock.Ticker(e.interval)
	go e.run(ticker)
	return nil
}

// Stop prevents new ticks and waits up to drainTimeout for the in-flight
// tick to finish. It is safe to call from any goroutine; only the first
// call has an effect.
func (e *Engine) Stop(drainTimeout time.Duration) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return nil
	}
	e.stopped = true
	started := e.started
	close(e.stopCh)
	e.mu.Unlock()

	e.logger.Info("Stopping resource monitor")

	if !started {
		e.cancel()
		close(e.done)
		return nil
	}

	select {
	case <-e.done:
		e.cancel()
		return nil
	default:
	}

	timer := time.NewTimer(drainTimeout)
	defer timer.Stop()

	select {
	case <-e.done:
		e.cancel()
		return nil
	case <-timer.C:
		e.cancel()
		e.logger.Warn("In-flight tick did not finish in time, abandoning it",
			zap.Duration("drain_timeout", drainTimeout))
		return ErrShutdownTimeout
	}
}

// Done is closed once the scheduling goroutine has exited.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Ticks returns the number of ticks run so far.
func (e *Engine) Ticks() int64 { return e.ticks.Load() }

// Skipped returns the number of ticks skipped because the previous tick
// was still running when they came due.
func (e *Engine) Skipped() int64 { return e.skipped.Load() }

// Tick runs one collection round and returns its report without
// publishing it. It waits for any tick already in progress, so rounds never
// overlap.
func (e *Engine) Tick(ctx context.Context) *models.CollectionReport {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	start := e.clock.Now()
	results := e.registry.CollectAll(ctx)
	return &models.CollectionReport{
		Timestamp: start,
		Results:   results,
		Duration:  e.clock.Since(start),
	}
}

func (e *Engine) run(ticker *clock.Ticker) {
	defer close(e.done)
	defer ticker.Stop()

	e.runTick()
	for {
		select {
		case <-e.stopCh:
			return
		case due := <-ticker.C:
			select {
			case <-e.stopCh:
				return
			default:
			}
			if !due.After(e.lastEnd) {
				e.skipped.Add(1)
				e.logger.Debug("Skipping tick, previous tick overran", zap.Time("due", due))
				continue
			}
			e.runTick()
		}
	}
}

func (e *Engine) runTick() {
	ctx, cancel := context.WithCancel(e.base)
	defer cancel()

	r := e.Tick(ctx)
	e.lastEnd = e.clock.Now()
	e.ticks.Add(1)

	if ctx.Err() != nil {
		e.logger.Debug("Discarding report of abandoned tick", zap.Time("timestamp", r.Timestamp))
		return
	}
	e.logger.Debug("Collected metrics",
		zap.Time("timestamp", r.Timestamp),
		zap.Duration("duration", r.Duration))

	e.publish(ctx, r)
}

func (e *Engine) publish(ctx context.Context, r *models.CollectionReport) {
	if e.reporter == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			e.logger.Error("Reporter panicked", zap.Any("panic", p), zap.Stack("stack"))
		}
	}()
	if err := e.reporter.Publish(ctx, r); err != nil {
		e.logger.Warn("Publishing report failed", zap.Error(err))
	}
}
