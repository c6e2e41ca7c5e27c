package report

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Guliveer/vitalis/resmon/internal/models"
)

// LogReporter writes reports as structured log entries. The summary and
// each successful result are logged at Info, warning findings at Warn,
// critical findings and collector failures at Error.
type LogReporter struct {
	logger *zap.Logger
}

// NewLogReporter creates a LogReporter writing to logger.
func NewLogReporter(logger *zap.Logger) *LogReporter {
	return &LogReporter{logger: logger.Named("report")}
}

// Publish logs r.
func (l *LogReporter) Publish(_ context.Context, r *models.CollectionReport) error {
	findings := r.Findings()
	l.logger.Info("Resource monitor check",
		zap.Time("timestamp", r.Timestamp),
		zap.Duration("duration", r.Duration),
		zap.Int("results", len(r.Results)),
		zap.Int("findings", len(findings)))

	for _, res := range r.Results {
		if res.Failed() {
			l.logger.Error("Collector failed",
				zap.Stringer("kind", res.Kind),
				zap.String("reason", res.Failure.Reason),
				zap.Duration("elapsed", res.Elapsed))
			continue
		}
		l.logger.Info(res.Kind.String()+" metrics", append(metricFields(res.Metrics), zap.Duration("elapsed", res.Elapsed))...)
	}

	for _, f := range findings {
		lvl := zapcore.InfoLevel
		switch f.Level {
		case models.LevelWarning:
			lvl = zapcore.WarnLevel
		case models.LevelCritical:
			lvl = zapcore.ErrorLevel
		}
		l.logger.Log(lvl, f.Message,
			zap.Stringer("kind", f.Kind),
			zap.Stringer("level", f.Level),
			zap.String("subject", f.Subject))
	}
	return nil
}

func metricFields(m models.Metrics) []zap.Field {
	switch v := m.(type) {
	case models.MemoryMetrics:
		fields := []zap.Field{
			zap.Float64("heap_used_mb", models.BytesToMB(v.HeapUsed)),
			zap.Float64("heap_max_mb", models.BytesToMB(v.HeapMax)),
			zap.Float64("non_heap_used_mb", models.BytesToMB(v.NonHeapUsed)),
		}
		if pct, ok := v.HeapUtilization(); ok {
			fields = append(fields, zap.Float64("heap_pct", pct))
		}
		return fields
	case models.CPUMetrics:
		fields := []zap.Field{
			zap.Float64("load_average", v.LoadAverage),
			zap.Int("processors", v.Processors),
		}
		if pct, ok := v.Utilization(); ok {
			fields = append(fields, zap.Float64("cpu_pct", pct))
		}
		if v.ProcessCPUPercent >= 0 {
			fields = append(fields, zap.Float64("process_cpu_pct", v.ProcessCPUPercent))
		}
		return fields
	case models.ThreadSnapshot:
		fields := []zap.Field{
			zap.Int("live", v.Counts.Live),
			zap.Int("peak", v.Counts.Peak),
			zap.Int64("started", v.Counts.Started),
		}
		if v.States != nil {
			fields = append(fields, zap.Any("states", v.States))
		}
		if len(v.Blocked) > 0 {
			fields = append(fields, zap.Int("blocked", len(v.Blocked)))
		}
		if v.Scheduler != nil {
			fields = append(fields,
				zap.Int("max_procs", v.Scheduler.MaxProcs),
				zap.Int("os_threads", v.Scheduler.OSThreads))
		}
		return fields
	case models.DatabaseMetrics:
		return []zap.Field{
			zap.Int("pools", len(v.Pools)),
			zap.Strings("partial_failures", v.PartialFailures),
		}
	default:
		return []zap.Field{zap.Any("metrics", m)}
	}
}
