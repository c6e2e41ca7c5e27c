package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"

	"github.com/Guliveer/vitalis/resmon/internal/models"
)

// ConsoleReporter renders reports as colored text sections. Percentages
// are colored by level and byte counts are shown in MB with two decimals.
type ConsoleReporter struct {
	w io.Writer

	header  *color.Color
	label   *color.Color
	normal  *color.Color
	warning *color.Color
	danger  *color.Color
	info    *color.Color
}

// ConsoleOption configures a ConsoleReporter.
type ConsoleOption func(*ConsoleReporter)

// WithWriter sets the output writer. Defaults to os.Stdout.
func WithWriter(w io.Writer) ConsoleOption {
	return func(c *ConsoleReporter) { c.w = w }
}

// WithoutColor disables ANSI escapes regardless of the terminal.
func WithoutColor() ConsoleOption {
	return func(c *ConsoleReporter) {
		for _, col := range c.palette() {
			col.DisableColor()
		}
	}
}

// NewConsoleReporter creates a ConsoleReporter.
func NewConsoleReporter(opts ...ConsoleOption) *ConsoleReporter {
	c := &ConsoleReporter{
		w:       os.Stdout,
		header:  color.New(color.Bold, color.FgMagenta),
		label:   color.New(color.FgBlue),
		normal:  color.New(color.FgGreen),
		warning: color.New(color.FgYellow),
		danger:  color.New(color.FgRed),
		info:    color.New(color.FgCyan),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ConsoleReporter) palette() []*color.Color {
	return []*color.Color{c.header, c.label, c.normal, c.warning, c.danger, c.info}
}

// Publish writes r to the configured writer.
func (c *ConsoleReporter) Publish(_ context.Context, r *models.CollectionReport) error {
	p := &printer{c: c}
	p.section("Resource Monitor Check")
	for _, res := range r.Results {
		if res.Failed() {
			p.line("%s %s", c.label.Sprintf("%s:", res.Kind), c.danger.Sprintf("collection failed: %s", res.Failure.Reason))
			continue
		}
		switch m := res.Metrics.(type) {
		case models.MemoryMetrics:
			c.memory(p, m)
		case models.CPUMetrics:
			c.cpu(p, m)
		case models.ThreadSnapshot:
			c.threads(p, m)
		case models.DatabaseMetrics:
			c.database(p, m)
		}
	}
	p.line("%s", c.info.Sprintf("Metrics collection completed in %sms", millis(r.Duration.Nanoseconds())))
	return p.err
}

func (c *ConsoleReporter) memory(p *printer, m models.MemoryMetrics) {
	p.section("Memory Usage")
	if pct, ok := m.HeapUtilization(); ok {
		p.line("%s %s", c.label.Sprint("Memory - Heap:"),
			c.levelColor(models.Classify(pct)).Sprintf("%s/%s MB (%.2f%%)", mb(m.HeapUsed), mb(m.HeapMax), pct))
	} else {
		p.line("%s %s MB", c.label.Sprint("Memory - Heap:"), mb(m.HeapUsed))
	}
	p.line("%s %s MB", c.label.Sprint("Memory - Non-Heap:"), mb(m.NonHeapUsed))
}

func (c *ConsoleReporter) cpu(p *printer, m models.CPUMetrics) {
	p.section("CPU Usage")
	if pct, ok := m.Utilization(); ok {
		p.line("%s %s", c.label.Sprint("CPU - System Load Average:"),
			c.levelColor(models.Classify(pct)).Sprintf("%.2f/%d (%.2f%%)", m.LoadAverage, m.Processors, pct))
	} else {
		p.line("%s %s", c.label.Sprint("CPU - System Load Average:"), c.warning.Sprint("Not available"))
	}
	if m.ProcessCPUPercent >= 0 {
		p.line("%s %.2f%%", c.label.Sprint("CPU - Process:"), m.ProcessCPUPercent)
	}
}

func (c *ConsoleReporter) threads(p *printer, s models.ThreadSnapshot) {
	p.section("Thread States")
	p.line("%s %d live, %d peak, %d started", c.label.Sprint("Threads:"), s.Counts.Live, s.Counts.Peak, s.Counts.Started)
	for _, st := range models.ThreadStates {
		n, ok := s.States[st]
		if !ok {
			continue
		}
		p.line("%s %s", c.label.Sprintf("Threads in %s state:", st), c.stateColor(st).Sprint(n))
	}

	if len(s.Deadlocked) > 0 {
		p.line("%s", c.danger.Sprintf("Deadlocked threads detected: %v", s.Deadlocked))
	}

	if len(s.TopCPU) > 0 {
		p.section("High CPU Threads")
		for _, t := range s.TopCPU {
			p.line("%s %s ms", c.label.Sprintf("Thread %d (%s):", t.ID, t.Name), millis(t.CPUTime.Nanoseconds()))
		}
	}

	if len(s.Blocked) > 0 {
		p.section("Blocked Threads")
		for _, t := range s.Blocked {
			p.line("%s %s", c.label.Sprint("Thread:"), c.danger.Sprintf("%s (%d)", t.Name, t.ID))
			blocked := "unknown"
			if t.BlockedFor != models.UnknownDuration {
				blocked = millis(t.BlockedFor.Nanoseconds()) + "ms"
			}
			p.line("%s %s", c.label.Sprint("  Blocked Time:"), c.warning.Sprint(blocked))
			if t.LockOwner != "" {
				p.line("%s %s", c.label.Sprint("  Blocked by:"), c.warning.Sprint(t.LockOwner))
			}
		}
	}

	if s.Scheduler != nil {
		p.section("Thread Pool Metrics")
		p.line("%s %d", c.label.Sprint("GOMAXPROCS:"), s.Scheduler.MaxProcs)
		p.line("%s %d", c.label.Sprint("OS Threads:"), s.Scheduler.OSThreads)
		p.line("%s %d", c.label.Sprint("Cgo Calls:"), s.Scheduler.CgoCalls)
	}
}

func (c *ConsoleReporter) database(p *printer, m models.DatabaseMetrics) {
	for _, ps := range m.Pools {
		p.section(fmt.Sprintf("%s Pool Metrics (%s)", ps.Label(), ps.Adapter))
		p.line("%s %s", c.label.Sprint("DataSource Type:"), c.info.Sprint(ps.Implementation))
		if ps.Degraded {
			p.line("%s", c.danger.Sprintf("Failed to collect pool metrics: %s", ps.Error))
		}
		if ps.Counts != nil {
			active := c.normal
			if ps.Utilization != nil {
				active = c.levelColor(models.Classify(*ps.Utilization))
			}
			p.line("%s %s", c.label.Sprint("Active Connections:"), active.Sprint(ps.Counts.Active))
			p.line("%s %d", c.label.Sprint("Idle Connections:"), ps.Counts.Idle)
			p.line("%s %d", c.label.Sprint("Total Connections:"), ps.Counts.Total)
		}
		if ps.Capacity != nil {
			p.line("%s %d", c.label.Sprint("Max Connections:"), *ps.Capacity)
		}
		if ps.Utilization != nil {
			p.line("%s %s", c.label.Sprint("Utilization:"),
				c.levelColor(models.Classify(*ps.Utilization)).Sprintf("%.2f%%", *ps.Utilization))
		}
		if ps.AtCapacity {
			p.line("%s", c.danger.Sprint("Pool at capacity"))
		}
		if ps.Settings != nil {
			p.line("%s", c.label.Sprint("Pool Configuration:"))
			p.line("%s %sms", c.label.Sprint("  Connection Timeout:"), millis(ps.Settings.ConnectionTimeout.Nanoseconds()))
			p.line("%s %sms", c.label.Sprint("  Idle Timeout:"), millis(ps.Settings.IdleTimeout.Nanoseconds()))
			p.line("%s %sms", c.label.Sprint("  Max Lifetime:"), millis(ps.Settings.MaxLifetime.Nanoseconds()))
		}
		if ps.Wait != nil && ps.Contention {
			p.line("%s", c.label.Sprint("Connection Wait Stats:"))
			p.line("%s %s", c.label.Sprint("  Total Wait Count:"), c.danger.Sprint(ps.Wait.Count))
			p.line("%s %sms", c.label.Sprint("  Average Wait Time:"), millis(ps.Wait.Average().Nanoseconds()))
		}
	}
	if len(m.PartialFailures) > 0 {
		failures := append([]string(nil), m.PartialFailures...)
		sort.Strings(failures)
		for _, f := range failures {
			p.line("%s", c.warning.Sprint(f))
		}
	}
}

func (c *ConsoleReporter) levelColor(l models.Level) *color.Color {
	switch l {
	case models.LevelCritical:
		return c.danger
	case models.LevelWarning:
		return c.warning
	default:
		return c.normal
	}
}

func (c *ConsoleReporter) stateColor(s models.ThreadState) *color.Color {
	switch s {
	case models.StateBlocked:
		return c.danger
	case models.StateWaiting, models.StateTimedWaiting:
		return c.warning
	case models.StateRunnable:
		return c.normal
	default:
		return c.info
	}
}

// printer remembers the first write error so rendering code stays linear.
type printer struct {
	c   *ConsoleReporter
	err error
}

func (p *printer) section(title string) {
	p.line("%s", p.c.header.Sprintf("=== %s ===", title))
}

func (p *printer) line(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.c.w, format+"\n", args...)
}

func mb(b uint64) string {
	return fmt.Sprintf("%.2f", models.BytesToMB(b))
}

func millis(nanos int64) string {
	return fmt.Sprintf("%.2f", float64(nanos)/1e6)
}
