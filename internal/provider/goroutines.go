package provider

import (
	"bufio"
	"bytes"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/Guliveer/vitalis/resmon/internal/models"
)

const (
	initialDumpSize = 64 << 10
	maxDumpSize     = 64 << 20
)

// waitReasonStates maps goroutine wait reasons, as printed in stack dumps,
// to thread states. Unlisted reasons are treated as WAITING.
var waitReasonStates = map[string]models.ThreadState{
	"running":   models.StateRunnable,
	"runnable":  models.StateRunnable,
	"syscall":   models.StateRunnable,
	"copystack": models.StateRunnable,
	"preempted": models.StateRunnable,

	"sync.Mutex.Lock":    models.StateBlocked,
	"sync.RWMutex.Lock":  models.StateBlocked,
	"sync.RWMutex.RLock": models.StateBlocked,
	"semacquire":         models.StateBlocked,

	"sleep":                  models.StateTimedWaiting,
	"timer goroutine (idle)": models.StateTimedWaiting,

	"chan receive":        models.StateWaiting,
	"chan send":           models.StateWaiting,
	"select":              models.StateWaiting,
	"IO wait":             models.StateWaiting,
	"sync.Cond.Wait":      models.StateWaiting,
	"sync.WaitGroup.Wait": models.StateWaiting,
	"finalizer wait":      models.StateWaiting,

	"idle": models.StateNew,
	"dead": models.StateTerminated,
}

var headerRe = regexp.MustCompile(`^goroutine (\d+)(?: [^\[]*)? ?\[([^\]]*)\]:?$`)

// goroutine is one record of a full stack dump.
type goroutine struct {
	ID       int64
	Function string
	Reason   string
	State    models.ThreadState
	// Wait is the parked duration, at minute granularity. Zero when the
	// runtime did not report one.
	Wait           time.Duration
	LockedToThread bool
}

// stateForReason maps a wait reason to a thread state.
func stateForReason(reason string) models.ThreadState {
	if s, ok := waitReasonStates[reason]; ok {
		return s
	}
	return models.StateWaiting
}

// stackDump returns the stacks of all goroutines, growing the buffer until
// the dump fits or the size cap is reached.
func stackDump() []byte {
	buf := make([]byte, initialDumpSize)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) || len(buf) >= maxDumpSize {
			return buf[:n]
		}
		buf = make([]byte, 2*len(buf))
	}
}

// parseGoroutines parses the text produced by runtime.Stack(buf, true).
// Records whose header cannot be parsed are skipped.
func parseGoroutines(dump []byte) []goroutine {
	var out []goroutine
	var cur *goroutine

	sc := bufio.NewScanner(bytes.NewReader(dump))
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			cur = nil
			continue
		}
		if strings.HasPrefix(line, "goroutine ") {
			g, ok := parseHeader(line)
			if !ok {
				cur = nil
				continue
			}
			out = append(out, g)
			cur = &out[len(out)-1]
			continue
		}
		if cur == nil || strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "created by ") {
			continue
		}
		fn := frameFunction(line)
		if cur.Function == "" || (isRuntimeFrame(cur.Function) && !isRuntimeFrame(fn)) {
			cur.Function = fn
		}
	}
	return out
}

func parseHeader(line string) (goroutine, bool) {
	m := headerRe.FindStringSubmatch(line)
	if m == nil {
		return goroutine{}, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return goroutine{}, false
	}

	g := goroutine{ID: id}
	for i, part := range strings.Split(m[2], ", ") {
		switch {
		case i == 0:
			g.Reason = part
		case strings.HasSuffix(part, " minutes"):
			if n, err := strconv.Atoi(strings.TrimSuffix(part, " minutes")); err == nil {
				g.Wait = time.Duration(n) * time.Minute
			}
		case part == "locked to thread":
			g.LockedToThread = true
		}
	}
	g.State = stateForReason(g.Reason)
	return g, true
}

// frameFunction strips the argument list from a stack frame line.
func frameFunction(line string) string {
	if i := strings.LastIndex(line, "("); i > 0 {
		return line[:i]
	}
	return line
}

func isRuntimeFrame(fn string) bool {
	for _, prefix := range []string{"runtime.", "sync.", "internal/", "time.Sleep"} {
		if strings.HasPrefix(fn, prefix) {
			return true
		}
	}
	return false
}
