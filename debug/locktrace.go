package debug

import (
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Lock tracing is a debug aid for spotting contention on the ledger locks,
// for example reads queued behind a long mining run. Disabled by default.
//
// Enable with:
//   RAKTCHAIN_LOCK_TRACE=1
//
// Optional filter (milliseconds; default 0 = log everything):
//   RAKTCHAIN_LOCK_TRACE_MIN_WAIT_MS
//   RAKTCHAIN_LOCK_TRACE_MIN_HOLD_MS   (exclusive locks only)

var (
	traceEnabled atomic.Bool
	minWait      atomic.Int64
	minHold      atomic.Int64
	seq          atomic.Uint64

	initOnce sync.Once
)

func traceInit() {
	initOnce.Do(func() {
		traceEnabled.Store(EnvBool("RAKTCHAIN_LOCK_TRACE", false))
		minWait.Store(int64(envMillis("RAKTCHAIN_LOCK_TRACE_MIN_WAIT_MS")))
		minHold.Store(int64(envMillis("RAKTCHAIN_LOCK_TRACE_MIN_HOLD_MS")))
	})
}

// SetTracing overrides the environment setting. Tests use it to force
// tracing on or off.
func SetTracing(enabled bool) {
	traceInit()
	traceEnabled.Store(enabled)
}

// EnvBool reads a boolean environment variable, returning def when unset or
// unrecognised.
func EnvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

func envMillis(key string) time.Duration {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || n < 0 {
		return 0
	}
	return time.Duration(n) * time.Millisecond
}

// callsite returns file:line of the frame skip levels up, shortened to the
// last two path segments.
func callsite(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown:0"
	}
	parts := strings.Split(file, "/")
	if len(parts) >= 2 {
		file = parts[len(parts)-2] + "/" + parts[len(parts)-1]
	}
	return file + ":" + strconv.Itoa(line)
}

// tracer carries the bookkeeping shared by Mutex and RWMutex for exclusive
// acquisitions.
type tracer struct {
	name       string
	acquiredAt atomic.Int64
	lastSeq    atomic.Uint64
}

func (t *tracer) label() string {
	if t.name == "" {
		return "(unnamed)"
	}
	return t.name
}

func (t *tracer) acquired(mode string, wait time.Duration) {
	n := seq.Add(1)
	t.lastSeq.Store(n)
	t.acquiredAt.Store(time.Now().UnixNano())
	if int64(wait) >= minWait.Load() {
		slog.Debug("lock acquired", "seq", n, "lock", t.label(), "mode", mode,
			"wait", wait.Truncate(time.Microsecond), "at", callsite(3))
	}
}

func (t *tracer) released(mode string) {
	held := time.Since(time.Unix(0, t.acquiredAt.Load()))
	if int64(held) >= minHold.Load() {
		slog.Debug("lock released", "seq", t.lastSeq.Load(), "lock", t.label(), "mode", mode,
			"held", held.Truncate(time.Microsecond), "at", callsite(3))
	}
}

// Mutex is a sync.Mutex with optional contention tracing.
type Mutex struct {
	mu sync.Mutex
	tracer
}

func NewMutex(name string) *Mutex {
	return &Mutex{tracer: tracer{name: name}}
}

func (m *Mutex) Lock() {
	traceInit()
	if !traceEnabled.Load() {
		m.mu.Lock()
		return
	}
	start := time.Now()
	m.mu.Lock()
	m.acquired("Lock", time.Since(start))
}

func (m *Mutex) Unlock() {
	traceInit()
	if traceEnabled.Load() {
		m.released("Unlock")
	}
	m.mu.Unlock()
}

// RWMutex is a sync.RWMutex with optional contention tracing. Read locks log
// wait time only; hold time is meaningless with several readers.
type RWMutex struct {
	mu sync.RWMutex
	tracer
}

func NewRWMutex(name string) *RWMutex {
	return &RWMutex{tracer: tracer{name: name}}
}

func (m *RWMutex) Lock() {
	traceInit()
	if !traceEnabled.Load() {
		m.mu.Lock()
		return
	}
	start := time.Now()
	m.mu.Lock()
	m.acquired("Lock", time.Since(start))
}

func (m *RWMutex) Unlock() {
	traceInit()
	if traceEnabled.Load() {
		m.released("Unlock")
	}
	m.mu.Unlock()
}

func (m *RWMutex) RLock() {
	traceInit()
	if !traceEnabled.Load() {
		m.mu.RLock()
		return
	}
	start := time.Now()
	m.mu.RLock()
	if wait := time.Since(start); int64(wait) >= minWait.Load() {
		slog.Debug("lock acquired", "lock", m.label(), "mode", "RLock",
			"wait", wait.Truncate(time.Microsecond), "at", callsite(2))
	}
}

func (m *RWMutex) RUnlock() {
	m.mu.RUnlock()
}
