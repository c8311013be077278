// Package metrics provides lightweight counters and gauges for
// tracking runtime statistics of an nREPL connection.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for one connection lifetime.
// A nil Collector is safe to use — all methods become no-ops.
type Collector struct {
	sessionsCloned   atomic.Int64
	evalsTotal       atomic.Int64
	evalsFailed      atomic.Int64
	bytesIn          atomic.Int64
	bytesOut         atomic.Int64
	bootstrapsOK     atomic.Int64
	bootstrapsFailed atomic.Int64
	errorsTotal      atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Session metrics ──────────────────────────────────────────────────

// SessionCloned records a successful server-side session clone.
func (c *Collector) SessionCloned() {
	if c == nil {
		return
	}
	c.sessionsCloned.Add(1)
}

// SessionsCloned returns the lifetime clone count.
func (c *Collector) SessionsCloned() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsCloned.Load()
}

// ── Evaluation metrics ───────────────────────────────────────────────

// EvalCompleted records one finished evaluation; failed marks remote
// exceptions.
func (c *Collector) EvalCompleted(failed bool) {
	if c == nil {
		return
	}
	c.evalsTotal.Add(1)
	if failed {
		c.evalsFailed.Add(1)
	}
}

// Evals returns (total, failed) evaluation counts.
func (c *Collector) Evals() (total, failed int64) {
	if c == nil {
		return 0, 0
	}
	return c.evalsTotal.Load(), c.evalsFailed.Load()
}

// ── I/O metrics ──────────────────────────────────────────────────────

// BytesReceived records n bytes read from the socket.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// BytesSent records n bytes written to the socket.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// ── Bootstrap metrics ────────────────────────────────────────────────

// BootstrapFinished records the outcome of one ClojureScript REPL
// bootstrap attempt.
func (c *Collector) BootstrapFinished(ok bool) {
	if c == nil {
		return
	}
	if ok {
		c.bootstrapsOK.Add(1)
	} else {
		c.bootstrapsFailed.Add(1)
	}
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	SessionsCloned   int64  `json:"sessions_cloned"`
	EvalsTotal       int64  `json:"evals_total"`
	EvalsFailed      int64  `json:"evals_failed"`
	BytesIn          int64  `json:"bytes_in"`
	BytesOut         int64  `json:"bytes_out"`
	BootstrapsOK     int64  `json:"bootstraps_ok"`
	BootstrapsFailed int64  `json:"bootstraps_failed"`
	ErrorsTotal      int64  `json:"errors_total"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:           time.Since(c.startTime).Truncate(time.Second).String(),
		SessionsCloned:   c.sessionsCloned.Load(),
		EvalsTotal:       c.evalsTotal.Load(),
		EvalsFailed:      c.evalsFailed.Load(),
		BytesIn:          c.bytesIn.Load(),
		BytesOut:         c.bytesOut.Load(),
		BootstrapsOK:     c.bootstrapsOK.Load(),
		BootstrapsFailed: c.bootstrapsFailed.Load(),
		ErrorsTotal:      c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
