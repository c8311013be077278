// Package core drives the connection lifecycle: project resolution,
// REPL-type selection, physical connect, Clojure session bring-up, and
// the optional ClojureScript bootstrap.  ConnState is the single owned
// record of what is connected; the Orchestrator is its only writer.
package core

import (
	"sync"

	"jackin/internal/nrepl"
)

// Event is a state-change notification delivered to subscribers, for
// collaborators that refresh UI on connection changes.
type Event int

const (
	EventConnected Event = iota
	EventDisconnected
	EventRoleChanged
)

func (e Event) String() string {
	switch e {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	default:
		return "role-changed"
	}
}

// Snapshot is a read-only copy of the connection state, safe to hand
// to concurrent readers while the orchestrator is mid-attempt.
type Snapshot struct {
	Connected  bool
	Connecting bool
	ReplType   string
	Build      string
	ProjectDir string

	// Session ids per role; empty when the role is unbound.
	CLJ  string
	CLJS string
	CLJC string
}

// ConnState holds the session roles and connection flags.  The cljc
// role is never an independent session: it aliases either clj or cljs,
// and ToggleSessionKind swaps which.
type ConnState struct {
	mu         sync.Mutex
	clj        *nrepl.Session
	cljs       *nrepl.Session
	cljcIsCLJS bool

	connected  bool
	connecting bool
	replType   string
	build      string
	projectDir string

	subs []func(Event)
}

func NewConnState() *ConnState { return &ConnState{} }

// Subscribe registers a callback for connection events.  Callbacks run
// synchronously on the mutating goroutine, outside the state lock.
func (s *ConnState) Subscribe(fn func(Event)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

func (s *ConnState) notify(e Event) {
	s.mu.Lock()
	subs := make([]func(Event), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(e)
	}
}

// CLJ returns the Clojure session, or nil when disconnected.
func (s *ConnState) CLJ() *nrepl.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clj
}

// CLJS returns the ClojureScript session, or nil if none was
// bootstrapped.
func (s *ConnState) CLJS() *nrepl.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cljs
}

// CLJC returns the session the shared role currently aliases.
func (s *ConnState) CLJC() *nrepl.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cljcLocked()
}

func (s *ConnState) cljcLocked() *nrepl.Session {
	if !s.connected {
		return nil
	}
	if s.cljcIsCLJS {
		return s.cljs
	}
	return s.clj
}

// ToggleSessionKind swaps the cljc alias between clj and cljs.  It is
// a no-op when disconnected, or when the target role is unbound.  It
// reports whether a swap happened.
func (s *ConnState) ToggleSessionKind() bool {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return false
	}
	if !s.cljcIsCLJS && s.cljs == nil {
		s.mu.Unlock()
		return false
	}
	s.cljcIsCLJS = !s.cljcIsCLJS
	s.mu.Unlock()

	s.notify(EventRoleChanged)
	return true
}

// Snapshot copies the current state for readers.
func (s *ConnState) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Connected:  s.connected,
		Connecting: s.connecting,
		ReplType:   s.replType,
		Build:      s.build,
		ProjectDir: s.projectDir,
	}
	if s.clj != nil {
		snap.CLJ = s.clj.ID()
	}
	if s.cljs != nil {
		snap.CLJS = s.cljs.ID()
	}
	if c := s.cljcLocked(); c != nil {
		snap.CLJC = c.ID()
	}
	return snap
}

// ── mutators (orchestrator only) ─────────────────────────────────────

func (s *ConnState) setConnecting(v bool) {
	s.mu.Lock()
	s.connecting = v
	s.mu.Unlock()
}

func (s *ConnState) setProjectDir(dir string) {
	s.mu.Lock()
	s.projectDir = dir
	s.mu.Unlock()
}

func (s *ConnState) setReplType(name string) {
	s.mu.Lock()
	s.replType = name
	s.mu.Unlock()
}

func (s *ConnState) setBuild(name string) {
	s.mu.Lock()
	s.build = name
	s.mu.Unlock()
}

// bindClojure installs the base session: clj is set, cljc aliases it,
// the connection counts as up.
func (s *ConnState) bindClojure(sess *nrepl.Session) {
	s.mu.Lock()
	s.clj = sess
	s.cljs = nil
	s.cljcIsCLJS = false
	s.connected = true
	s.connecting = false
	s.mu.Unlock()

	s.notify(EventConnected)
	s.notify(EventRoleChanged)
}

func (s *ConnState) bindCLJS(sess *nrepl.Session) {
	s.mu.Lock()
	s.cljs = sess
	s.mu.Unlock()

	s.notify(EventRoleChanged)
}

func (s *ConnState) clearCLJS() {
	s.mu.Lock()
	changed := s.cljs != nil
	s.cljs = nil
	s.cljcIsCLJS = false
	s.mu.Unlock()

	if changed {
		s.notify(EventRoleChanged)
	}
}

// disconnected clears every role and flag.  It reports whether there
// was a live connection to clear, so repeat calls stay silent.
func (s *ConnState) disconnected() bool {
	s.mu.Lock()
	was := s.connected
	s.clj = nil
	s.cljs = nil
	s.cljcIsCLJS = false
	s.connected = false
	s.connecting = false
	s.mu.Unlock()

	if was {
		s.notify(EventDisconnected)
	}
	return was
}
