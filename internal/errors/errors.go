// Package errors provides domain-specific error types for jackin.
//
// These types carry structured context (operation, address, session id)
// that lets the orchestrator decide how far a failure propagates: a
// ClojureScript bootstrap failure never unwinds the Clojure connection,
// while an invalid address aborts the whole attempt.
package errors

import (
	"errors"
	"fmt"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	// ErrNoOpenDocument aborts a manual connect: project-root
	// resolution needs an active document to walk upward from.
	ErrNoOpenDocument = errors.New("no open document to resolve a project from")

	// ErrInvalidAddress means the host:port input failed validation.
	// The caller may re-prompt; connecting flags are reset.
	ErrInvalidAddress = errors.New("invalid host:port address")

	// ErrConnectionClosed is returned for operations on a session
	// whose underlying connection has been closed.
	ErrConnectionClosed = errors.New("nREPL connection is closed")

	// ErrNotConnected is returned for operations that need a live
	// connection when none exists.
	ErrNotConnected = errors.New("not connected to an nREPL server")

	// ErrBootstrapFailed means the connect predicate returned false
	// after the bootstrap evaluation completed cleanly.  Non-fatal to
	// the Clojure session.
	ErrBootstrapFailed = errors.New("ClojureScript REPL bootstrap failed")

	// ErrPromptDismissed means the user dismissed a prompt, cancelling
	// the in-flight attempt (not an error worth a log line).
	ErrPromptDismissed = errors.New("prompt dismissed")
)

// ── Structured error types ───────────────────────────────────────────

// ConnError represents a network-level failure: unreachable server,
// failed handshake, or an unexpected drop.
type ConnError struct {
	Op   string // "dial", "handshake", "read", "write"
	Addr string // network address involved
	Err  error  // underlying error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }

// ProtocolError represents an unexpected server response to a session
// operation (e.g. a clone request the server rejected).
type ProtocolError struct {
	Op      string // nREPL op: "clone", "close", "eval"
	Session string // session id, if one was involved
	Message string // what the server said, or what was malformed
}

func (e *ProtocolError) Error() string {
	if e.Session != "" {
		return fmt.Sprintf("nrepl %s (session %s): %s", e.Op, e.Session, e.Message)
	}
	return fmt.Sprintf("nrepl %s: %s", e.Op, e.Message)
}

// EvalError represents a remote exception raised during evaluation.
// Stderr captured up to the failure rides along so connect predicates
// can still classify the outcome ("address already in use" on stderr
// is a success signal for some strategies).
type EvalError struct {
	Session string
	Ex      string   // remote exception class/summary, if reported
	Stderr  []string // captured stderr lines
}

func (e *EvalError) Error() string {
	if e.Ex != "" {
		return fmt.Sprintf("eval failed (session %s): %s", e.Session, e.Ex)
	}
	return fmt.Sprintf("eval failed (session %s)", e.Session)
}

// ── Constructors ─────────────────────────────────────────────────────

// WrapConn creates a ConnError.
func WrapConn(op, addr string, err error) *ConnError {
	return &ConnError{Op: op, Addr: addr, Err: err}
}

// Protocol creates a ProtocolError.
func Protocol(op, session, format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Op: op, Session: session, Message: fmt.Sprintf(format, args...)}
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use jackin/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
