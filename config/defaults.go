package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags and environment variable loading.

const (
	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultHost is used when the user supplies only a port.
	DefaultHost = "localhost"

	// DefaultConnTimeout is the TCP/SSH connection timeout.  The
	// socket connect itself is expected to fail fast; this is an
	// upper bound, not a wait.
	DefaultConnTimeout = 30 * time.Second

	// DefaultWaitBackoff is the initial delay between connect probes
	// in --wait mode.
	DefaultWaitBackoff = time.Second

	// DefaultWaitMaxBackoff caps the delay between connect probes.
	DefaultWaitMaxBackoff = 10 * time.Second

	// ReplTypeNone is the sentinel "no ClojureScript session" choice.
	ReplTypeNone = "none"
)
