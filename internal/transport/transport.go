// Package transport provides abstractions for reaching an nREPL
// server.  Transports handle the "how" of the socket — plain TCP to a
// local JVM, or TCP forwarded through an SSH gateway to a remote dev
// box — independent of the nREPL conversation that runs over it
// (which is the nrepl package's job).
package transport

import (
	"context"
	"net"
)

// Dialer opens the physical connection to an nREPL server.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH client).  Stateless dialers return nil.
	Close() error
}
