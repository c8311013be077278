package nrepl

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/zeebo/bencode"

	jkerr "jackin/internal/errors"
	"jackin/internal/metrics"
	"jackin/internal/transport"
	"jackin/util"
)

// CloseReason distinguishes a deliberate teardown (disconnect,
// reconnect, shutdown) from an unexpected drop.  Close handlers use it
// to decide whether a user-visible "disconnected" notice is warranted.
type CloseReason int

const (
	CloseDeliberate CloseReason = iota
	CloseUnexpected
)

func (r CloseReason) String() string {
	if r == CloseDeliberate {
		return "deliberate"
	}
	return "unexpected"
}

// Client owns one physical connection to an nREPL server.  It runs the
// read loop, demultiplexes responses to pending requests by message id
// (and therefore by session — every request carries a fresh id), and
// notifies close handlers exactly once when the connection ends.
type Client struct {
	conn    net.Conn
	addr    string
	logger  *util.Logger
	metrics *metrics.Collector

	wmu sync.Mutex // serialises writes to the encoder
	enc *bencode.Encoder

	mu            sync.Mutex
	pending       map[string]*pendingReq
	closed        bool
	closeReason   CloseReason
	handlersFired bool
	closeHandlers []func(CloseReason)

	nextID         atomic.Int64
	defaultSession *Session
}

// Connect dials the server through the given transport, performs the
// initial clone handshake, and returns a Client whose default session
// is ready for evaluation.  The collector may be nil.
func Connect(ctx context.Context, dialer transport.Dialer, host string, port int,
	logger *util.Logger, collector *metrics.Collector) (*Client, error) {

	addr := util.FormatAddr(host, port)
	logger.Verbose("nrepl: dialing %s", addr)

	conn, err := dialer.Dial(ctx, "tcp", addr)
	if err != nil {
		return nil, jkerr.WrapConn("dial", addr, err)
	}

	cc := &countingConn{Conn: conn, metrics: collector}
	c := &Client{
		conn:    cc,
		addr:    addr,
		logger:  logger,
		metrics: collector,
		enc:     bencode.NewEncoder(cc),
		pending: make(map[string]*pendingReq),
	}

	go c.readLoop()

	// The handshake clone yields the default session.  A server that
	// drops or garbles this exchange is not an nREPL server.
	sess, err := c.clone(ctx, "")
	if err != nil {
		c.Close(CloseDeliberate)
		return nil, err
	}
	c.defaultSession = sess

	logger.Verbose("nrepl: connected, default session %s", sess.ID())
	return c, nil
}

// Addr returns the host:port this client is connected to.
func (c *Client) Addr() string { return c.addr }

// DefaultSession returns the session created during the handshake.
func (c *Client) DefaultSession() *Session { return c.defaultSession }

// Clone asks the server for a fresh session sharing no conversation
// state with any existing one.
func (c *Client) Clone(ctx context.Context) (*Session, error) {
	return c.clone(ctx, "")
}

// OnClose registers a handler invoked exactly once when the connection
// closes.  If the connection is already closed, the handler fires
// immediately.  There is no unregister — a connection is single-use.
func (c *Client) OnClose(fn func(CloseReason)) {
	c.mu.Lock()
	if c.handlersFired {
		reason := c.closeReason
		c.mu.Unlock()
		fn(reason)
		return
	}
	c.closeHandlers = append(c.closeHandlers, fn)
	c.mu.Unlock()
}

// Close terminates the connection.  Idempotent; the first call's
// reason wins.  Close handlers fire exactly once, from whichever of
// Close or the read loop finishes the connection.
func (c *Client) Close(reason CloseReason) {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		c.closeReason = reason
	}
	c.mu.Unlock()

	c.conn.Close() // unblocks the read loop; safe to call twice
}

// IsClosed reports whether the connection has been closed.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// ── request plumbing ─────────────────────────────────────────────────

func (c *Client) newID() string {
	return strconv.FormatInt(c.nextID.Add(1), 10)
}

// pendingReq is one in-flight request: the channel its responses are
// routed to, and a done channel the read loop selects on so a routed
// send can be abandoned when the consumer stops receiving (context
// cancellation mid-stream must not wedge the read loop).
type pendingReq struct {
	ch   chan response
	done chan struct{}
}

// register creates the response channel for a request id.
func (c *Client) register(id string) (*pendingReq, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, jkerr.ErrConnectionClosed
	}
	p := &pendingReq{
		ch:   make(chan response, 16),
		done: make(chan struct{}),
	}
	c.pending[id] = p
	return p, nil
}

// unregister drops the request for an id and releases the read loop if
// it is mid-send to the abandoned channel.  Responses arriving
// afterwards are discarded.
func (c *Client) unregister(id string) {
	c.mu.Lock()
	p, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if ok {
		close(p.done)
	}
}

// send encodes one request onto the wire.
func (c *Client) send(req request) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return jkerr.ErrConnectionClosed
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.enc.Encode(req); err != nil {
		return jkerr.WrapConn("write", c.addr, err)
	}
	return nil
}

// clone issues a clone op (from parent, or fresh when parent is empty)
// and waits for the new session id.
func (c *Client) clone(ctx context.Context, parent string) (*Session, error) {
	id := c.newID()
	p, err := c.register(id)
	if err != nil {
		return nil, err
	}
	defer c.unregister(id)

	if err := c.send(request{Op: "clone", ID: id, Session: parent}); err != nil {
		return nil, err
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case r, ok := <-p.ch:
			if !ok {
				return nil, jkerr.ErrConnectionClosed
			}
			if r.NewSession != "" {
				c.metrics.SessionCloned()
				return &Session{id: r.NewSession, client: c}, nil
			}
			if r.done() {
				return nil, jkerr.Protocol("clone", parent, "no new-session in response")
			}
		}
	}
}

// ── read loop ────────────────────────────────────────────────────────

// readLoop decodes responses off the socket and routes each to the
// pending request it answers.  Chunks carry their owning session id
// from the server; correlation is by message id, which is unique per
// request, so output for one session can never reach another.
func (c *Client) readLoop() {
	dec := bencode.NewDecoder(bufio.NewReader(c.conn))

	for {
		var r response
		if err := dec.Decode(&r); err != nil {
			c.mu.Lock()
			deliberate := c.closed
			c.mu.Unlock()
			if !deliberate {
				c.logger.Debug("nrepl: read loop ended: %v", err)
				c.metrics.RecordError(err.Error())
			}
			break
		}

		c.mu.Lock()
		p := c.pending[r.ID]
		c.mu.Unlock()

		if p == nil {
			c.logger.Debug("nrepl: dropping response for unknown id %q (session %q)",
				r.ID, r.Session)
			continue
		}
		select {
		case p.ch <- r:
		case <-p.done:
			// The consumer gave up mid-stream; drop this and every
			// later response for the request instead of blocking.
		}
	}

	c.finish()
}

// finish marks the client closed, drains pending requests, and fires
// close handlers exactly once.
func (c *Client) finish() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		c.closeReason = CloseUnexpected
	}
	reason := c.closeReason

	for id, p := range c.pending {
		close(p.ch)
		delete(c.pending, id)
	}

	var handlers []func(CloseReason)
	if !c.handlersFired {
		c.handlersFired = true
		handlers = c.closeHandlers
		c.closeHandlers = nil
	}
	c.mu.Unlock()

	c.conn.Close()
	for _, fn := range handlers {
		fn(reason)
	}
}

// ── byte accounting ──────────────────────────────────────────────────

// countingConn records socket traffic into the metrics collector.
type countingConn struct {
	net.Conn
	metrics *metrics.Collector
}

func (c *countingConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	c.metrics.BytesReceived(int64(n))
	return n, err
}

func (c *countingConn) Write(p []byte) (int, error) {
	n, err := c.Conn.Write(p)
	c.metrics.BytesSent(int64(n))
	return n, err
}
