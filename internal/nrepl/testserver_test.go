package nrepl

// A minimal in-process nREPL server speaking bencode over a loopback
// listener.  Tests script its eval behaviour per request; clone is
// handled built-in with generated session ids.

import (
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/zeebo/bencode"
)

type fakeServer struct {
	t  *testing.T
	ln net.Listener

	mu       sync.Mutex
	sessions int

	// onEval produces the responses for one eval request (id and
	// session are filled in by the server; a final "done" status is
	// appended if the script omits it).  Nil means "value nil".
	onEval func(code, session string) []response

	// evalDelay staggers concurrent eval responses to force
	// interleaving at the transport level.
	evalDelay time.Duration
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	f := &fakeServer{t: t, ln: ln}
	t.Cleanup(func() { ln.Close() })
	go f.serve()
	return f
}

func (f *fakeServer) port() int {
	return f.ln.Addr().(*net.TCPAddr).Port
}

func (f *fakeServer) newSession() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions++
	return fmt.Sprintf("session-%d", f.sessions)
}

func (f *fakeServer) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeServer) handle(conn net.Conn) {
	defer conn.Close()

	dec := bencode.NewDecoder(conn)
	var wmu sync.Mutex
	enc := bencode.NewEncoder(conn)

	reply := func(r response) {
		wmu.Lock()
		defer wmu.Unlock()
		enc.Encode(r) //nolint:errcheck
	}

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			return
		}

		switch req.Op {
		case "clone":
			reply(response{
				ID:         req.ID,
				Session:    req.Session,
				NewSession: f.newSession(),
				Status:     []string{"done"},
			})

		case "eval":
			// Each eval runs in its own goroutine so concurrent
			// sessions genuinely interleave on the wire.
			go func(req request) {
				var rs []response
				if f.onEval != nil {
					rs = f.onEval(req.Code, req.Session)
				} else {
					rs = []response{{Value: "nil"}}
				}
				sawDone := false
				for _, r := range rs {
					r.ID = req.ID
					r.Session = req.Session
					if r.done() {
						sawDone = true
					}
					reply(r)
					if f.evalDelay > 0 {
						time.Sleep(f.evalDelay)
					}
				}
				if !sawDone {
					reply(response{ID: req.ID, Session: req.Session,
						Status: []string{"done"}})
				}
			}(req)
		}
	}
}
