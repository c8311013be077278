package nrepl

import (
	"context"
	"strings"
	"sync"

	jkerr "jackin/internal/errors"
	"jackin/util"
)

// Session is one logical nREPL session multiplexed on a Client.  A
// Session holds a back-reference to its Client but does not own it;
// closing the Client orphans every Session built on it.
type Session struct {
	id     string
	client *Client

	// evalMu serialises evaluations on this session: nREPL guarantees
	// in-order processing per session, and holding the submission slot
	// until "done" keeps our view consistent with the server's.
	evalMu sync.Mutex
}

// Handlers receives interleaved output chunks during an evaluation.
// Chunks are ANSI-stripped before delivery.  Either field may be nil.
type Handlers struct {
	OnStdout func(text string)
	OnStderr func(text string)
}

// ID returns the server-assigned session id.
func (s *Session) ID() string { return s.id }

// Client returns the owning transport client.
func (s *Session) Client() *Client { return s.client }

// Clone asks the server for a sibling session on the same connection,
// sharing no conversation state with this one.
func (s *Session) Clone(ctx context.Context) (*Session, error) {
	return s.client.clone(ctx, s.id)
}

// Eval submits code for evaluation on this session and blocks until
// the server reports completion.  Output chunks stream to h as they
// arrive.  The returned string is the final printed value (multiple
// values are newline-joined).  A remote exception yields an
// *errors.EvalError carrying the captured stderr.
func (s *Session) Eval(ctx context.Context, code string, h Handlers) (string, error) {
	s.evalMu.Lock()
	defer s.evalMu.Unlock()

	c := s.client
	id := c.newID()
	p, err := c.register(id)
	if err != nil {
		return "", err
	}
	defer c.unregister(id)

	if err := c.send(request{Op: "eval", ID: id, Session: s.id, Code: code}); err != nil {
		return "", err
	}

	var (
		values []string
		stderr []string
		ex     string
		failed bool
	)

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case r, ok := <-p.ch:
			if !ok {
				c.metrics.EvalCompleted(true)
				return "", jkerr.ErrConnectionClosed
			}
			if r.Out != "" {
				text := util.StripANSI(r.Out)
				if h.OnStdout != nil {
					h.OnStdout(text)
				}
			}
			if r.Err != "" {
				text := util.StripANSI(r.Err)
				stderr = append(stderr, text)
				if h.OnStderr != nil {
					h.OnStderr(text)
				}
			}
			if r.Value != "" {
				values = append(values, r.Value)
			}
			if r.Ex != "" {
				ex = r.Ex
				failed = true
			}
			if r.hasStatus("eval-error") {
				failed = true
			}
			if r.done() {
				c.metrics.EvalCompleted(failed)
				if failed {
					return "", &jkerr.EvalError{Session: s.id, Ex: ex, Stderr: stderr}
				}
				return strings.Join(values, "\n"), nil
			}
		}
	}
}
