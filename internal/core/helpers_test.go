package core

// End-to-end fixtures: a loopback bencode nREPL server plus scripted
// prompting, so the whole connect state machine runs against real
// sockets.

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/zeebo/bencode"

	"jackin/config"
	"jackin/internal/metrics"
	"jackin/internal/repltype"
	"jackin/util"
)

type srvRequest struct {
	Op      string `bencode:"op"`
	ID      string `bencode:"id"`
	Session string `bencode:"session"`
	Code    string `bencode:"code"`
}

type srvResponse struct {
	ID         string   `bencode:"id"`
	Session    string   `bencode:"session"`
	NewSession string   `bencode:"new-session,omitempty"`
	Value      string   `bencode:"value,omitempty"`
	Out        string   `bencode:"out,omitempty"`
	Err        string   `bencode:"err,omitempty"`
	Status     []string `bencode:"status,omitempty"`
}

type fakeServer struct {
	t  *testing.T
	ln net.Listener

	mu       sync.Mutex
	sessions int
	conns    []net.Conn

	// onEval scripts the responses for one eval; nil means value nil.
	onEval func(code, session string) []srvResponse
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

// dropAll severs every accepted connection, simulating a server crash.
func (f *fakeServer) dropAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.conns {
		c.Close()
	}
	f.conns = nil
}

func (f *fakeServer) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		f.mu.Lock()
		f.conns = append(f.conns, conn)
		f.mu.Unlock()
		go f.handle(conn)
	}
}

func (f *fakeServer) handle(conn net.Conn) {
	defer conn.Close()

	dec := bencode.NewDecoder(conn)
	enc := bencode.NewEncoder(conn)

	for {
		var req srvRequest
		if err := dec.Decode(&req); err != nil {
			return
		}

		switch req.Op {
		case "clone":
			f.mu.Lock()
			f.sessions++
			id := fmt.Sprintf("session-%d", f.sessions)
			f.mu.Unlock()
			enc.Encode(srvResponse{ //nolint:errcheck
				ID: req.ID, Session: req.Session,
				NewSession: id, Status: []string{"done"},
			})

		case "eval":
			var rs []srvResponse
			if f.onEval != nil {
				rs = f.onEval(req.Code, req.Session)
			} else {
				rs = []srvResponse{{Value: "nil"}}
			}
			sawDone := false
			for _, r := range rs {
				r.ID = req.ID
				r.Session = req.Session
				for _, s := range r.Status {
					if s == "done" {
						sawDone = true
					}
				}
				enc.Encode(r) //nolint:errcheck
			}
			if !sawDone {
				enc.Encode(srvResponse{ID: req.ID, Session: req.Session, //nolint:errcheck
					Status: []string{"done"}})
			}
		}
	}
}

// fakePrompter pops scripted answers; an exhausted queue dismisses.
type fakePrompter struct {
	inputs []string
	picks  []string
}

func (p *fakePrompter) Input(_, prefill string) (string, bool, error) {
	if len(p.inputs) == 0 {
		return "", false, nil
	}
	v := p.inputs[0]
	p.inputs = p.inputs[1:]
	if v == "" {
		v = prefill
	}
	return v, v != "", nil
}

func (p *fakePrompter) PickOne(_ string, options []string, _ string) (string, bool, error) {
	if len(p.picks) == 0 {
		return "", false, nil
	}
	v := p.picks[0]
	p.picks = p.picks[1:]
	for _, opt := range options {
		if opt == v {
			return v, true, nil
		}
	}
	return "", false, nil
}

func (p *fakePrompter) PickMany(_ string, _ []string, _ []string) ([]string, bool, error) {
	return nil, false, nil
}

// newProject creates a project directory with a deps.edn marker under
// a workspace root and returns both paths.
func newProject(t *testing.T) (workspace, projectDir string) {
	t.Helper()
	workspace = t.TempDir()
	projectDir = filepath.Join(workspace, "app")
	if err := os.MkdirAll(filepath.Join(projectDir, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(projectDir, "deps.edn"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	return workspace, projectDir
}

func writePortFile(t *testing.T, projectDir string, port int) {
	t.Helper()
	path := filepath.Join(projectDir, ".nrepl-port")
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%d\n", port)), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testConfig(workspace, projectDir string) *config.Config {
	return &config.Config{
		Host:          "127.0.0.1",
		Timeout:       config.DefaultConnTimeout,
		WorkspaceRoot: workspace,
		DocumentPath:  filepath.Join(projectDir, "src", "core.clj"),
	}
}

func newOrchestrator(t *testing.T, cfg *config.Config, p *fakePrompter,
	custom *config.CustomTemplate) *Orchestrator {

	t.Helper()
	registry, err := repltype.NewRegistry(custom)
	if err != nil {
		t.Fatal(err)
	}
	o := New(cfg, util.NewLogger(0), p, registry, metrics.New())
	t.Cleanup(o.Disconnect)
	return o
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
