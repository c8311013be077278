package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"jackin/config"
	jkerr "jackin/internal/errors"
	"jackin/internal/project"
)

func TestConnect_AutoconnectFromPortFile(t *testing.T) {
	srv := newFakeServer(t)
	workspace, projectDir := newProject(t)
	writePortFile(t, projectDir, srv.port())

	cfg := testConfig(workspace, projectDir)
	cfg.Autoconnect = true
	cfg.ReplType = config.ReplTypeNone

	o := newOrchestrator(t, cfg, &fakePrompter{}, nil)
	if err := o.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	snap := o.State().Snapshot()
	if !snap.Connected || snap.Connecting {
		t.Errorf("flags = %+v", snap)
	}
	if snap.CLJ == "" || snap.CLJ != snap.CLJC {
		t.Errorf("clj=%q cljc=%q, want same bound session", snap.CLJ, snap.CLJC)
	}
	if snap.CLJS != "" {
		t.Errorf("cljs = %q, want unbound", snap.CLJS)
	}
	if snap.ProjectDir != projectDir {
		t.Errorf("project dir = %q, want %q", snap.ProjectDir, projectDir)
	}
}

func TestConnect_NoOpenDocument(t *testing.T) {
	cfg := &config.Config{Host: "127.0.0.1", WorkspaceRoot: t.TempDir()}
	o := newOrchestrator(t, cfg, &fakePrompter{}, nil)

	err := o.Connect(context.Background())
	if !jkerr.Is(err, jkerr.ErrNoOpenDocument) {
		t.Errorf("err = %v, want ErrNoOpenDocument", err)
	}
	if snap := o.State().Snapshot(); snap.Connecting || snap.Connected {
		t.Errorf("flags not reset: %+v", snap)
	}
}

func TestConnect_InvalidAddressResetsFlags(t *testing.T) {
	workspace, projectDir := newProject(t)
	cfg := testConfig(workspace, projectDir)
	cfg.ReplType = config.ReplTypeNone

	// No port file, so the manual path prompts; the answer is garbage.
	p := &fakePrompter{inputs: []string{"localhost:notaport"}}
	o := newOrchestrator(t, cfg, p, nil)

	err := o.Connect(context.Background())
	if !jkerr.Is(err, jkerr.ErrInvalidAddress) {
		t.Errorf("err = %v, want ErrInvalidAddress", err)
	}
	if snap := o.State().Snapshot(); snap.Connecting {
		t.Error("connecting flag not reset")
	}
}

func TestConnect_PromptDismissalAborts(t *testing.T) {
	workspace, projectDir := newProject(t)
	cfg := testConfig(workspace, projectDir)
	cfg.ReplType = config.ReplTypeNone

	o := newOrchestrator(t, cfg, &fakePrompter{}, nil) // empty: dismiss
	err := o.Connect(context.Background())
	if !jkerr.Is(err, jkerr.ErrPromptDismissed) {
		t.Errorf("err = %v, want ErrPromptDismissed", err)
	}
}

func TestConnect_ReplTypePickPersisted(t *testing.T) {
	srv := newFakeServer(t)
	workspace, projectDir := newProject(t)
	writePortFile(t, projectDir, srv.port())

	cfg := testConfig(workspace, projectDir)
	cfg.Autoconnect = true

	p := &fakePrompter{picks: []string{config.ReplTypeNone}}
	o := newOrchestrator(t, cfg, p, nil)
	if err := o.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	s := project.OpenSettings(projectDir)
	if got := s.GetString(project.SettingReplType); got != config.ReplTypeNone {
		t.Errorf("persisted replType = %q", got)
	}
}

func TestConnect_CustomCLJSBootstrap(t *testing.T) {
	srv := newFakeServer(t)
	srv.onEval = func(code, session string) []srvResponse {
		if code == "(app/start)" {
			return []srvResponse{{Out: "app: READY\n"}, {Value: "nil"}}
		}
		return []srvResponse{{Value: "nil"}}
	}
	workspace, projectDir := newProject(t)
	writePortFile(t, projectDir, srv.port())

	cfg := testConfig(workspace, projectDir)
	cfg.Autoconnect = true
	cfg.ReplType = "my-app"
	custom := &config.CustomTemplate{
		Name: "my-app", StartCode: "(app/start)", ConnectedPattern: "READY",
	}

	o := newOrchestrator(t, cfg, &fakePrompter{}, custom)
	if err := o.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	snap := o.State().Snapshot()
	if snap.CLJS == "" {
		t.Fatal("cljs session not bound")
	}
	if snap.CLJS == snap.CLJ {
		t.Error("cljs must be a fresh clone, not the clj session")
	}
	// cljc keeps aliasing clj until toggled.
	if snap.CLJC != snap.CLJ {
		t.Errorf("cljc = %q, want %q", snap.CLJC, snap.CLJ)
	}
}

func TestConnect_CLJSFailureKeepsClojure(t *testing.T) {
	srv := newFakeServer(t) // default eval: value nil, no output
	workspace, projectDir := newProject(t)
	writePortFile(t, projectDir, srv.port())

	// Pre-seed a build selection: a failed bootstrap must clear it.
	if err := project.OpenSettings(projectDir).Set(project.SettingBuild, "dev"); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig(workspace, projectDir)
	cfg.Autoconnect = true
	cfg.ReplType = "my-app"
	custom := &config.CustomTemplate{
		Name: "my-app", StartCode: "(app/start)", ConnectedPattern: "READY",
	}

	o := newOrchestrator(t, cfg, &fakePrompter{}, custom)
	if err := o.Connect(context.Background()); err != nil {
		t.Fatalf("cljs failure must not fail the connect: %v", err)
	}

	snap := o.State().Snapshot()
	if !snap.Connected || snap.CLJ == "" {
		t.Error("clojure session must remain up")
	}
	if snap.CLJS != "" {
		t.Errorf("cljs = %q, want unbound", snap.CLJS)
	}
	if got := project.OpenSettings(projectDir).GetString(project.SettingBuild); got != "" {
		t.Errorf("build setting = %q, want cleared", got)
	}
}

func TestDisconnect_Idempotent(t *testing.T) {
	srv := newFakeServer(t)
	workspace, projectDir := newProject(t)
	writePortFile(t, projectDir, srv.port())

	cfg := testConfig(workspace, projectDir)
	cfg.Autoconnect = true
	cfg.ReplType = config.ReplTypeNone

	o := newOrchestrator(t, cfg, &fakePrompter{}, nil)
	if err := o.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	var events []Event
	o.State().Subscribe(func(e Event) { events = append(events, e) })

	for i := 0; i < 2; i++ {
		o.Disconnect()
		snap := o.State().Snapshot()
		if snap.Connected || snap.CLJ != "" || snap.CLJS != "" || snap.CLJC != "" {
			t.Errorf("round %d: state not cleared: %+v", i, snap)
		}
	}
	if len(events) != 1 || events[0] != EventDisconnected {
		t.Errorf("events = %v, want one disconnect", events)
	}
}

func TestConnect_UnexpectedDropClearsState(t *testing.T) {
	srv := newFakeServer(t)
	workspace, projectDir := newProject(t)
	writePortFile(t, projectDir, srv.port())

	cfg := testConfig(workspace, projectDir)
	cfg.Autoconnect = true
	cfg.ReplType = config.ReplTypeNone

	o := newOrchestrator(t, cfg, &fakePrompter{}, nil)
	if err := o.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	srv.dropAll()
	waitFor(t, func() bool { return !o.State().Snapshot().Connected })

	if snap := o.State().Snapshot(); snap.CLJ != "" || snap.CLJC != "" {
		t.Errorf("roles not cleared after drop: %+v", snap)
	}
}

func TestConnect_ReconnectReplacesClient(t *testing.T) {
	srv := newFakeServer(t)
	workspace, projectDir := newProject(t)
	writePortFile(t, projectDir, srv.port())

	cfg := testConfig(workspace, projectDir)
	cfg.Autoconnect = true
	cfg.ReplType = config.ReplTypeNone

	o := newOrchestrator(t, cfg, &fakePrompter{}, nil)
	if err := o.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	first := o.State().Snapshot().CLJ

	var disconnects int
	o.State().Subscribe(func(e Event) {
		if e == EventDisconnected {
			disconnects++
		}
	})

	// Second connect tears the first client down deliberately; the
	// old client's close handler must not clear the new state.
	if err := o.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap := o.State().Snapshot()
	if !snap.Connected {
		t.Fatal("not connected after reconnect")
	}
	if snap.CLJ == first {
		t.Error("expected a fresh session after reconnect")
	}
	if disconnects != 0 {
		t.Errorf("disconnect events = %d, want 0 for a deliberate teardown", disconnects)
	}
}

func TestRecreateCLJSSession(t *testing.T) {
	srv := newFakeServer(t)
	srv.onEval = func(code, session string) []srvResponse {
		return []srvResponse{{Out: "app: READY\n"}, {Value: "nil"}}
	}
	workspace, projectDir := newProject(t)
	writePortFile(t, projectDir, srv.port())

	cfg := testConfig(workspace, projectDir)
	cfg.Autoconnect = true
	cfg.ReplType = "my-app"
	custom := &config.CustomTemplate{
		Name: "my-app", StartCode: "(app/start)", ConnectedPattern: "READY",
	}

	o := newOrchestrator(t, cfg, &fakePrompter{}, custom)
	if err := o.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	first := o.State().Snapshot().CLJS
	if first == "" {
		t.Fatal("cljs not bound")
	}

	if err := o.RecreateCLJSSession(context.Background()); err != nil {
		t.Fatal(err)
	}
	second := o.State().Snapshot().CLJS
	if second == "" || second == first {
		t.Errorf("cljs = %q, want a fresh clone (was %q)", second, first)
	}
}

func TestRecreateCLJSSession_NotConnected(t *testing.T) {
	workspace, projectDir := newProject(t)
	cfg := testConfig(workspace, projectDir)
	o := newOrchestrator(t, cfg, &fakePrompter{}, nil)

	err := o.RecreateCLJSSession(context.Background())
	if !jkerr.Is(err, jkerr.ErrNotConnected) {
		t.Errorf("err = %v, want ErrNotConnected", err)
	}
}

func TestConnect_WaitForPortFile(t *testing.T) {
	srv := newFakeServer(t)
	workspace, projectDir := newProject(t)

	cfg := testConfig(workspace, projectDir)
	cfg.Wait = true
	cfg.ReplType = config.ReplTypeNone

	// The port file appears only after the first poll misses it.
	done := make(chan error, 1)
	o := newOrchestrator(t, cfg, &fakePrompter{}, nil)
	go func() { done <- o.Connect(context.Background()) }()

	writePortFile(t, projectDir, srv.port())
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if !o.State().Snapshot().Connected {
		t.Error("not connected after wait")
	}
}

func TestResolveProject_ExplicitDirSkipsResolution(t *testing.T) {
	srv := newFakeServer(t)
	dir := t.TempDir() // no marker file at all
	if err := os.WriteFile(filepath.Join(dir, ".nrepl-port"), []byte("0"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		Host:       "127.0.0.1",
		Port:       srv.port(),
		ProjectDir: dir,
		ReplType:   config.ReplTypeNone,
		Timeout:    config.DefaultConnTimeout,
	}
	o := newOrchestrator(t, cfg, &fakePrompter{}, nil)
	if err := o.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := o.State().Snapshot().ProjectDir; got != dir {
		t.Errorf("project dir = %q, want %q", got, dir)
	}
}
