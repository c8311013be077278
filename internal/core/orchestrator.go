package core

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"jackin/config"
	jkerr "jackin/internal/errors"
	"jackin/internal/metrics"
	"jackin/internal/nrepl"
	"jackin/internal/project"
	"jackin/internal/repltype"
	"jackin/internal/retry"
	"jackin/internal/transport"
	"jackin/internal/ui"
	"jackin/util"
)

// Orchestrator runs the connect state machine end to end.  At most one
// physical client is live at a time; starting a new attempt tears the
// previous one down deliberately so its close handler stays quiet.
type Orchestrator struct {
	cfg      *config.Config
	logger   *util.Logger
	prompter ui.Prompter
	registry *repltype.Registry
	metrics  *metrics.Collector
	state    *ConnState

	// Out receives user-facing lines from bootstrap output
	// processors; defaults to the logger.
	Out util.Sink

	// OpenURL opens the figwheel server URL when --open-browser is
	// set; nil means log only.
	OpenURL func(url string)

	mu       sync.Mutex
	client   *nrepl.Client
	dialer   transport.Dialer
	settings *project.Settings
}

// New builds an Orchestrator.  The collector may be nil.
func New(cfg *config.Config, logger *util.Logger, prompter ui.Prompter,
	registry *repltype.Registry, collector *metrics.Collector) *Orchestrator {

	return &Orchestrator{
		cfg:      cfg,
		logger:   logger,
		prompter: prompter,
		registry: registry,
		metrics:  collector,
		state:    NewConnState(),
	}
}

// State returns the shared connection state for readers and
// subscribers.
func (o *Orchestrator) State() *ConnState { return o.state }

// Connect drives the full state machine: resolve the project root,
// pick a ClojureScript REPL type, find an address, connect, bind the
// Clojure session, and optionally bootstrap ClojureScript.
//
// A ClojureScript bootstrap failure is not an error here: the Clojure
// session stays up and Connect returns nil.  Failures before or during
// the physical connect reset the connecting flag and leave any
// existing connection untouched.
func (o *Orchestrator) Connect(ctx context.Context) error {
	o.state.setConnecting(true)

	root, err := o.resolveProject()
	if err != nil {
		o.state.setConnecting(false)
		return err
	}
	o.state.setProjectDir(root)

	o.mu.Lock()
	o.settings = project.OpenSettings(root)
	settings := o.settings
	o.mu.Unlock()

	replType, err := o.selectReplType(settings)
	if err != nil {
		o.state.setConnecting(false)
		return err
	}
	o.state.setReplType(replType)

	host, port, err := o.resolveAddress(root, replType)
	if err != nil {
		o.state.setConnecting(false)
		return err
	}

	// Tear down any previous connection before dialing the new one.
	// Deliberate, so no "unexpectedly disconnected" notice fires.
	o.closeClient(nrepl.CloseDeliberate)

	client, err := o.dial(ctx, root, replType, host, port)
	if err != nil {
		o.state.setConnecting(false)
		return err
	}

	client.OnClose(func(reason nrepl.CloseReason) {
		if reason == nrepl.CloseUnexpected {
			o.logger.Warn("nrepl: connection to %s closed unexpectedly", client.Addr())
			o.dropClient(client)
		} else {
			o.logger.Verbose("nrepl: connection to %s closed", client.Addr())
		}
	})

	o.mu.Lock()
	o.client = client
	o.mu.Unlock()

	o.state.bindClojure(client.DefaultSession())
	o.logger.Info("connected to nREPL at %s (session %s)",
		client.Addr(), client.DefaultSession().ID())

	if replType != config.ReplTypeNone {
		if err := o.bootstrapCLJS(ctx, replType); err != nil {
			o.logger.Warn("ClojureScript REPL bring-up failed: %v "+
				"(the Clojure session remains usable)", err)
		}
	}
	return nil
}

// Disconnect closes the connection and clears every role.  Idempotent.
func (o *Orchestrator) Disconnect() {
	o.closeClient(nrepl.CloseDeliberate)
	if o.state.disconnected() {
		o.logger.Info("disconnected")
	}
	if o.metrics != nil {
		o.logger.Verbose("metrics: %s", o.metrics.JSON())
	}
}

// RecreateCLJSSession repeats only the ClojureScript bootstrap phase,
// reusing the previously selected REPL type.  The physical connection
// and project resolution are untouched.
func (o *Orchestrator) RecreateCLJSSession(ctx context.Context) error {
	o.mu.Lock()
	client := o.client
	o.mu.Unlock()

	snap := o.state.Snapshot()
	if client == nil || !snap.Connected {
		return jkerr.ErrNotConnected
	}
	if snap.ReplType == "" || snap.ReplType == config.ReplTypeNone {
		return fmt.Errorf("no ClojureScript REPL type selected: %w", jkerr.ErrBootstrapFailed)
	}

	o.state.clearCLJS()
	return o.bootstrapCLJS(ctx, snap.ReplType)
}

// ── state machine phases ─────────────────────────────────────────────

// resolveProject picks the project root: an explicit --project-dir
// wins; otherwise the walk starts at the active document's directory
// and is bounded by the workspace root.
func (o *Orchestrator) resolveProject() (string, error) {
	if o.cfg.ProjectDir != "" {
		return o.cfg.ProjectDir, nil
	}
	if o.cfg.DocumentPath == "" {
		return "", jkerr.ErrNoOpenDocument
	}
	root := project.FindRoot(filepath.Dir(o.cfg.DocumentPath), o.cfg.WorkspaceRoot)
	o.logger.Verbose("project root: %s", root)
	return root, nil
}

// selectReplType returns the ClojureScript REPL type for this attempt:
// the configured one if given, otherwise an interactive pick over the
// registry's names plus the "none" sentinel, pre-filled from the
// project settings.
func (o *Orchestrator) selectReplType(settings *project.Settings) (string, error) {
	if t := o.cfg.ReplType; t != "" {
		if t != config.ReplTypeNone && o.registry.Lookup(t) == nil {
			return "", fmt.Errorf("unknown REPL type %q (have %v)", t, o.registry.Names())
		}
		return t, nil
	}

	options := append(o.registry.Names(), config.ReplTypeNone)
	prefill := settings.GetString(project.SettingReplType)

	choice, ok, err := o.prompter.PickOne("ClojureScript REPL type", options, prefill)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", jkerr.ErrPromptDismissed
	}
	if err := settings.Set(project.SettingReplType, choice); err != nil {
		o.logger.Debug("persisting REPL type: %v", err)
	}
	return choice, nil
}

// resolveAddress determines host and port.  An explicit --port wins.
// Otherwise the type-specific port file is consulted: autoconnect
// takes it directly, the manual path pre-fills a host:port prompt.
// With --wait a missing port file is not fatal; port 0 is returned and
// the dial loop polls for it.
func (o *Orchestrator) resolveAddress(root, replType string) (string, int, error) {
	if o.cfg.Port > 0 {
		return o.cfg.Host, o.cfg.Port, nil
	}

	portFile := project.PortFilePath(root, replType)
	port, found := project.ReadPort(portFile)

	if found {
		o.logger.Verbose("port file %s: %d", portFile, port)
		if o.cfg.Autoconnect {
			return o.cfg.Host, port, nil
		}
	} else if o.cfg.Autoconnect || o.cfg.Wait {
		if o.cfg.Wait {
			// The dial loop re-reads the port file per attempt.
			return o.cfg.Host, 0, nil
		}
		return "", 0, fmt.Errorf("no port file at %s: %w", portFile, jkerr.ErrInvalidAddress)
	}

	prefill := ""
	if found {
		prefill = util.FormatAddr(o.cfg.Host, port)
	}
	answer, ok, err := o.prompter.Input("nREPL address (host:port)", prefill)
	if err != nil {
		return "", 0, err
	}
	if !ok {
		return "", 0, jkerr.ErrPromptDismissed
	}

	host, p, err := util.ParseHostPort(answer)
	if err != nil {
		return "", 0, fmt.Errorf("%q: %w", answer, jkerr.ErrInvalidAddress)
	}
	return host, p, nil
}

// dial opens the physical connection, with --wait retrying (and
// re-reading the port file when the port is still unknown) until the
// server accepts.
func (o *Orchestrator) dial(ctx context.Context, root, replType, host string, port int) (*nrepl.Client, error) {
	dialer := buildDialer(o.cfg, o.logger)
	o.mu.Lock()
	o.dialer = dialer
	o.mu.Unlock()

	if !o.cfg.Wait {
		return nrepl.Connect(ctx, dialer, host, port, o.logger, o.metrics)
	}

	backoff := &retry.Backoff{
		InitialDelay: config.DefaultWaitBackoff,
		MaxDelay:     config.DefaultWaitMaxBackoff,
		Multiplier:   2.0,
		MaxAttempts:  0, // until the context is cancelled
		Jitter:       true,
	}
	portFile := project.PortFilePath(root, replType)

	var client *nrepl.Client
	err := backoff.Do(ctx, func(attempt int) error {
		p := port
		if p == 0 {
			var found bool
			if p, found = project.ReadPort(portFile); !found {
				o.logger.Verbose("waiting for port file %s (attempt %d)", portFile, attempt)
				return fmt.Errorf("port file %s not ready", portFile)
			}
		}
		c, err := nrepl.Connect(ctx, dialer, host, p, o.logger, o.metrics)
		if err != nil {
			o.logger.Verbose("waiting for nREPL at %s:%d: %v", host, p, err)
			return err
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// bootstrapCLJS clones the Clojure session and hands the clone to the
// selected strategy.  Any failure clears the persisted build selection
// and leaves the Clojure session untouched.
func (o *Orchestrator) bootstrapCLJS(ctx context.Context, name string) error {
	strategy := o.registry.Lookup(name)
	if strategy == nil {
		return fmt.Errorf("unknown REPL type %q", name)
	}

	o.mu.Lock()
	client := o.client
	settings := o.settings
	o.mu.Unlock()

	sess, err := client.Clone(ctx)
	if err != nil {
		o.metrics.BootstrapFinished(false)
		return err
	}

	env := &repltype.Env{
		Logger:      o.logger,
		Out:         o.Out,
		Prompter:    o.prompter,
		Settings:    settings,
		ProjectDir:  o.state.Snapshot().ProjectDir,
		OpenBrowser: o.cfg.OpenBrowser,
		OpenURL:     o.OpenURL,
	}

	if strategy.HasStart {
		ok, err := strategy.Start(ctx, env, sess)
		if err != nil {
			return o.bootstrapFailed(settings, err)
		}
		if !ok {
			return o.bootstrapFailed(settings,
				fmt.Errorf("%s start: %w", name, jkerr.ErrBootstrapFailed))
		}
	}

	ok, err := strategy.Connect(ctx, env, sess)
	if err != nil {
		return o.bootstrapFailed(settings, err)
	}
	if !ok {
		return o.bootstrapFailed(settings,
			fmt.Errorf("%s connect: %w", name, jkerr.ErrBootstrapFailed))
	}

	o.state.bindCLJS(sess)
	o.state.setBuild(settings.GetString(project.SettingBuild))
	o.metrics.BootstrapFinished(true)
	o.logger.Info("ClojureScript REPL ready (%s, session %s)", name, sess.ID())
	return nil
}

func (o *Orchestrator) bootstrapFailed(settings *project.Settings, err error) error {
	if delErr := settings.Delete(project.SettingBuild); delErr != nil {
		o.logger.Debug("clearing build selection: %v", delErr)
	}
	o.metrics.BootstrapFinished(false)
	return err
}

// closeClient tears down the current client and dialer, if any.
func (o *Orchestrator) closeClient(reason nrepl.CloseReason) {
	o.mu.Lock()
	client, dialer := o.client, o.dialer
	o.client, o.dialer = nil, nil
	o.mu.Unlock()

	if client != nil {
		client.Close(reason)
	}
	if dialer != nil {
		dialer.Close() //nolint:errcheck
	}
}

// dropClient reacts to an unexpected close: clear the state only if
// the dropped client is still the current one (a reconnect may have
// replaced it already).
func (o *Orchestrator) dropClient(dropped *nrepl.Client) {
	o.mu.Lock()
	current := o.client == dropped
	if current {
		o.client = nil
	}
	o.mu.Unlock()

	if current {
		o.state.disconnected()
	}
}
