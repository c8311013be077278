// Package cmd wires up the CLI flags and drives the connection
// orchestrator.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"jackin/config"
	"jackin/internal/core"
	"jackin/internal/metrics"
	"jackin/internal/repltype"
	"jackin/internal/ui"
	"jackin/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X jackin/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args, connects to the nREPL server, and runs the
// interactive evaluation loop until the context is cancelled or the
// connection drops.
func Execute(ctx context.Context, args []string) error {
	cfg := &config.Config{
		Host:    config.DefaultHost,
		Timeout: config.DefaultConnTimeout,
	}
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("jackin", flag.ContinueOnError)

	// ── connection ───────────────────────────────────────────────
	fs.StringVarP(&cfg.ReplType, "repl-type", "t", cfg.ReplType,
		"ClojureScript REPL type (figwheel-main, lein-figwheel, shadow-cljs, custom name, or none)")
	fs.BoolVarP(&cfg.Autoconnect, "autoconnect", "a", cfg.Autoconnect,
		"Take the discovered port file without confirmation")
	fs.BoolVar(&cfg.Wait, "wait", cfg.Wait,
		"Poll until the port file appears and the server accepts")

	var timeoutSec int
	fs.IntVarP(&timeoutSec, "timeout", "w", 0, "Connect timeout in seconds")

	// ── project ──────────────────────────────────────────────────
	fs.StringVarP(&cfg.ProjectDir, "project-dir", "d", cfg.ProjectDir,
		"Project root (skips marker-file resolution)")
	fs.StringVar(&cfg.DocumentPath, "document", cfg.DocumentPath,
		"Active document to resolve the project root from")
	fs.StringVar(&cfg.WorkspaceRoot, "workspace-root", cfg.WorkspaceRoot,
		"Upper bound for the project root walk")

	// ── ClojureScript bootstrap ──────────────────────────────────
	fs.StringVar(&cfg.CustomTemplatePath, "custom-repl", cfg.CustomTemplatePath,
		"JSON file defining a custom REPL type")
	fs.BoolVar(&cfg.OpenBrowser, "open-browser", cfg.OpenBrowser,
		"Open the figwheel server URL when it appears")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec,
		"Reach the server through SSH via [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHosts, "known-hosts", cfg.KnownHosts, "Custom known_hosts path")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")

	var evalCode string
	fs.StringVarP(&evalCode, "eval", "e", "", "Evaluate one form and exit")

	var dryRun bool
	fs.BoolVar(&dryRun, "dry-run", false, "Validate the configuration and exit")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Printf("jackin %s\n", version)
		return nil
	}

	if timeoutSec > 0 {
		cfg.Timeout = time.Duration(timeoutSec) * time.Second
	}

	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	// ── tunnel spec ──────────────────────────────────────────────
	if cfg.TunnelSpec != "" {
		user, host, port, err := config.ParseTunnelSpec(cfg.TunnelSpec)
		if err != nil {
			return fmt.Errorf("tunnel: %w", err)
		}
		cfg.TunnelEnabled = true
		cfg.TunnelUser = user
		cfg.TunnelHost = host
		cfg.TunnelPort = port
	}

	// The project root defaults to the working directory when nothing
	// narrower was given.
	if cfg.ProjectDir == "" && cfg.DocumentPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		cfg.ProjectDir = wd
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if dryRun {
		return nil
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)

	var custom *config.CustomTemplate
	if cfg.CustomTemplatePath != "" {
		c, err := config.LoadCustomTemplate(cfg.CustomTemplatePath)
		if err != nil {
			return err
		}
		custom = c
	}

	registry, err := repltype.NewRegistry(custom)
	if err != nil {
		return err
	}

	prompter := &ui.TerminalPrompter{}
	orch := core.New(cfg, logger, prompter, registry, metrics.New())

	if err := orch.Connect(ctx); err != nil {
		return err
	}
	defer orch.Disconnect()

	if evalCode != "" {
		return evalOnce(ctx, orch, evalCode)
	}
	return repl(ctx, orch, logger)
}

// ── helpers ──────────────────────────────────────────────────────────

// parsePositional accepts an optional "host port" or "port" pair for
// an explicit server address.
func parsePositional(cfg *config.Config, remaining []string) error {
	switch len(remaining) {
	case 0:
		return nil
	case 1:
		host, port, err := util.ParseHostPort(remaining[0])
		if err != nil {
			return fmt.Errorf("address %q: %w", remaining[0], err)
		}
		cfg.Host, cfg.Port = host, port
		return nil
	case 2:
		host, port, err := util.ParseHostPort(remaining[0] + ":" + remaining[1])
		if err != nil {
			return fmt.Errorf("address %q %q: %w", remaining[0], remaining[1], err)
		}
		cfg.Host, cfg.Port = host, port
		return nil
	default:
		return fmt.Errorf("too many arguments (use --help for usage)")
	}
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `jackin – nREPL session manager v%s

Connects to a Clojure nREPL server, brings up clj/cljs/cljc sessions,
and bootstraps ClojureScript REPLs (figwheel-main, lein-figwheel,
shadow-cljs, or a custom template).

Usage:
  jackin [options]                            Discover port file and connect
  jackin [options] <host> <port>              Connect to an explicit address
  jackin -a -t shadow-cljs                    Autoconnect with a cljs REPL
  jackin -T admin@bastion devbox 7888         Connect through an SSH tunnel

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
REPL commands:
  :clj / :cljs                                Toggle the shared session kind
  :quit                                       Disconnect and exit
`)
}
