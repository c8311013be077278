// Package config defines the runtime configuration for jackin and the
// declarative template for user-defined REPL types.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"
)

// Config holds every tuneable for one jackin invocation.
type Config struct {
	// ── Connection ───────────────────────────────────────────────────
	Host        string
	Port        int    // explicit nREPL port (0 = discover/prompt)
	ReplType    string // ClojureScript REPL type name ("" = ask, "none" = skip)
	Autoconnect bool   // take the port file without confirmation
	Wait        bool   // poll until the server is reachable
	Timeout     time.Duration

	// ── Project ──────────────────────────────────────────────────────
	DocumentPath  string // active document to resolve the project from
	WorkspaceRoot string // upward bound for root resolution
	ProjectDir    string // explicit project root (skips resolution)

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec    string // raw user@host[:port] from -T
	TunnelEnabled bool
	TunnelUser    string
	TunnelHost    string
	TunnelPort    int
	SSHKeyPath    string
	SSHPassword   bool // true → prompt interactively
	UseSSHAgent   bool
	StrictHostKey bool
	KnownHosts    string

	// ── ClojureScript ────────────────────────────────────────────────
	OpenBrowser        bool   // open the figwheel server URL when seen
	CustomTemplatePath string // JSON file defining a custom REPL type

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
}

// ── Custom REPL template ─────────────────────────────────────────────

// CustomTemplate declaratively describes a user-defined REPL type:
// code to evaluate plus regexes that classify its output.  Consumed
// as-is; validation is presence checks only.
type CustomTemplate struct {
	Name             string `json:"name"`
	StartCode        string `json:"startCode"`
	TellUserPattern  string `json:"tellUserPattern,omitempty"`
	EchoPattern      string `json:"echoPattern,omitempty"`
	ConnectedPattern string `json:"connectedPattern"`
}

// LoadCustomTemplate reads and checks a template file.
func LoadCustomTemplate(path string) (*CustomTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading custom REPL template: %w", err)
	}
	var tpl CustomTemplate
	if err := json.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("parsing custom REPL template: %w", err)
	}
	if tpl.Name == "" {
		return nil, fmt.Errorf("custom REPL template: name is required")
	}
	if tpl.StartCode == "" {
		return nil, fmt.Errorf("custom REPL template: startCode is required")
	}
	if tpl.ConnectedPattern == "" {
		return nil, fmt.Errorf("custom REPL template: connectedPattern is required")
	}
	for _, p := range []string{tpl.TellUserPattern, tpl.EchoPattern, tpl.ConnectedPattern} {
		if p == "" {
			continue
		}
		if _, err := regexp.Compile(p); err != nil {
			return nil, fmt.Errorf("custom REPL template: bad pattern %q: %w", p, err)
		}
	}
	return &tpl, nil
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "dev@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	if host == "" {
		return "", "", 0, fmt.Errorf("tunnel host is required")
	}
	return user, host, port, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Port != 0 && (c.Port < 1 || c.Port > 65535) {
		return fmt.Errorf("port %d out of range 1-65535", c.Port)
	}
	if c.TunnelEnabled && c.TunnelHost == "" {
		return fmt.Errorf("tunnel host is required")
	}
	if c.Autoconnect && c.Port != 0 {
		return fmt.Errorf("--autoconnect discovers the port itself; drop the explicit port")
	}
	if c.ProjectDir != "" {
		if fi, err := os.Stat(c.ProjectDir); err != nil || !fi.IsDir() {
			return fmt.Errorf("project dir %q is not a directory", c.ProjectDir)
		}
	}
	return nil
}
