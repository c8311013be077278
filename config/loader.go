package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the JACKIN_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("JACKIN_HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt("JACKIN_PORT"); v > 0 {
		cfg.Port = v
	}
	if v := os.Getenv("JACKIN_REPL_TYPE"); v != "" {
		cfg.ReplType = v
	}
	if v := os.Getenv("JACKIN_PROJECT_DIR"); v != "" {
		cfg.ProjectDir = v
	}
	if v := os.Getenv("JACKIN_WORKSPACE_ROOT"); v != "" {
		cfg.WorkspaceRoot = v
	}
	if envBool("JACKIN_AUTOCONNECT") {
		cfg.Autoconnect = true
	}
	if envBool("JACKIN_WAIT") {
		cfg.Wait = true
	}
	if envBool("JACKIN_OPEN_BROWSER") {
		cfg.OpenBrowser = true
	}
	if v := os.Getenv("JACKIN_CUSTOM_REPL"); v != "" {
		cfg.CustomTemplatePath = v
	}

	// SSH tunnel
	if v := os.Getenv("JACKIN_TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := os.Getenv("JACKIN_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("JACKIN_SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("JACKIN_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("JACKIN_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("JACKIN_KNOWN_HOSTS"); v != "" {
		cfg.KnownHosts = v
	}

	// Output
	if v := envInt("JACKIN_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}
