package util

import "regexp"

// ansiRe matches CSI sequences (colours, cursor movement) and the
// two-byte escapes some REPL tooling emits.  Build-tool output is
// frequently colourised; everything downstream of the transport
// (pattern matching, line accumulation, user echo) works on clean text.
var ansiRe = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]|\x1b[@-_]`)

// StripANSI removes ANSI escape sequences from s.
func StripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}
