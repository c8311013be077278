package util

import (
	"strings"
	"testing"
)

func TestStripANSI(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"\x1b[32m[Figwheel] Compiling\x1b[0m", "[Figwheel] Compiling"},
		{"\x1b[1;31merror\x1b[0m in build", "error in build"},
		{"\x1b[2J\x1b[Hshadow-cljs - ready", "shadow-cljs - ready"},
		{"partial \x1b[0", "partial \x1b[0"}, // incomplete sequence passes through
		{"", ""},
	}

	for _, tt := range tests {
		if got := StripANSI(tt.in); got != tt.want {
			t.Errorf("StripANSI(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStripANSI_NoEscapeBytesRemain(t *testing.T) {
	in := "\x1b[35mPrompt will show\x1b[0m when Figwheel connects to your application\n"
	got := StripANSI(in)
	if strings.ContainsRune(got, '\x1b') {
		t.Errorf("escape byte survived stripping: %q", got)
	}
	if !strings.Contains(got, "Prompt will show") {
		t.Errorf("text mangled: %q", got)
	}
}
