package errors

import (
	"errors"
	"testing"
)

func TestConnError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := WrapConn("dial", "localhost:57321", inner)

	if !Is(err, inner) {
		t.Error("ConnError should unwrap to the underlying error")
	}
	want := "dial localhost:57321: connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestProtocolError_Format(t *testing.T) {
	err := Protocol("clone", "abc-123", "missing new-session in response")
	want := "nrepl clone (session abc-123): missing new-session in response"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	err = Protocol("clone", "", "server closed mid-handshake")
	want = "nrepl clone: server closed mid-handshake"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestEvalError_CarriesStderr(t *testing.T) {
	var evalErr *EvalError
	err := error(&EvalError{
		Session: "s1",
		Ex:      "java.net.BindException",
		Stderr:  []string{"java.net.BindException: Address already in use"},
	})

	if !As(err, &evalErr) {
		t.Fatal("As should match *EvalError")
	}
	if len(evalErr.Stderr) != 1 {
		t.Errorf("stderr lines = %d, want 1", len(evalErr.Stderr))
	}
}

func TestSentinels_Distinct(t *testing.T) {
	sentinels := []error{
		ErrNoOpenDocument, ErrInvalidAddress, ErrConnectionClosed,
		ErrNotConnected, ErrBootstrapFailed, ErrPromptDismissed,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && Is(a, b) {
				t.Errorf("sentinel %d matches sentinel %d", i, j)
			}
		}
	}
}
