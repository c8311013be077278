package repltype

// Scripted stand-ins for the session and the prompting surface.

import (
	"context"
	"testing"

	"jackin/internal/nrepl"
	"jackin/internal/project"
	"jackin/util"
)

// fakeEval replays scripted output chunks and a final value.
type fakeEval struct {
	out    []string
	errOut []string
	value  string
	err    error

	gotCode []string
}

func (f *fakeEval) Eval(_ context.Context, code string, h nrepl.Handlers) (string, error) {
	f.gotCode = append(f.gotCode, code)
	for _, c := range f.out {
		if h.OnStdout != nil {
			h.OnStdout(c)
		}
	}
	for _, c := range f.errOut {
		if h.OnStderr != nil {
			h.OnStderr(c)
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.value, nil
}

// fakePrompter pops scripted answers; an exhausted queue dismisses.
type fakePrompter struct {
	inputs []string
	picks  []string
	multi  [][]string
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

func (p *fakePrompter) PickMany(_ string, options []string, _ []string) ([]string, bool, error) {
	if len(p.multi) == 0 {
		return nil, false, nil
	}
	v := p.multi[0]
	p.multi = p.multi[1:]
	return v, len(v) > 0, nil
}

// lineSink accumulates Line calls.
type lineSink struct{ lines []string }

func (s *lineSink) Line(text string) { s.lines = append(s.lines, text) }

func testEnv(t *testing.T, p *fakePrompter) (*Env, *lineSink) {
	t.Helper()
	dir := t.TempDir()
	sink := &lineSink{}
	return &Env{
		Logger:     util.NewLogger(0),
		Out:        sink,
		Prompter:   p,
		Settings:   project.OpenSettings(dir),
		ProjectDir: dir,
	}, sink
}
