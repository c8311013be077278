// Package repltype implements the pluggable strategies for starting
// and connecting ClojureScript REPLs over a live nREPL session.
//
// Each build tool signals readiness differently — figwheel prints a
// prompt hint, shadow-cljs answers with a structured value, a custom
// tool matches whatever the user's template says — so every strategy
// is a pair of routines over the same primitive: evaluate bootstrap
// code, watch the output, let a predicate decide.
package repltype

import (
	"context"

	"jackin/config"
	"jackin/internal/nrepl"
	"jackin/internal/project"
	"jackin/internal/ui"
	"jackin/util"
)

// Evaluator is the slice of an nREPL session the connect protocol
// needs.  *nrepl.Session satisfies it; tests substitute scripted
// evaluators.
type Evaluator interface {
	Eval(ctx context.Context, code string, h nrepl.Handlers) (string, error)
}

// Env carries the collaborators a strategy consumes during one connect
// attempt: prompting, logging, the project's settings store, and the
// directory build manifests are read from.
type Env struct {
	Logger     *util.Logger
	Out        util.Sink // user-facing output; defaults to Logger
	Prompter   ui.Prompter
	Settings   *project.Settings
	ProjectDir string

	// OpenBrowser enables the lein-figwheel server-URL processor;
	// OpenURL performs the actual open (nil = log only).
	OpenBrowser bool
	OpenURL     func(url string)
}

func (e *Env) sink() util.Sink {
	if e.Out != nil {
		return e.Out
	}
	return e.Logger
}

// Strategy bundles the routines for one REPL type.  Start is optional:
// HasStart is the explicit capability marker — a false HasStart means
// the tool is assumed to be running already (or needs no start phase)
// and the orchestrator goes straight to Connect.
//
// Both routines return (ok, err): ok=false means the routine ran but
// its success predicate rejected the outcome; err covers prompt
// dismissal and transport-level failures.
type Strategy struct {
	Name     string
	HasStart bool
	Start    func(ctx context.Context, env *Env, sess Evaluator) (bool, error)
	Connect  func(ctx context.Context, env *Env, sess Evaluator) (bool, error)
}

// Registry is the ordered set of strategies for one connect attempt:
// built-ins first, then at most one user-defined entry.  A custom
// strategy never shadows a built-in: a template reusing a built-in
// name is not appended, so Names() stays duplicate-free.
type Registry struct {
	strategies []*Strategy
}

// NewRegistry builds the registry.  custom may be nil.
func NewRegistry(custom *config.CustomTemplate) (*Registry, error) {
	r := &Registry{strategies: []*Strategy{
		figwheelMain(),
		leinFigwheel(),
		shadowCljs(),
	}}
	if custom != nil && r.Lookup(custom.Name) == nil {
		s, err := materializeCustom(custom)
		if err != nil {
			return nil, err
		}
		r.strategies = append(r.strategies, s)
	}
	return r, nil
}

// Names returns the strategy names in registry order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.strategies))
	for i, s := range r.strategies {
		names[i] = s.Name
	}
	return names
}

// Lookup returns the first strategy with the given name, or nil.
func (r *Registry) Lookup(name string) *Strategy {
	for _, s := range r.strategies {
		if s.Name == name {
			return s
		}
	}
	return nil
}
