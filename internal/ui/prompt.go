// Package ui defines the prompting surface the connect flow depends
// on.  The orchestrator and REPL-type strategies only ever talk to the
// Prompter interface; the terminal implementation here is what the CLI
// wires in, and tests substitute scripted fakes.
package ui

// Prompter asks the user for input at the suspend points of a connect
// attempt.  Every method reports ok=false when the user dismisses the
// prompt, which cancels the in-flight attempt (not the process).
type Prompter interface {
	// Input asks for one line of text, pre-filled with prefill.
	Input(prompt, prefill string) (value string, ok bool, err error)

	// PickOne asks the user to choose exactly one option.
	PickOne(prompt string, options []string, prefill string) (choice string, ok bool, err error)

	// PickMany asks the user to choose one or more options.
	PickMany(prompt string, options []string, prefill []string) (choices []string, ok bool, err error)
}
