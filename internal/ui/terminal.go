package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// TerminalPrompter implements Prompter over stdin/stderr.  Menus are
// numbered; an empty answer accepts the pre-fill, "q" dismisses.
// When stdin is not a terminal every prompt resolves to its pre-fill
// (dismissing when there is none), so scripted invocations never hang.
type TerminalPrompter struct {
	// In/Out default to os.Stdin/os.Stderr when nil.  Override in
	// tests for deterministic I/O.
	In  io.Reader
	Out io.Writer

	reader *bufio.Reader
}

func (p *TerminalPrompter) in() io.Reader {
	if p.In != nil {
		return p.In
	}
	return os.Stdin
}

func (p *TerminalPrompter) out() io.Writer {
	if p.Out != nil {
		return p.Out
	}
	return os.Stderr
}

// interactive reports whether prompting can actually reach a user.
func (p *TerminalPrompter) interactive() bool {
	if p.In != nil {
		return true // injected input is always "interactive"
	}
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func (p *TerminalPrompter) readLine() (string, error) {
	if p.reader == nil {
		p.reader = bufio.NewReader(p.in())
	}
	line, err := p.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Input asks for one line of text.
func (p *TerminalPrompter) Input(prompt, prefill string) (string, bool, error) {
	if !p.interactive() {
		if prefill != "" {
			return prefill, true, nil
		}
		return "", false, nil
	}

	if prefill != "" {
		fmt.Fprintf(p.out(), "%s [%s]: ", prompt, prefill)
	} else {
		fmt.Fprintf(p.out(), "%s: ", prompt)
	}

	line, err := p.readLine()
	if err != nil {
		return "", false, err
	}
	switch line {
	case "":
		if prefill != "" {
			return prefill, true, nil
		}
		return "", false, nil
	case "q":
		return "", false, nil
	}
	return line, true, nil
}

// PickOne presents a numbered menu and reads one selection.
func (p *TerminalPrompter) PickOne(prompt string, options []string, prefill string) (string, bool, error) {
	if len(options) == 0 {
		return "", false, nil
	}
	if !p.interactive() {
		if prefill != "" && contains(options, prefill) {
			return prefill, true, nil
		}
		return "", false, nil
	}

	p.printMenu(prompt, options, prefill)
	line, err := p.readLine()
	if err != nil {
		return "", false, err
	}
	switch line {
	case "":
		if prefill != "" && contains(options, prefill) {
			return prefill, true, nil
		}
		return "", false, nil
	case "q":
		return "", false, nil
	}

	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(options) {
		return options[n-1], true, nil
	}
	if contains(options, line) {
		return line, true, nil
	}
	return "", false, nil
}

// PickMany reads a comma-separated list of selections.
func (p *TerminalPrompter) PickMany(prompt string, options []string, prefill []string) ([]string, bool, error) {
	if len(options) == 0 {
		return nil, false, nil
	}
	if !p.interactive() {
		if valid := filterContained(options, prefill); len(valid) > 0 {
			return valid, true, nil
		}
		return nil, false, nil
	}

	p.printMenu(prompt+" (comma-separated)", options, strings.Join(prefill, ","))
	line, err := p.readLine()
	if err != nil {
		return nil, false, err
	}
	switch line {
	case "":
		if valid := filterContained(options, prefill); len(valid) > 0 {
			return valid, true, nil
		}
		return nil, false, nil
	case "q":
		return nil, false, nil
	}

	var picks []string
	for _, part := range strings.Split(line, ",") {
		part = strings.TrimSpace(part)
		if n, err := strconv.Atoi(part); err == nil && n >= 1 && n <= len(options) {
			picks = append(picks, options[n-1])
		} else if contains(options, part) {
			picks = append(picks, part)
		}
	}
	if len(picks) == 0 {
		return nil, false, nil
	}
	return picks, true, nil
}

func (p *TerminalPrompter) printMenu(prompt string, options []string, prefill string) {
	fmt.Fprintf(p.out(), "%s\n", prompt)
	for i, opt := range options {
		marker := " "
		if opt == prefill {
			marker = "*"
		}
		fmt.Fprintf(p.out(), " %s %d) %s\n", marker, i+1, opt)
	}
	fmt.Fprint(p.out(), "> ")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func filterContained(options, picks []string) []string {
	var out []string
	for _, p := range picks {
		if contains(options, p) {
			out = append(out, p)
		}
	}
	return out
}
