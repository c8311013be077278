package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"jackin/internal/core"
	jkerr "jackin/internal/errors"
	"jackin/internal/nrepl"
	"jackin/util"
)

// stdHandlers streams evaluation output to the process streams.
func stdHandlers() nrepl.Handlers {
	return nrepl.Handlers{
		OnStdout: func(text string) { fmt.Fprint(os.Stdout, text) },
		OnStderr: func(text string) { fmt.Fprint(os.Stderr, text) },
	}
}

// evalOnce evaluates a single form on the shared session and prints
// the value.
func evalOnce(ctx context.Context, orch *core.Orchestrator, code string) error {
	sess := orch.State().CLJC()
	if sess == nil {
		return jkerr.ErrNotConnected
	}
	value, err := sess.Eval(ctx, code, stdHandlers())
	if err != nil {
		return err
	}
	if value != "" {
		fmt.Println(value)
	}
	return nil
}

// repl runs the interactive loop: lines from stdin are evaluated on
// whichever session the cljc role aliases.  ":clj" and ":cljs" toggle
// the alias, ":quit" exits.  The loop also ends when the context is
// cancelled or the connection drops.
func repl(ctx context.Context, orch *core.Orchestrator, logger *util.Logger) error {
	state := orch.State()

	dropped := make(chan struct{}, 1)
	state.Subscribe(func(e core.Event) {
		if e == core.EventDisconnected {
			select {
			case dropped <- struct{}{}:
			default:
			}
		}
	})

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	prompt := func() {
		kind := "clj"
		snap := state.Snapshot()
		if snap.Connected && snap.CLJC == snap.CLJS && snap.CLJS != "" {
			kind = "cljs"
		}
		fmt.Fprintf(os.Stderr, "%s=> ", kind)
	}

	prompt()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-dropped:
			return jkerr.ErrConnectionClosed
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch strings.TrimSpace(line) {
			case "":
			case ":quit":
				return nil
			case ":clj", ":cljs":
				wantCLJS := strings.TrimSpace(line) == ":cljs"
				snap := state.Snapshot()
				isCLJS := snap.CLJS != "" && snap.CLJC == snap.CLJS
				if wantCLJS != isCLJS && !state.ToggleSessionKind() {
					logger.Warn("no ClojureScript session to toggle to")
				}
			default:
				sess := state.CLJC()
				if sess == nil {
					return jkerr.ErrNotConnected
				}
				value, err := sess.Eval(ctx, line, stdHandlers())
				switch {
				case err != nil:
					logger.Error("%v", err)
				case value != "":
					fmt.Println(value)
				}
			}
			prompt()
		}
	}
}
