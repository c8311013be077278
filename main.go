// jackin - an nREPL session and connection manager for Clojure and
// ClojureScript development.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"jackin/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "jackin: %v\n", err)
		os.Exit(1)
	}
}
