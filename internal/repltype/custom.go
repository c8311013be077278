package repltype

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"jackin/config"
)

// materializeCustom turns a declarative template into a Strategy.
// Custom REPL types have no start phase: the template's start code
// runs during connect, and only the connected pattern is checked.
func materializeCustom(tpl *config.CustomTemplate) (*Strategy, error) {
	connectedRe, err := regexp.Compile(tpl.ConnectedPattern)
	if err != nil {
		return nil, fmt.Errorf("custom REPL %q: connected pattern: %w", tpl.Name, err)
	}

	var tellUserRe, echoRe *regexp.Regexp
	if tpl.TellUserPattern != "" {
		if tellUserRe, err = regexp.Compile(tpl.TellUserPattern); err != nil {
			return nil, fmt.Errorf("custom REPL %q: tell-user pattern: %w", tpl.Name, err)
		}
	}
	if tpl.EchoPattern != "" {
		if echoRe, err = regexp.Compile(tpl.EchoPattern); err != nil {
			return nil, fmt.Errorf("custom REPL %q: echo pattern: %w", tpl.Name, err)
		}
	}

	startCode := tpl.StartCode

	return &Strategy{
		Name: tpl.Name,
		Connect: func(ctx context.Context, env *Env, sess Evaluator) (bool, error) {
			var processors []OutputProcessor

			if tellUserRe != nil {
				told := false
				processors = append(processors, func(chunk string) {
					if !told && tellUserRe.MatchString(chunk) {
						told = true
						env.sink().Line("The REPL is waiting. Please start your application now.")
					}
				})
			}
			if echoRe != nil {
				processors = append(processors, func(chunk string) {
					if echoRe.MatchString(chunk) {
						env.sink().Line(strings.TrimRight(chunk, "\n"))
					}
				})
			}

			connected := func(value string, stdout, stderr []string) bool {
				return anyMatches(stdout, connectedRe)
			}
			return EvalConnect(ctx, env, sess, startCode, tpl.Name, connected, processors), nil
		},
	}, nil
}
