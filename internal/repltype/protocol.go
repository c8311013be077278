package repltype

import (
	"context"
	"regexp"
	"strings"

	"jackin/internal/nrepl"
	"jackin/util"
)

// OutputProcessor examines each stripped output chunk during a
// bootstrap evaluation.  Processors are side-effecting: echoing a
// matched line to the sink, emitting a one-time notice, opening a URL.
type OutputProcessor func(chunk string)

// SuccessPredicate classifies a bootstrap outcome from the final
// printed value and the accumulated stdout/stderr chunks.
type SuccessPredicate func(value string, stdout, stderr []string) bool

// EvalConnect is the generic "run bootstrap code, classify the outcome
// from output" primitive every strategy builds on.  It evaluates code
// on sess, feeding each ANSI-stripped chunk to the accumulators and to
// every processor, then hands the final value and the accumulated
// chunks to pred.
//
// An evaluation error is logged and treated as an empty value — the
// predicate still runs against whatever output was captured, because
// some strategies legitimately succeed from stderr alone ("address
// already in use" means the target is already up).  No retry happens
// here; the caller decides whether the user gets another go.
func EvalConnect(ctx context.Context, env *Env, sess Evaluator, code, name string,
	pred SuccessPredicate, processors []OutputProcessor) bool {

	var stdout, stderr []string

	feed := func(chunk string) {
		for _, p := range processors {
			p(chunk)
		}
	}

	// Sessions strip ANSI before delivery already; stripping again
	// here keeps the guarantee independent of the Evaluator.
	value, err := sess.Eval(ctx, code, nrepl.Handlers{
		OnStdout: func(text string) {
			text = util.StripANSI(text)
			stdout = append(stdout, text)
			feed(text)
		},
		OnStderr: func(text string) {
			text = util.StripANSI(text)
			stderr = append(stderr, text)
			feed(text)
		},
	})
	if err != nil {
		env.Logger.Verbose("%s: bootstrap evaluation failed: %v", name, err)
		value = ""
	}

	ok := pred(value, stdout, stderr)
	env.Logger.Debug("%s: predicate=%v (value=%q, %d out chunks, %d err chunks)",
		name, ok, value, len(stdout), len(stderr))
	return ok
}

// ── predicate helpers ────────────────────────────────────────────────

func anyContains(chunks []string, marker string) bool {
	for _, c := range chunks {
		if strings.Contains(c, marker) {
			return true
		}
	}
	return false
}

func anyMatches(chunks []string, re *regexp.Regexp) bool {
	for _, c := range chunks {
		if re.MatchString(c) {
			return true
		}
	}
	return false
}
