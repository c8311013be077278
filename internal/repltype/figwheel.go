package repltype

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	jkerr "jackin/internal/errors"
	"jackin/internal/project"
)

// Output markers shared by both figwheel flavours.
const (
	// figwheelReadyMarker appears on stdout once the figwheel server
	// is up and waiting for the application to connect.
	figwheelReadyMarker = "Prompt will show"

	// cljsQuitHint appears once a ClojureScript REPL is attached.
	cljsQuitHint = "To quit, type: :cljs/quit"
)

// ── figwheel-main: multi-build tool with separate start/connect ──────

func figwheelMain() *Strategy {
	return &Strategy{
		Name:     "figwheel-main",
		HasStart: true,
		Start:    figwheelMainStart,
		Connect:  figwheelMainConnect,
	}
}

// figwheelMainBuilds lists the build names from <build>.cljs.edn files
// in the project root.
func figwheelMainBuilds(projectDir string) []string {
	entries, err := os.ReadDir(projectDir)
	if err != nil {
		return nil
	}
	var builds []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".cljs.edn") || strings.HasPrefix(name, ".") {
			continue
		}
		builds = append(builds, strings.TrimSuffix(name, ".cljs.edn"))
	}
	sort.Strings(builds)
	return builds
}

func figwheelMainStart(ctx context.Context, env *Env, sess Evaluator) (bool, error) {
	builds := figwheelMainBuilds(env.ProjectDir)

	var selected []string
	switch {
	case len(builds) == 1:
		b, ok, err := env.Prompter.PickOne("Start Figwheel Main build",
			builds, env.Settings.GetString(project.SettingBuild))
		if err != nil {
			return false, err
		}
		if !ok {
			return false, jkerr.ErrPromptDismissed
		}
		selected = []string{b}
	case len(builds) > 1:
		bs, ok, err := env.Prompter.PickMany("Start Figwheel Main builds",
			builds, env.Settings.GetStrings(project.SettingBuilds))
		if err != nil {
			return false, err
		}
		if !ok {
			return false, jkerr.ErrPromptDismissed
		}
		selected = bs
	default:
		b, ok, err := env.Prompter.Input("Figwheel Main build to start", "dev")
		if err != nil {
			return false, err
		}
		if !ok {
			return false, jkerr.ErrPromptDismissed
		}
		selected = []string{b}
	}

	if err := env.Settings.Set(project.SettingBuilds, selected); err != nil {
		env.Logger.Debug("figwheel-main: persisting build selection: %v", err)
	}

	env.Logger.Info("starting Figwheel Main builds %s (a cold compile can take a while)",
		strings.Join(selected, ", "))
	return EvalConnect(ctx, env, sess, figwheelMainStartCode(selected),
		"figwheel-main start", figwheelMainStarted, nil), nil
}

func figwheelMainStartCode(builds []string) string {
	kws := make([]string, len(builds))
	for i, b := range builds {
		kws[i] = ":" + b
	}
	return fmt.Sprintf("(do (require 'figwheel.main) (figwheel.main/start %s))",
		strings.Join(kws, " "))
}

// figwheelMainStarted accepts the stdout ready marker, or an "already
// running" complaint on stderr — the latter means the precondition is
// already satisfied, which is success, not failure.
func figwheelMainStarted(value string, stdout, stderr []string) bool {
	return anyContains(stdout, figwheelReadyMarker) ||
		anyContains(stderr, "already running")
}

func figwheelMainConnect(ctx context.Context, env *Env, sess Evaluator) (bool, error) {
	builds := figwheelMainBuilds(env.ProjectDir)
	prefill := env.Settings.GetString(project.SettingBuild)

	var build string
	if len(builds) > 0 {
		b, ok, err := env.Prompter.PickOne("Connect to Figwheel Main build", builds, prefill)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, jkerr.ErrPromptDismissed
		}
		build = b
	} else {
		b, ok, err := env.Prompter.Input("Figwheel Main build to connect to", prefill)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, jkerr.ErrPromptDismissed
		}
		build = b
	}

	if err := env.Settings.Set(project.SettingBuild, build); err != nil {
		env.Logger.Debug("figwheel-main: persisting build: %v", err)
	}

	code := fmt.Sprintf("(do (require 'figwheel.main.api) (figwheel.main.api/cljs-repl %q))", build)
	return EvalConnect(ctx, env, sess, code, "figwheel-main", figwheelMainConnected, nil), nil
}

func figwheelMainConnected(value string, stdout, stderr []string) bool {
	return anyContains(stdout, cljsQuitHint)
}

// ── lein-figwheel: legacy single-build tool, no start phase ──────────

func leinFigwheel() *Strategy {
	return &Strategy{
		Name:    "lein-figwheel",
		Connect: leinFigwheelConnect,
	}
}

// leinFigwheelConnectCode starts figwheel if it is not already running
// and drops into its ClojureScript REPL.
const leinFigwheelConnectCode = "(do (require 'figwheel-sidecar.repl-api)" +
	" (figwheel-sidecar.repl-api/start-figwheel!)" +
	" (figwheel-sidecar.repl-api/cljs-repl))"

var figwheelServerURLRe = regexp.MustCompile(`Figwheel: Starting server at (\S+)`)

func leinFigwheelConnect(ctx context.Context, env *Env, sess Evaluator) (bool, error) {
	var processors []OutputProcessor
	if env.OpenBrowser {
		opened := false
		processors = append(processors, func(chunk string) {
			if opened {
				return
			}
			if m := figwheelServerURLRe.FindStringSubmatch(chunk); m != nil {
				opened = true
				env.Logger.Info("opening %s", m[1])
				if env.OpenURL != nil {
					env.OpenURL(m[1])
				}
			}
		})
	}

	return EvalConnect(ctx, env, sess, leinFigwheelConnectCode,
		"lein-figwheel", leinFigwheelConnected, processors), nil
}

func leinFigwheelConnected(value string, stdout, stderr []string) bool {
	return anyContains(stdout, figwheelReadyMarker)
}
