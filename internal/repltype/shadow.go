package repltype

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"olympos.io/encoding/edn"

	jkerr "jackin/internal/errors"
	"jackin/internal/project"
)

// shadowPseudoBuilds are always offered in addition to the manifest's
// builds: shadow-cljs can conjure these REPLs without a configured
// build.
var shadowPseudoBuilds = []string{"node-repl", "browser-repl"}

func shadowCljs() *Strategy {
	return &Strategy{
		Name:    "shadow-cljs",
		Connect: shadowConnect,
	}
}

// shadowBuilds parses the :builds map out of shadow-cljs.edn.
func shadowBuilds(projectDir string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(projectDir, "shadow-cljs.edn"))
	if err != nil {
		return nil, err
	}

	var manifest struct {
		Builds map[edn.Keyword]edn.RawMessage `edn:"builds"`
	}
	if err := edn.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing shadow-cljs.edn: %w", err)
	}

	names := make([]string, 0, len(manifest.Builds))
	for k := range manifest.Builds {
		names = append(names, string(k))
	}
	sort.Strings(names)
	return names, nil
}

func shadowConnect(ctx context.Context, env *Env, sess Evaluator) (bool, error) {
	builds, err := shadowBuilds(env.ProjectDir)
	if err != nil {
		env.Logger.Verbose("shadow-cljs: no build manifest: %v", err)
	}
	options := append(builds, shadowPseudoBuilds...)

	build, ok, err := env.Prompter.PickOne("Connect to shadow-cljs build",
		options, env.Settings.GetString(project.SettingBuild))
	if err != nil {
		return false, err
	}
	if !ok {
		return false, jkerr.ErrPromptDismissed
	}

	if err := env.Settings.Set(project.SettingBuild, build); err != nil {
		env.Logger.Debug("shadow-cljs: persisting build: %v", err)
	}

	return EvalConnect(ctx, env, sess, shadowSelectCode(build),
		"shadow-cljs", shadowConnected, nil), nil
}

func shadowSelectCode(build string) string {
	switch build {
	case "node-repl":
		return "(shadow.cljs.devtools.api/node-repl)"
	case "browser-repl":
		return "(shadow.cljs.devtools.api/browser-repl)"
	default:
		return fmt.Sprintf("(shadow.cljs.devtools.api/nrepl-select :%s)", build)
	}
}

// shadowConnected inspects the structured return value, not the output
// text: a successful select answers with the chosen build keyword.
func shadowConnected(value string, stdout, stderr []string) bool {
	return strings.Contains(value, ":selected")
}
