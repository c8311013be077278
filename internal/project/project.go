// Package project handles everything rooted in the user's project
// directory: locating the project root from an open document, finding
// the nREPL server's port file, and persisting small per-project
// settings between connect attempts.
package project

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"jackin/util"
)

// MarkerFiles are the file names whose presence marks a directory as a
// candidate project root.
var MarkerFiles = []string{"project.clj", "shadow-cljs.edn", "deps.edn"}

// FindRoot walks upward from startDir, staying inside workspaceRoot,
// and returns the first directory containing a marker file.  With no
// marker anywhere it returns workspaceRoot unchanged.
func FindRoot(startDir, workspaceRoot string) string {
	dir := filepath.Clean(startDir)
	root := filepath.Clean(workspaceRoot)

	for within(dir, root) {
		if hasMarker(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return root
}

func hasMarker(dir string) bool {
	for _, name := range MarkerFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// within reports whether dir is root or a descendant of root.
func within(dir, root string) bool {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}

// ── port files ───────────────────────────────────────────────────────

// PortFilePath returns the project-relative port file location for the
// given ClojureScript REPL type.  shadow-cljs writes its own; every
// other tool relies on the conventional .nrepl-port.
func PortFilePath(projectRoot, replType string) string {
	if replType == "shadow-cljs" {
		return filepath.Join(projectRoot, ".shadow-cljs", "nrepl.port")
	}
	return filepath.Join(projectRoot, ".nrepl-port")
}

// ReadPort reads a port file: UTF-8 text containing only an integer.
// Missing, empty, or malformed files all return ok=false — the caller
// falls back to prompting with no pre-fill.
func ReadPort(path string) (port int, ok bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return 0, false
	}
	port, err = strconv.Atoi(text)
	if err != nil || !util.ValidPort(port) {
		return 0, false
	}
	return port, true
}
