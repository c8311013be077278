package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Setting keys persisted between connect attempts.
const (
	SettingReplType = "replType" // selected ClojureScript REPL type
	SettingBuild    = "build"    // build attached to
	SettingBuilds   = "builds"   // builds started (multi-select)
)

const settingsFile = ".jackin-settings.json"

// Settings is a small named key→value store scoped to one project
// root, used to pre-fill prompts on later attempts and to drive the
// reattach path.  Writes go straight to disk; the file is tiny.
type Settings struct {
	path string

	mu     sync.Mutex
	values map[string]json.RawMessage
}

// OpenSettings loads (or initialises) the settings for a project root.
func OpenSettings(projectRoot string) *Settings {
	s := &Settings{
		path:   filepath.Join(projectRoot, settingsFile),
		values: map[string]json.RawMessage{},
	}
	if data, err := os.ReadFile(s.path); err == nil {
		// A corrupt file is treated as empty rather than fatal.
		_ = json.Unmarshal(data, &s.values)
	}
	return s
}

// GetString returns the stored string for key, or "".
func (s *Settings) GetString(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var v string
	if raw, found := s.values[key]; found {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

// GetStrings returns the stored string list for key, or nil.
func (s *Settings) GetStrings(key string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var v []string
	if raw, found := s.values[key]; found {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

// Set stores a value under key and flushes to disk.
func (s *Settings) Set(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = raw
	return s.flushLocked()
}

// Delete removes key and flushes to disk.
func (s *Settings) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.values[key]; !found {
		return nil
	}
	delete(s.values, key)
	return s.flushLocked()
}

func (s *Settings) flushLocked() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}
