package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSettingsDir returns ~/.datahub.
func DefaultSettingsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".datahub"), nil
}

// Settings is the JSON file holding connector credentials and user
// preferences, addressed with dot notation ("peloton.username").
type Settings struct {
	path string
	data map[string]any
}

// OpenSettings loads the settings file at path, or an empty settings object
// when the file does not exist yet.
func OpenSettings(path string) (*Settings, error) {
	s := &Settings{path: path, data: map[string]any{}}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return s, nil
}

// OpenDefaultSettings loads ~/.datahub/config.json.
func OpenDefaultSettings() (*Settings, error) {
	dir, err := DefaultSettingsDir()
	if err != nil {
		return nil, err
	}
	return OpenSettings(filepath.Join(dir, "config.json"))
}

// Get looks up a dotted key and reports whether it was present.
func (s *Settings) Get(key string) (any, bool) {
	var current any = s.data
	for _, part := range strings.Split(key, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// GetString looks up a dotted key and returns its string value, or "" when
// absent or not a string.
func (s *Settings) GetString(key string) string {
	value, ok := s.Get(key)
	if !ok {
		return ""
	}
	str, _ := value.(string)
	return str
}

// Set stores a value under a dotted key, creating intermediate objects, and
// persists the file.
func (s *Settings) Set(key string, value any) error {
	parts := strings.Split(key, ".")
	node := s.data
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[part] = child
		}
		node = child
	}
	node[parts[len(parts)-1]] = value
	return s.save()
}

func (s *Settings) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o600)
}
