// Package statestore persists the string-keyed durable state shared across
// process invocations, holding the per-handler update-check timestamps. The
// file may carry other subsystems' keys; writes touch one key and leave the
// rest byte-for-byte equivalent.
package statestore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/inlay-dev/inlay-core/handler/ports"
)

// FileStore implements ports.StateStore over one YAML file holding a flat
// string map. Every Set is a full read-modify-write; not safe for
// concurrent use.
type FileStore struct {
	path string
}

var _ ports.StateStore = (*FileStore)(nil)

// NewFileStore creates a store backed by the given file. The file appears
// on first Set; a missing file reads as empty.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, ".inlay", "state.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Get returns the value stored under key, reporting presence separately so
// an empty value is distinguishable from an absent key.
func (s *FileStore) Get(key string) (string, bool, error) {
	state, err := s.load()
	if err != nil {
		return "", false, err
	}
	value, ok := state[key]
	return value, ok, nil
}

// Set stores value under key, preserving every other key in the file.
func (s *FileStore) Set(key, value string) error {
	state, err := s.load()
	if err != nil {
		return err
	}
	state[key] = value
	return s.save(state)
}

func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state file %s: %w", s.path, err)
	}

	state := map[string]string{}
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing state file %s: %w", s.path, err)
	}
	return state, nil
}

func (s *FileStore) save(state map[string]string) error {
	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("publishing state file: %w", err)
	}
	return nil
}
