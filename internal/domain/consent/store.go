// Package consent gates sending commands into terminals the host does not
// own. The "always allow" answer is persisted; everything else is asked
// per operation.
package consent

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-yaml"
)

// State is the persisted consent file
type State struct {
	AllowSendToForeignTerminals bool `yaml:"allowSendToForeignTerminals"`
}

// Store persists consent state as YAML
type Store struct {
	mu    sync.RWMutex
	path  string
	state State
}

// NewStore loads the state at path. A missing file is an empty state; an
// empty path keeps state in memory only.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read consent state: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.state); err != nil {
		return nil, fmt.Errorf("parse consent state %s: %w", path, err)
	}
	return s, nil
}

// AllowForeign reports the persisted flag
func (s *Store) AllowForeign() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.AllowSendToForeignTerminals
}

// SetAllowForeign updates and persists the flag
func (s *Store) SetAllowForeign(allow bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.AllowSendToForeignTerminals = allow
	return s.save()
}

func (s *Store) save() error {
	if s.path == "" {
		return nil
	}
	data, err := yaml.Marshal(s.state)
	if err != nil {
		return fmt.Errorf("encode consent state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write consent state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace consent state: %w", err)
	}
	return nil
}
