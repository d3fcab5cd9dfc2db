package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Store holds the live configuration and hands out immutable assistant
// snapshots. Sessions call [Store.Snapshot] exactly once per interaction;
// the admin surface calls [Store.Update], which validates, swaps the record
// atomically, and persists the full configuration back to disk.
//
// Readers never block writers and vice versa. An in-flight interaction keeps
// the snapshot it started with; updates become visible to the next one.
type Store struct {
	path string
	cur  atomic.Pointer[Assistant]

	// mu serialises Update calls so the read-modify-write of the on-disk
	// file cannot interleave.
	mu  sync.Mutex
	cfg *Config
}

// NewStore creates a Store around cfg. path is the file Update persists to;
// empty disables persistence (tests, ephemeral runs).
func NewStore(path string, cfg *Config) *Store {
	s := &Store{path: path, cfg: cfg}
	a := cfg.Assistant
	s.cur.Store(&a)
	return s
}

// Snapshot returns the current assistant record by value.
func (s *Store) Snapshot() Assistant {
	return *s.cur.Load()
}

// Update validates a, makes it the current record, and persists the updated
// configuration. On validation or persistence failure the previous record
// stays in effect.
func (s *Store) Update(a Assistant) error {
	if err := ValidateAssistant(a); err != nil {
		return fmt.Errorf("config: invalid assistant record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.cfg.Assistant
	s.cfg.Assistant = a
	if err := s.save(); err != nil {
		s.cfg.Assistant = prev
		return err
	}
	s.cur.Store(&a)
	return nil
}

// save writes the full configuration to the store's path via a temp file
// rename so a crash mid-write cannot truncate the config.
func (s *Store) save() error {
	if s.path == "" {
		return nil
	}

	data, err := yaml.Marshal(s.cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("config: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("config: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("config: replace %s: %w", s.path, err)
	}
	return nil
}
