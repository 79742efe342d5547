// Package store owns the scratch directory holding per-page capture
// artifacts for the duration of one run.
package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store names artifacts deterministically by sequence index so merge order
// can always be recovered from the original job order, never from directory
// listing order.
type Store struct {
	dir     string
	created bool
}

// New returns a Store rooted at dir. Nothing is created until Ensure.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the scratch directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Ensure creates the scratch directory if it does not exist yet.
func (s *Store) Ensure() error {
	if s.created {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir %s: %w", s.dir, err)
	}
	s.created = true
	return nil
}

// PagePath returns the artifact path for a job's sequence index.
func (s *Store) PagePath(index int) string {
	return filepath.Join(s.dir, fmt.Sprintf("page_%04d.pdf", index))
}

// Remove deletes the scratch directory and everything in it. The store never
// calls this on its own; disposal is an explicit downstream decision.
func (s *Store) Remove() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("remove artifact dir %s: %w", s.dir, err)
	}
	s.created = false
	return nil
}
