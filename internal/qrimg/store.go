package qrimg

import (
	"os"
	"path/filepath"
	"strings"
)

// Ext is the file extension every stored artifact carries.
const Ext = ".svg"

// Store persists rendered artifacts as <id>.svg files under a single
// directory. An artifact is written before its database record is created,
// so a record never exists without its artifact; orphaned files from a
// later record-write failure are tolerated and cleaned up best-effort.
type Store struct {
	dir string
}

// NewStore ensures dir exists and returns a store rooted at it.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory artifacts are stored under.
func (s *Store) Dir() string { return s.dir }

// Write persists the artifact for id, replacing any previous one.
func (s *Store) Write(id string, data []byte) error {
	return os.WriteFile(s.path(id+Ext), data, 0o644)
}

// Read returns the artifact bytes for name, appending the extension when the
// caller omitted it. A missing artifact surfaces as os.ErrNotExist.
func (s *Store) Read(name string) ([]byte, error) {
	if !strings.HasSuffix(name, Ext) {
		name += Ext
	}
	return os.ReadFile(s.path(name))
}

// Remove deletes the artifact for id. Used for best-effort cleanup when the
// database write fails after the artifact was persisted; a missing file is
// not an error.
func (s *Store) Remove(id string) error {
	err := os.Remove(s.path(id + Ext))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// path resolves a file name inside the store directory, stripping any path
// components so requests cannot escape it.
func (s *Store) path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}
