// Package projects serves the project config store and the mock endpoints
// described by each project's config.
package projects

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidName = errors.New("invalid project name")
	ErrExists      = errors.New("project already exists")
	ErrNotExist    = errors.New("project does not exist")
)

// Store keeps one <name>.json file per project in Dir.
type Store struct {
	Dir string
}

// NewStore returns a Store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create projects dir: %w", err)
	}
	return &Store{Dir: dir}, nil
}

// ValidName reports whether name can be used as a file name inside Dir.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.ContainsRune(name, 0)
}

// Path returns the config file of the named project.
func (s *Store) Path(name string) string {
	return filepath.Join(s.Dir, name+".json")
}

func (s *Store) Exists(name string) bool {
	if !ValidName(name) {
		return false
	}
	_, err := os.Stat(s.Path(name))
	return err == nil
}

func (s *Store) Read(name string) ([]byte, error) {
	if !ValidName(name) {
		return nil, ErrInvalidName
	}
	b, err := os.ReadFile(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	return b, err
}

// Create writes a new project. It fails with ErrExists if the file is
// already there, even when two creates race.
func (s *Store) Create(name string, config []byte) error {
	if !ValidName(name) {
		return ErrInvalidName
	}
	f, err := os.OpenFile(s.Path(name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return ErrExists
	}
	if err != nil {
		return err
	}
	if _, err := f.Write(config); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Update replaces an existing project.
func (s *Store) Update(name string, config []byte) error {
	if !ValidName(name) {
		return ErrInvalidName
	}
	if !s.Exists(name) {
		return ErrNotExist
	}

	tmp, err := os.CreateTemp(s.Dir, "."+name+".*.tmp")
	if err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if _, err := tmp.Write(config); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.Path(name))
}
