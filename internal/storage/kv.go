// Package storage provides the persistence collaborators: opaque JSON blobs
// addressed by name, in a session-scoped (file) and a durable (SQLite)
// flavor. Callers read and write whole documents; there is no field-level
// addressing.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotFound indicates the named blob has never been written.
var ErrNotFound = errors.New("blob not found")

// KV is a named-blob store. Get returns ErrNotFound for names that were
// never Set.
type KV interface {
	Get(name string) ([]byte, error)
	Set(name string, data []byte) error
}

// FileKV stores each blob as one file inside a directory. It backs the
// session scope.
type FileKV struct {
	dir string
}

// NewFileKV creates the directory if needed and returns a store over it.
func NewFileKV(dir string) (*FileKV, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}
	return &FileKV{dir: dir}, nil
}

// Get reads the named blob.
func (s *FileKV) Get(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading blob %q: %w", name, err)
	}
	return data, nil
}

// Set replaces the named blob.
func (s *FileKV) Set(name string, data []byte) error {
	if err := os.WriteFile(filepath.Join(s.dir, name+".json"), data, 0644); err != nil {
		return fmt.Errorf("writing blob %q: %w", name, err)
	}
	return nil
}

// MemKV is an in-memory KV for tests.
type MemKV struct {
	blobs map[string][]byte
}

// NewMemKV returns an empty in-memory store.
func NewMemKV() *MemKV {
	return &MemKV{blobs: make(map[string][]byte)}
}

// Get reads the named blob.
func (s *MemKV) Get(name string) ([]byte, error) {
	data, ok := s.blobs[name]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Set replaces the named blob.
func (s *MemKV) Set(name string, data []byte) error {
	s.blobs[name] = append([]byte(nil), data...)
	return nil
}
