// Package filestore keeps one file per record kind inside a data directory.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"stall/pkg/storage"
)

// Store is a storage.Backend writing <dir>/<kind>.<ext>.
type Store struct {
	dir string
	ext string
}

// New prepares dir; ext is usually the codec name. An empty dir means the working directory.
func New(dir, ext string) (*Store, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(cwd, "data")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if ext == "" {
		ext = "json"
	}
	return &Store{dir: dir, ext: ext}, nil
}

// Path returns the file a kind is stored in.
func (s *Store) Path(kind storage.Kind) string {
	return filepath.Join(s.dir, string(kind)+"."+s.ext)
}

// Put writes through a temp file and renames it so a crash never leaves a half-written record.
func (s *Store) Put(_ context.Context, kind storage.Kind, data []byte) error {
	path := s.Path(kind)
	temp := path + ".tmp"
	if err := os.WriteFile(temp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(temp, path)
}

// Get reads the record file.
func (s *Store) Get(_ context.Context, kind storage.Kind) ([]byte, error) {
	data, err := os.ReadFile(s.Path(kind))
	if errors.Is(err, os.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	return data, err
}

// Remove deletes the record file.
func (s *Store) Remove(_ context.Context, kind storage.Kind) error {
	err := os.Remove(s.Path(kind))
	if errors.Is(err, os.ErrNotExist) {
		return storage.ErrNotFound
	}
	return err
}
