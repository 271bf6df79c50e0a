// Package memstore keeps records in process memory. It backs tests and
// throwaway demo runs where nothing should touch the disk.
package memstore

import (
	"context"
	"errors"
	"sync"

	"stall/pkg/storage"
)

// ErrUnavailable is returned by every call while the store is marked offline.
var ErrUnavailable = errors.New("memory store is offline")

// Store is a storage.Backend over a map.
type Store struct {
	mu      sync.Mutex
	records map[storage.Kind][]byte
	offline bool
	puts    int
}

// New returns an empty store.
func New() *Store {
	return &Store{records: make(map[storage.Kind][]byte)}
}

// Put copies data so callers cannot mutate what was saved.
func (s *Store) Put(_ context.Context, kind storage.Kind, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return ErrUnavailable
	}
	s.records[kind] = append([]byte(nil), data...)
	s.puts++
	return nil
}

// Get returns storage.ErrNotFound for kinds never saved.
func (s *Store) Get(_ context.Context, kind storage.Kind) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return nil, ErrUnavailable
	}
	data, ok := s.records[kind]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Remove returns storage.ErrNotFound for kinds never saved.
func (s *Store) Remove(_ context.Context, kind storage.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return ErrUnavailable
	}
	if _, ok := s.records[kind]; !ok {
		return storage.ErrNotFound
	}
	delete(s.records, kind)
	return nil
}

// SetOffline makes every call fail until it is switched back.
func (s *Store) SetOffline(offline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offline = offline
}

// Puts counts successful writes.
func (s *Store) Puts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}
