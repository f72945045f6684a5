// Package store is a small named key-value store. Values are JSON encoded.
// Insert and Delete stage changes; Save makes them durable.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrCorrupt marks an entry that exists but does not decode.
var ErrCorrupt = errors.New("corrupt entry")

// Store is the persistence collaborator used by state.App.
type Store interface {
	Get(key string, dest any) (bool, error)
	Insert(key string, value any) error
	Delete(key string) error
	Save() error
}

// LoadOrInit decodes key into a T. A missing entry is initialized with
// fallback() and inserted. A corrupt entry is replaced the same way and the
// returned error wraps ErrCorrupt; the returned value is still usable.
func LoadOrInit[T any](s Store, key string, fallback func() T) (T, error) {
	var v T
	found, err := s.Get(key, &v)
	if found && err == nil {
		return v, nil
	}
	fresh := fallback()
	if insErr := s.Insert(key, fresh); insErr != nil {
		return fresh, fmt.Errorf("initialize %s: %w", key, insErr)
	}
	if err != nil {
		return fresh, err
	}
	return fresh, nil
}

// entries is the in-memory view shared by every implementation.
type entries struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (e *entries) get(key string, dest any) (bool, error) {
	e.mu.Lock()
	raw, ok := e.data[key]
	e.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return true, fmt.Errorf("%w: %s: %w", ErrCorrupt, key, err)
	}
	return true, nil
}

func (e *entries) put(key string, value any) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", key, err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.data == nil {
		e.data = make(map[string][]byte)
	}
	e.data[key] = raw
	return raw, nil
}

func (e *entries) remove(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.data, key)
}

// Memory is a Store that never leaves the process. Saves counts Save calls.
type Memory struct {
	entries
	saves int
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: entries{data: make(map[string][]byte)}}
}

// Get implements Store.
func (m *Memory) Get(key string, dest any) (bool, error) {
	return m.get(key, dest)
}

// Insert implements Store.
func (m *Memory) Insert(key string, value any) error {
	_, err := m.put(key, value)
	return err
}

// InsertRaw stores raw bytes without encoding them.
func (m *Memory) InsertRaw(key string, raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), raw...)
}

// Delete implements Store.
func (m *Memory) Delete(key string) error {
	m.remove(key)
	return nil
}

// Save implements Store.
func (m *Memory) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	return nil
}

// Saves returns how many times Save was called.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
