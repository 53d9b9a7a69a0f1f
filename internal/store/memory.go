package store

import (
	"context"
	"errors"
	"sync"
)

// Memory is a process-local Adapter.
//
// Drop simulates a lost connection: every later call fails with
// ErrUnreachable until Connect is called again. Data survives Drop.
type Memory struct {
	mu        sync.RWMutex
	data      map[string][]byte
	connected bool
	dropped   bool
}

// NewMemory returns an unconnected, empty adapter.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Connect marks the adapter connected and clears a previous Drop.
func (m *Memory) Connect(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	m.dropped = false
	return nil
}

// Get returns a copy of the stored value.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.check("memory get"); err != nil {
		return nil, false, err
	}
	value, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// Set stores value under key.
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check("memory set"); err != nil {
		return err
	}
	m.data[key] = []byte(value)
	return nil
}

// Close disconnects the adapter.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

// Drop simulates the backend going away.
func (m *Memory) Drop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped = true
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

func (m *Memory) check(op string) error {
	if !m.connected {
		return ErrNotConnected
	}
	if m.dropped {
		return unreachable(op, errDropped)
	}
	return nil
}

var errDropped = errors.New("connection dropped")
