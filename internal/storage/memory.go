package storage

import (
	"maps"
	"sync"
)

// Memory is an in-process Storage that notifies its subscribers synchronously
// after every change. Several session stores sharing one Memory behave like
// several tabs sharing one origin.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
	subs   subscribers
}

// type check
var (
	_ Storage  = (*Memory)(nil)
	_ Notifier = (*Memory)(nil)
)

// NewMemory returns an empty Memory storage.
func NewMemory() *Memory {
	return &Memory{values: map[string]string{}}
}

// Get implements the [Storage] interface for *Memory.
func (m *Memory) Get(key string) (string, bool, error) {
	if err := ValidateKey(key); err != nil {
		return "", false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	return v, ok, nil
}

// Set implements the [Storage] interface for *Memory.
func (m *Memory) Set(key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()

	m.subs.broadcast(Event{Key: key, Value: value})
	return nil
}

// Remove implements the [Storage] interface for *Memory.
func (m *Memory) Remove(key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	m.mu.Lock()
	_, existed := m.values[key]
	delete(m.values, key)
	m.mu.Unlock()

	if existed {
		m.subs.broadcast(Event{Key: key, Removed: true})
	}
	return nil
}

// Clear implements the [Storage] interface for *Memory.
func (m *Memory) Clear() error {
	m.mu.Lock()
	clear(m.values)
	m.mu.Unlock()

	m.subs.broadcast(Event{})
	return nil
}

// Subscribe implements the [Notifier] interface for *Memory.
func (m *Memory) Subscribe(fn func(Event)) func() {
	return m.subs.add(fn)
}

// Snapshot returns a copy of all stored values.
func (m *Memory) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.values)
}
