// Package storage provides the profile-scoped key/value storage the client
// keeps its credentials in, together with change notifications that let
// several running clients sharing one profile observe each other's writes.
package storage

import (
	"errors"
	"strings"
)

var (
	ErrInvalidKey = errors.New("invalid storage key")
)

// Storage is a string key/value store that outlives the process.
type Storage interface {
	// Get returns the value stored under key. ok is false when the key is
	// absent.
	Get(key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error

	// Clear deletes every key.
	Clear() error
}

// Event describes a change made to a Storage.
type Event struct {
	// Key is the changed key. It is empty when the whole storage was cleared.
	Key string

	// Value is the new value. It is meaningless when Removed is true.
	Value string

	// Removed is true when Key no longer exists.
	Removed bool
}

// Cleared reports whether the event signals that every key was removed.
func (e Event) Cleared() bool {
	return e.Key == ""
}

// Notifier delivers storage change events to subscribers.
type Notifier interface {
	// Subscribe registers fn for all future events. The returned function
	// deregisters it and is safe to call more than once.
	Subscribe(fn func(Event)) (unsubscribe func())
}

// NopNotifier never delivers events. It is used where the platform cannot
// watch the storage for changes.
type NopNotifier struct{}

// type check
var _ Notifier = NopNotifier{}

// Subscribe implements the [Notifier] interface for NopNotifier.
func (NopNotifier) Subscribe(func(Event)) func() {
	return func() {}
}

// ValidateKey reports whether key can be used with every Storage
// implementation. Keys starting with a dot are reserved for temporary files.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, ".") || strings.ContainsAny(key, `/\`) {
		return ErrInvalidKey
	}
	return nil
}
