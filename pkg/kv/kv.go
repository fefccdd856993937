// Package kv provides a small key-value store with hierarchical path-based
// keys, used for on-device persistence such as enrolled wake-phrase profiles.
// Keys are string slices (e.g. ["wake", "profile", "default"]) joined with
// ':' in the underlying engine.
//
// Two implementations are provided: a BadgerDB-backed store for the robot's
// flash storage and an in-memory store for tests.
package kv

import (
	"context"
	"errors"
	"iter"
	"strings"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("kv: not found")

// Key is a hierarchical path of segments. Segments must not contain ':'.
type Key []string

func (k Key) String() string {
	return strings.Join(k, ":")
}

// encode joins key segments with ':' for storage.
func (k Key) encode() []byte {
	return []byte(strings.Join(k, ":"))
}

func decodeKey(b []byte) Key {
	return Key(strings.Split(string(b), ":"))
}

// Entry is a key-value pair yielded by List.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is a key-value store with path-based keys.
type Store interface {
	// Get retrieves the value for a key. Returns ErrNotFound if not present.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores a key-value pair, overwriting any existing value.
	Set(ctx context.Context, key Key, value []byte) error

	// Delete removes a key. No error if the key does not exist.
	Delete(ctx context.Context, key Key) error

	// List iterates over entries under the given key prefix in lexicographic
	// order of the encoded key.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// Close releases resources held by the store.
	Close() error
}

// listPrefix returns the encoded prefix with a trailing separator so that
// prefix ["a","b"] does not match key ["a","bc"]. An empty prefix scans all.
func listPrefix(prefix Key) []byte {
	if len(prefix) == 0 {
		return nil
	}
	return append(prefix.encode(), ':')
}
