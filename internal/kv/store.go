// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kv provides the key-value store the SDK persists through.
//
// The dashboard keeps two kinds of local state: the active session record
// and one application-data blob per user. Both are stored as JSON values
// under string keys so the backing medium can be swapped freely - an
// in-memory map for tests, a directory of JSON files for the desktop
// shell, or a single SQLite database.
package kv

import "errors"

// Well-known keys used by the SDK.
const (
	// SessionKey holds the single active session record.
	SessionKey = "finops_session"

	// UserDataPrefix prefixes the per-user application data blobs.
	// The full key is UserDataPrefix + userID.
	UserDataPrefix = "finops_user_data_"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("kv: store is closed")

// Store is a string-keyed store of JSON-valued entries.
//
// Implementations must tolerate concurrent calls from a single process.
// There is no cross-process locking: two processes writing the same key
// resolve last-writer-wins.
type Store interface {
	// Get returns the value for key. The second result is false when the
	// key is absent.
	Get(key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error

	// Keys returns all keys with the given prefix, in unspecified order.
	Keys(prefix string) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}

// Watcher is implemented by stores that can observe external writes to
// their backing medium (another process updating the same files). The
// channel carries the keys that changed.
type Watcher interface {
	Watch() (<-chan string, error)
}
