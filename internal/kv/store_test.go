// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kv

import (
	"path/filepath"
	"sort"
	"testing"
	"time"
)

// =============================================================================
// BACKEND CONFORMANCE TESTS
// =============================================================================

// backends builds one of each store implementation against temp storage.
func backends(t *testing.T) map[string]Store {
	t.Helper()

	fileStore, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	sqliteStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}

	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fileStore,
		"sqlite": sqliteStore,
	}
}

func TestStore_SetGetDelete(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()

			if _, found, err := store.Get("missing"); err != nil || found {
				t.Errorf("Get(missing) = found=%v, err=%v, want absent", found, err)
			}

			if err := store.Set(SessionKey, []byte(`{"userId":"user-001"}`)); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			data, found, err := store.Get(SessionKey)
			if err != nil || !found {
				t.Fatalf("Get() = found=%v, err=%v, want present", found, err)
			}
			if string(data) != `{"userId":"user-001"}` {
				t.Errorf("Get() = %q", data)
			}

			// Overwrite replaces.
			if err := store.Set(SessionKey, []byte(`{"userId":"user-002"}`)); err != nil {
				t.Fatalf("Set() overwrite error = %v", err)
			}
			data, _, _ = store.Get(SessionKey)
			if string(data) != `{"userId":"user-002"}` {
				t.Errorf("Get() after overwrite = %q", data)
			}

			if err := store.Delete(SessionKey); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, found, _ := store.Get(SessionKey); found {
				t.Error("Get() after Delete() found value")
			}

			// Deleting an absent key is not an error.
			if err := store.Delete(SessionKey); err != nil {
				t.Errorf("Delete(absent) error = %v", err)
			}
		})
	}
}

func TestStore_KeysPrefix(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()

			store.Set(SessionKey, []byte("{}"))
			store.Set(UserDataPrefix+"user-001", []byte("{}"))
			store.Set(UserDataPrefix+"user-002", []byte("{}"))

			keys, err := store.Keys(UserDataPrefix)
			if err != nil {
				t.Fatalf("Keys() error = %v", err)
			}
			sort.Strings(keys)

			want := []string{UserDataPrefix + "user-001", UserDataPrefix + "user-002"}
			if len(keys) != len(want) {
				t.Fatalf("Keys() = %v, want %v", keys, want)
			}
			for i := range want {
				if keys[i] != want[i] {
					t.Errorf("Keys()[%d] = %q, want %q", i, keys[i], want[i])
				}
			}
		})
	}
}

func TestMemoryStore_DefensiveCopies(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	value := []byte(`{"a":1}`)
	store.Set("k", value)
	value[0] = 'X' // caller mutation must not leak in

	data, _, _ := store.Get("k")
	if string(data) != `{"a":1}` {
		t.Errorf("stored value mutated: %q", data)
	}

	data[0] = 'Y' // returned slice mutation must not leak back
	again, _, _ := store.Get("k")
	if string(again) != `{"a":1}` {
		t.Errorf("returned value aliased store: %q", again)
	}
}

// =============================================================================
// FILE STORE TESTS
// =============================================================================

func TestEncodeDecodeKey(t *testing.T) {
	tests := []struct {
		key     string
		encoded string
	}{
		{"finops_session", "finops_session"},
		{"finops_user_data_user-001", "finops_user_data_user-001"},
		{"a/b", "a%2Fb"},
		{"spaced key", "spaced%20key"},
		{"pct%literal", "pct%25literal"},
	}
	for _, tt := range tests {
		if got := encodeKey(tt.key); got != tt.encoded {
			t.Errorf("encodeKey(%q) = %q, want %q", tt.key, got, tt.encoded)
		}
		back, ok := decodeKey(tt.encoded)
		if !ok || back != tt.key {
			t.Errorf("decodeKey(%q) = %q, %v, want %q", tt.encoded, back, ok, tt.key)
		}
	}
}

func TestDecodeKey_Invalid(t *testing.T) {
	for _, name := range []string{"%", "%2", "%ZZ"} {
		if _, ok := decodeKey(name); ok {
			t.Errorf("decodeKey(%q) = ok, want rejection", name)
		}
	}
}

func TestFileStore_Watch(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	defer store.Close()

	changes, err := store.Watch()
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	// A second writer on the same directory simulates another process.
	other, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	defer other.Close()
	if err := other.Set(SessionKey, []byte("{}")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	select {
	case key := <-changes:
		if key != SessionKey {
			t.Errorf("changed key = %q, want %q", key, SessionKey)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no change event within 2s")
	}
}

func TestFileStore_WatchAfterClose(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	store.Close()

	if _, err := store.Watch(); err != ErrClosed {
		t.Errorf("Watch() after Close() error = %v, want ErrClosed", err)
	}
}
