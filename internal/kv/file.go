// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kv

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/techcorp/finops-go/internal/util"
)

// FileStore persists one JSON file per key under a base directory.
//
// Writes are atomic (temp file + rename), so a reader in another process
// never observes a torn value. FileStore implements Watcher: external
// writes to the directory surface as changed keys, which is how one
// dashboard process observes a login or logout performed by another.
type FileStore struct {
	baseDir string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	changes chan string
	closed  bool
}

// NewFileStore creates a store rooted at baseDir, creating it if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// Get returns the value for key.
func (s *FileStore) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.filePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set stores value under key.
func (s *FileStore) Set(key string, value []byte) error {
	return util.AtomicWriteFile(s.filePath(key), value, 0600)
}

// Delete removes key.
func (s *FileStore) Delete(key string) error {
	err := os.Remove(s.filePath(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Keys returns all keys with the given prefix.
func (s *FileStore) Keys(prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		key, ok := decodeKey(strings.TrimSuffix(entry.Name(), ".json"))
		if !ok {
			continue // foreign file, not one of ours
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Watch returns a channel of keys whose files changed on disk. The channel
// is closed when the store is closed. Events from this process's own
// writes are reported as well; consumers are expected to re-read state
// rather than interpret the event kind.
func (s *FileStore) Watch() (<-chan string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.changes != nil {
		return s.changes, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(s.baseDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch store directory: %w", err)
	}

	s.watcher = watcher
	s.changes = make(chan string, 16)

	go s.forwardEvents(watcher, s.changes)
	return s.changes, nil
}

// forwardEvents translates fsnotify events into changed key names.
func (s *FileStore) forwardEvents(watcher *fsnotify.Watcher, changes chan string) {
	defer close(changes)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			name := filepath.Base(event.Name)
			if !strings.HasSuffix(name, ".json") {
				continue // temp files from atomic writes
			}
			key, ok := decodeKey(strings.TrimSuffix(name, ".json"))
			if !ok {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			select {
			case changes <- key:
			default:
				// Slow consumer; drop rather than block the watcher.
			}
		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close stops the watcher, if any.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// filePath returns the file backing a key.
func (s *FileStore) filePath(key string) string {
	return filepath.Join(s.baseDir, encodeKey(key)+".json")
}

// encodeKey maps a key to a filesystem-safe name. Bytes outside
// [A-Za-z0-9._-] are hex escaped as %XX so the mapping is reversible.
func encodeKey(key string) string {
	var sb strings.Builder
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
			c == '.' || c == '_' || c == '-' {
			sb.WriteByte(c)
			continue
		}
		fmt.Fprintf(&sb, "%%%02X", c)
	}
	return sb.String()
}

// decodeKey reverses encodeKey. Returns false for names that are not a
// valid encoding (e.g. files placed in the directory by something else).
func decodeKey(name string) (string, bool) {
	var sb strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c != '%' {
			sb.WriteByte(c)
			continue
		}
		if i+2 >= len(name) {
			return "", false
		}
		b, err := strconv.ParseUint(name[i+1:i+3], 16, 8)
		if err != nil {
			return "", false
		}
		sb.WriteByte(byte(b))
		i += 2
	}
	return sb.String(), true
}
