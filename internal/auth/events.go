// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"time"

	"github.com/techcorp/finops-go/internal/kv"
)

// EventType classifies a session lifecycle change.
type EventType string

const (
	// EventLogin fires after a successful authentication.
	EventLogin EventType = "login"

	// EventLogout fires after an explicit logout.
	EventLogout EventType = "logout"

	// EventExpired fires when a lazy expiry check removes a session.
	EventExpired EventType = "expired"

	// EventExternal fires when another process changed the persisted
	// session (observed through a store watcher).
	EventExternal EventType = "external"
)

// SessionEvent is published on the manager's broadcast channel whenever
// the session state changes. Session is nil for logout/expiry.
type SessionEvent struct {
	Type    EventType
	Session *Session
	At      time.Time
}

// Subscribe registers a listener for session events. The returned channel
// is buffered; events are dropped rather than blocking the manager when a
// listener falls behind.
func (m *Manager) Subscribe() <-chan SessionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan SessionEvent, 8)
	m.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (m *Manager) Unsubscribe(ch <-chan SessionEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for sub := range m.subscribers {
		if sub == ch {
			delete(m.subscribers, sub)
			close(sub)
			return
		}
	}
}

// publish fans an event out to all subscribers without blocking.
func (m *Manager) publish(event SessionEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for sub := range m.subscribers {
		select {
		case sub <- event:
		default:
		}
	}
}

// ForwardStoreChanges bridges a store watcher into the event channel:
// when another process rewrites the session record, subscribers here see
// an EventExternal carrying the freshly computed state. Run it on its own
// goroutine; it returns when ctx ends or the change channel closes.
func (m *Manager) ForwardStoreChanges(ctx context.Context, changes <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case key, ok := <-changes:
			if !ok {
				return
			}
			if key != kv.SessionKey {
				continue
			}
			state := m.State()
			m.publish(SessionEvent{Type: EventExternal, Session: state.Session, At: m.now()})
		}
	}
}
