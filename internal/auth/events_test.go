// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/techcorp/finops-go/internal/kv"
)

// recvEvent waits briefly for one event.
func recvEvent(t *testing.T, ch <-chan SessionEvent) SessionEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no session event within 1s")
		return SessionEvent{}
	}
}

func TestSubscribe_LifecycleEvents(t *testing.T) {
	m, clock, _ := newTestManager(t)
	events := m.Subscribe()

	m.Authenticate("admin@techcorp.com", "admin123")
	ev := recvEvent(t, events)
	if ev.Type != EventLogin {
		t.Errorf("event = %q, want login", ev.Type)
	}
	if ev.Session == nil || ev.Session.UserID != "user-001" {
		t.Error("login event should carry the new session")
	}

	m.Logout()
	ev = recvEvent(t, events)
	if ev.Type != EventLogout {
		t.Errorf("event = %q, want logout", ev.Type)
	}
	if ev.Session != nil {
		t.Error("logout event should carry no session")
	}

	m.Authenticate("admin@techcorp.com", "admin123")
	recvEvent(t, events) // drain the login
	clock.Advance(DefaultSessionTTL)
	m.CurrentSession() // lazy expiry check triggers cleanup
	ev = recvEvent(t, events)
	if ev.Type != EventExpired {
		t.Errorf("event = %q, want expired", ev.Type)
	}
}

func TestUnsubscribe_ClosesChannel(t *testing.T) {
	m, _, _ := newTestManager(t)
	events := m.Subscribe()
	m.Unsubscribe(events)

	if _, open := <-events; open {
		t.Error("channel still open after Unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	m.Authenticate("admin@techcorp.com", "admin123")
}

func TestForwardStoreChanges(t *testing.T) {
	m, _, store := newTestManager(t)
	events := m.Subscribe()

	changes := make(chan string, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.ForwardStoreChanges(ctx, changes)

	// Simulate another process writing a session record.
	session := []byte(`{"userId":"user-002","email":"analyst@techcorp.com","role":"analyst",` +
		`"sessionId":"sess_ext","issuedAt":"2025-06-01T12:00:00Z","expiresAt":"2025-06-02T12:00:00Z"}`)
	store.Set(kv.SessionKey, session)
	changes <- kv.SessionKey

	ev := recvEvent(t, events)
	if ev.Type != EventExternal {
		t.Errorf("event = %q, want external", ev.Type)
	}
	if ev.Session == nil || ev.Session.UserID != "user-002" {
		t.Error("external event should carry the freshly read session")
	}

	// Unrelated keys are ignored.
	changes <- kv.UserDataPrefix + "user-002"
	select {
	case ev := <-events:
		t.Errorf("unexpected event %q for non-session key", ev.Type)
	case <-time.After(100 * time.Millisecond):
	}
}
