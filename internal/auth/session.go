// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"encoding/json"
	"time"
)

// Session is the expiring proof of authentication derived from a User at
// login. Profile fields are denormalized onto it so reads do not require
// a roster lookup.
type Session struct {
	UserID       string    `json:"userId"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	Organization string    `json:"organization"`
	SessionID    string    `json:"sessionId"`
	IssuedAt     time.Time `json:"issuedAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// ExpiredAt reports whether the session is expired at the given instant.
// A session is valid iff now is strictly before ExpiresAt.
func (s *Session) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// =============================================================================
// SESSION STATE
// =============================================================================

// StateKind tags the explicit session state variant.
type StateKind string

const (
	// StateAbsent means no session record is persisted (or the record is
	// unreadable, which is treated the same way).
	StateAbsent StateKind = "absent"

	// StateActive means a persisted session exists and has not expired.
	StateActive StateKind = "active"

	// StateExpired means a persisted session exists but its expiry has
	// passed; the cleanup transition deletes it.
	StateExpired StateKind = "expired"
)

// SessionState is the tagged session-validity variant. Session is set for
// StateActive and StateExpired.
type SessionState struct {
	Kind    StateKind
	Session *Session
}

// ComputeSessionState derives the session state from stored bytes and the
// current time. It is a pure function of its inputs so state transitions
// can be tested with a fixed clock.
func ComputeSessionState(raw []byte, found bool, now time.Time) SessionState {
	if !found {
		return SessionState{Kind: StateAbsent}
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil || sess.UserID == "" {
		// A corrupt record behaves like no record at all.
		return SessionState{Kind: StateAbsent}
	}
	if sess.ExpiredAt(now) {
		return SessionState{Kind: StateExpired, Session: &sess}
	}
	return SessionState{Kind: StateActive, Session: &sess}
}
