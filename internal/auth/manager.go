// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth implements session and permission management for the
// FinOps dashboard.
//
// The Manager authenticates against a fixed demo roster, keeps exactly
// one session persisted in the local store, checks expiry lazily on every
// read, and resolves permissions through a static role table. It is an
// explicit service object: construct one at application start and pass it
// where it is needed.
package auth

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/techcorp/finops-go/internal/kv"
)

// DefaultSessionTTL is how long a session stays valid after login.
const DefaultSessionTTL = 24 * time.Hour

// User-facing result messages. Credential misses and password mismatches
// share one message so the two cases cannot be told apart.
const (
	msgInvalidCredentials = "Invalid email or password"
	msgProfileNotFound    = "User profile not found"
	msgInternalFailure    = "Authentication failed"
)

// AuthResult is the structured outcome of an authentication attempt.
// The manager reports failures through this shape instead of errors.
type AuthResult struct {
	Success bool   `json:"success"`
	User    *User  `json:"user,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Seeder lazily initializes per-user application data after login.
// Implemented by the userdata store; wired at composition time.
type Seeder interface {
	Initialize(userID string) error
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager owns the session lifecycle and permission checks.
type Manager struct {
	mu          sync.Mutex
	store       kv.Store
	roster      *Roster
	ttl         time.Duration
	now         func() time.Time
	logger      *log.Logger
	seeder      Seeder
	subscribers map[chan SessionEvent]struct{}
}

// Option customizes a Manager.
type Option func(*Manager)

// WithRoster substitutes the user directory (tests, non-demo rosters).
func WithRoster(r *Roster) Option {
	return func(m *Manager) { m.roster = r }
}

// WithTTL overrides the session duration.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

// WithClock injects the time source so expiry transitions are testable.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger redirects diagnostic output.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a Manager over the given store with the demo roster.
func NewManager(store kv.Store, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		roster:      DefaultRoster(),
		ttl:         DefaultSessionTTL,
		now:         time.Now,
		logger:      log.Default(),
		subscribers: make(map[chan SessionEvent]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetSeeder wires the user-data initializer called after login.
func (m *Manager) SetSeeder(s Seeder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seeder = s
}

// Roster returns the user directory backing this manager.
func (m *Manager) Roster() *Roster {
	return m.roster
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

// Authenticate verifies email/password against the roster and, on
// success, issues a session, persists it over any prior one, records the
// login time, and seeds the user's application data if absent.
//
// Unexpected store failures are logged and reported as a generic failure
// result; Authenticate never panics or returns a raw error.
func (m *Manager) Authenticate(email, password string) AuthResult {
	if !m.roster.VerifyCredentials(email, password) {
		return AuthResult{Success: false, Error: msgInvalidCredentials}
	}

	// The credential list and the profile roster are separate lookups; a
	// credential without a profile is a distinct failure.
	user := m.roster.FindByEmail(email)
	if user == nil {
		return AuthResult{Success: false, Error: msgProfileNotFound}
	}

	now := m.now()
	session := &Session{
		UserID:       user.ID,
		Email:        user.Email,
		Name:         user.Name,
		Role:         user.Role,
		Organization: user.Organization,
		SessionID:    "sess_" + uuid.NewString(),
		IssuedAt:     now,
		ExpiresAt:    now.Add(m.ttl),
	}

	raw, err := json.Marshal(session)
	if err != nil {
		m.logger.Printf("auth: failed to encode session: %v", err)
		return AuthResult{Success: false, Error: msgInternalFailure}
	}
	if err := m.store.Set(kv.SessionKey, raw); err != nil {
		m.logger.Printf("auth: failed to persist session: %v", err)
		return AuthResult{Success: false, Error: msgInternalFailure}
	}

	m.roster.Touch(user.ID, now)
	user.LastLoginAt = now

	m.mu.Lock()
	seeder := m.seeder
	m.mu.Unlock()
	if seeder != nil {
		if err := seeder.Initialize(user.ID); err != nil {
			// Seeding failure does not fail the login.
			m.logger.Printf("auth: failed to seed user data for %s: %v", user.ID, err)
		}
	}

	m.publish(SessionEvent{Type: EventLogin, Session: session, At: now})
	return AuthResult{Success: true, User: user}
}

// =============================================================================
// SESSION READS
// =============================================================================

// State computes the explicit session state from the store and the clock.
// It performs no cleanup; see CurrentSession for the expiry transition.
func (m *Manager) State() SessionState {
	raw, found, err := m.store.Get(kv.SessionKey)
	if err != nil {
		m.logger.Printf("auth: failed to read session: %v", err)
		return SessionState{Kind: StateAbsent}
	}
	return ComputeSessionState(raw, found, m.now())
}

// CurrentSession returns the active session, if any. Reading an expired
// session deletes it as a side effect and reports it as absent.
func (m *Manager) CurrentSession() (*Session, bool) {
	state := m.State()
	switch state.Kind {
	case StateActive:
		return state.Session, true
	case StateExpired:
		if err := m.store.Delete(kv.SessionKey); err != nil {
			m.logger.Printf("auth: failed to remove expired session: %v", err)
		}
		m.publish(SessionEvent{Type: EventExpired, Session: nil, At: m.now()})
		return nil, false
	default:
		return nil, false
	}
}

// CurrentUser resolves the full profile for the active session, or nil.
func (m *Manager) CurrentUser() *User {
	session, ok := m.CurrentSession()
	if !ok {
		return nil
	}
	return m.roster.ByID(session.UserID)
}

// Logout removes the persisted session unconditionally.
func (m *Manager) Logout() error {
	err := m.store.Delete(kv.SessionKey)
	if err != nil {
		m.logger.Printf("auth: failed to remove session: %v", err)
		return err
	}
	m.publish(SessionEvent{Type: EventLogout, Session: nil, At: m.now()})
	return nil
}

// =============================================================================
// PERMISSIONS
// =============================================================================

// HasPermission resolves the named permission for the current user's role.
// Returns false when no user is authenticated.
func (m *Manager) HasPermission(perm Permission) bool {
	session, ok := m.CurrentSession()
	if !ok {
		return false
	}
	return RoleHasPermission(session.Role, perm)
}
