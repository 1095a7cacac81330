// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/techcorp/finops-go/internal/kv"
)

// fixedTime is the base instant for clock-driven tests.
var fixedTime = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

// fakeClock is a settable time source.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestManager(t *testing.T, opts ...Option) (*Manager, *fakeClock, kv.Store) {
	t.Helper()
	store := kv.NewMemoryStore()
	clock := &fakeClock{now: fixedTime}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewManager(store, opts...), clock, store
}

// =============================================================================
// AUTHENTICATION TESTS
// =============================================================================

func TestAuthenticate_Success(t *testing.T) {
	tests := []struct {
		email    string
		password string
		wantRole Role
		wantName string
	}{
		{"admin@techcorp.com", "admin123", RoleAdmin, "Sarah Chen"},
		{"analyst@techcorp.com", "analyst123", RoleAnalyst, "Marcus Rodriguez"},
		{"viewer@techcorp.com", "viewer123", RoleViewer, "Priya Patel"},
	}

	for _, tt := range tests {
		t.Run(string(tt.wantRole), func(t *testing.T) {
			m, _, _ := newTestManager(t)

			result := m.Authenticate(tt.email, tt.password)
			if !result.Success {
				t.Fatalf("Authenticate() failed: %s", result.Error)
			}
			if result.User == nil {
				t.Fatal("Authenticate() returned no user")
			}
			if result.User.Role != tt.wantRole {
				t.Errorf("Role = %q, want %q", result.User.Role, tt.wantRole)
			}
			if result.User.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", result.User.Name, tt.wantName)
			}
			if !result.User.LastLoginAt.Equal(fixedTime) {
				t.Errorf("LastLoginAt = %v, want %v", result.User.LastLoginAt, fixedTime)
			}

			session, ok := m.CurrentSession()
			if !ok {
				t.Fatal("no session after successful login")
			}
			if session.UserID != result.User.ID {
				t.Errorf("session UserID = %q, want %q", session.UserID, result.User.ID)
			}
			if !strings.HasPrefix(session.SessionID, "sess_") {
				t.Errorf("SessionID = %q, want sess_ prefix", session.SessionID)
			}
			if !session.ExpiresAt.Equal(fixedTime.Add(DefaultSessionTTL)) {
				t.Errorf("ExpiresAt = %v, want issued+24h", session.ExpiresAt)
			}
		})
	}
}

func TestAuthenticate_CaseInsensitiveEmail(t *testing.T) {
	m, _, _ := newTestManager(t)
	result := m.Authenticate("Admin@TechCorp.COM", "admin123")
	if !result.Success {
		t.Fatalf("Authenticate() failed: %s", result.Error)
	}
}

func TestAuthenticate_InvalidCredentials(t *testing.T) {
	m, _, _ := newTestManager(t)

	wrongPassword := m.Authenticate("admin@techcorp.com", "wrong")
	unknownEmail := m.Authenticate("nobody@techcorp.com", "admin123")

	if wrongPassword.Success || unknownEmail.Success {
		t.Fatal("expected both attempts to fail")
	}
	// The two failure modes must be indistinguishable.
	if wrongPassword.Error != unknownEmail.Error {
		t.Errorf("failure messages differ: %q vs %q", wrongPassword.Error, unknownEmail.Error)
	}
	if wrongPassword.Error != "Invalid email or password" {
		t.Errorf("Error = %q", wrongPassword.Error)
	}

	if _, ok := m.CurrentSession(); ok {
		t.Error("failed login must not create a session")
	}
}

func TestAuthenticate_ProfileNotFound(t *testing.T) {
	// A credential without a matching profile is a distinct failure.
	roster := NewRoster(nil, []Credential{{
		Email: "ghost@techcorp.com",
		// bcrypt of "admin123", reused for a profile-less credential.
		PasswordHash: "$2b$10$e78LA9xE/KDqqzN5Kyeoo.zA.QhVI6zigsjAatNAHYPKAUq.7GEre",
	}})
	m, _, _ := newTestManager(t, WithRoster(roster))

	result := m.Authenticate("ghost@techcorp.com", "admin123")
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Error != "User profile not found" {
		t.Errorf("Error = %q", result.Error)
	}
}

func TestAuthenticate_StoreFailure(t *testing.T) {
	store := kv.NewMemoryStore()
	store.Close()
	m := NewManager(store, WithClock((&fakeClock{now: fixedTime}).Now))

	result := m.Authenticate("admin@techcorp.com", "admin123")
	if result.Success {
		t.Fatal("expected failure when the store rejects the write")
	}
	if result.Error != "Authentication failed" {
		t.Errorf("Error = %q", result.Error)
	}
}

func TestAuthenticate_ReplacesExistingSession(t *testing.T) {
	m, _, _ := newTestManager(t)

	m.Authenticate("admin@techcorp.com", "admin123")
	first, _ := m.CurrentSession()

	m.Authenticate("viewer@techcorp.com", "viewer123")
	second, ok := m.CurrentSession()
	if !ok {
		t.Fatal("no session after second login")
	}
	if second.UserID != "user-003" {
		t.Errorf("UserID = %q, want user-003", second.UserID)
	}
	if second.SessionID == first.SessionID {
		t.Error("second login reused the first session ID")
	}
}

// =============================================================================
// SESSION LIFECYCLE TESTS
// =============================================================================

func TestCurrentSession_Expiry(t *testing.T) {
	m, clock, store := newTestManager(t)
	m.Authenticate("analyst@techcorp.com", "analyst123")

	// Just before expiry the session is still active.
	clock.Advance(DefaultSessionTTL - time.Second)
	if _, ok := m.CurrentSession(); !ok {
		t.Fatal("session expired early")
	}

	// At the expiry instant the session is gone, and the read deletes
	// the stored record.
	clock.Advance(time.Second)
	if _, ok := m.CurrentSession(); ok {
		t.Fatal("session still active past expiry")
	}
	if _, found, _ := store.Get(kv.SessionKey); found {
		t.Error("expired session record was not deleted")
	}
	if state := m.State(); state.Kind != StateAbsent {
		t.Errorf("State() after cleanup = %q, want absent", state.Kind)
	}
}

func TestState_Variants(t *testing.T) {
	m, clock, store := newTestManager(t)

	if state := m.State(); state.Kind != StateAbsent {
		t.Errorf("State() = %q, want absent", state.Kind)
	}

	m.Authenticate("admin@techcorp.com", "admin123")
	if state := m.State(); state.Kind != StateActive {
		t.Errorf("State() = %q, want active", state.Kind)
	}

	// State() alone performs no cleanup.
	clock.Advance(DefaultSessionTTL)
	if state := m.State(); state.Kind != StateExpired {
		t.Errorf("State() = %q, want expired", state.Kind)
	}
	if _, found, _ := store.Get(kv.SessionKey); !found {
		t.Error("State() must not delete the expired record")
	}
}

func TestComputeSessionState_CorruptRecord(t *testing.T) {
	for _, raw := range []string{"not json", "{}", `{"userId":""}`} {
		state := ComputeSessionState([]byte(raw), true, fixedTime)
		if state.Kind != StateAbsent {
			t.Errorf("ComputeSessionState(%q) = %q, want absent", raw, state.Kind)
		}
	}
}

func TestLogout(t *testing.T) {
	m, _, store := newTestManager(t)
	m.Authenticate("admin@techcorp.com", "admin123")

	if err := m.Logout(); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, found, _ := store.Get(kv.SessionKey); found {
		t.Error("session record survived logout")
	}

	// Logging out with no session is not an error.
	if err := m.Logout(); err != nil {
		t.Errorf("Logout() with no session error = %v", err)
	}
}

func TestCurrentUser(t *testing.T) {
	m, _, _ := newTestManager(t)

	if m.CurrentUser() != nil {
		t.Error("CurrentUser() with no session should be nil")
	}

	m.Authenticate("viewer@techcorp.com", "viewer123")
	user := m.CurrentUser()
	if user == nil {
		t.Fatal("CurrentUser() = nil after login")
	}
	if user.ID != "user-003" {
		t.Errorf("ID = %q, want user-003", user.ID)
	}
	if user.Preferences.Theme != "light" {
		t.Errorf("Theme = %q, want light", user.Preferences.Theme)
	}
}

// =============================================================================
// PERMISSION TESTS
// =============================================================================

func TestHasPermission_Unauthenticated(t *testing.T) {
	m, _, _ := newTestManager(t)
	if m.HasPermission(PermViewDashboard) {
		t.Error("unauthenticated HasPermission() = true")
	}
}

func TestHasPermission_ByRole(t *testing.T) {
	tests := []struct {
		email    string
		password string
		perm     Permission
		want     bool
	}{
		{"admin@techcorp.com", "admin123", PermManageUsers, true},
		{"admin@techcorp.com", "admin123", PermExportData, true},
		{"analyst@techcorp.com", "analyst123", PermExportData, true},
		{"analyst@techcorp.com", "analyst123", PermManageUsers, false},
		{"analyst@techcorp.com", "analyst123", PermModifySettings, false},
		{"viewer@techcorp.com", "viewer123", PermViewDashboard, true},
		{"viewer@techcorp.com", "viewer123", PermExportData, false},
		{"viewer@techcorp.com", "viewer123", PermRunQueries, false},
	}

	for _, tt := range tests {
		t.Run(tt.email+"/"+string(tt.perm), func(t *testing.T) {
			m, _, _ := newTestManager(t)
			m.Authenticate(tt.email, tt.password)
			if got := m.HasPermission(tt.perm); got != tt.want {
				t.Errorf("HasPermission(%s) = %v, want %v", tt.perm, got, tt.want)
			}
		})
	}
}

func TestHasPermission_ExpiredSession(t *testing.T) {
	m, clock, _ := newTestManager(t)
	m.Authenticate("admin@techcorp.com", "admin123")
	clock.Advance(DefaultSessionTTL + time.Minute)

	if m.HasPermission(PermViewDashboard) {
		t.Error("expired session still grants permissions")
	}
}

// =============================================================================
// SEEDER INTEGRATION TESTS
// =============================================================================

type recordingSeeder struct {
	calls []string
	err   error
}

func (s *recordingSeeder) Initialize(userID string) error {
	s.calls = append(s.calls, userID)
	return s.err
}

func TestAuthenticate_CallsSeeder(t *testing.T) {
	m, _, _ := newTestManager(t)
	seeder := &recordingSeeder{}
	m.SetSeeder(seeder)

	m.Authenticate("admin@techcorp.com", "admin123")
	if len(seeder.calls) != 1 || seeder.calls[0] != "user-001" {
		t.Errorf("seeder calls = %v, want [user-001]", seeder.calls)
	}
}

func TestAuthenticate_SeederFailureDoesNotFailLogin(t *testing.T) {
	m, _, _ := newTestManager(t)
	m.SetSeeder(&recordingSeeder{err: errors.New("disk full")})

	result := m.Authenticate("admin@techcorp.com", "admin123")
	if !result.Success {
		t.Errorf("login failed on seeder error: %s", result.Error)
	}
}
