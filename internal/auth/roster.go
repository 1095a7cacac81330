// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Preferences is a user's preference bundle. JSON tags match the keys the
// dashboard persists.
type Preferences struct {
	Theme              string `json:"theme"`
	DefaultTimeRange   string `json:"defaultTimeRange"`
	DefaultCurrency    string `json:"defaultCurrency"`
	DefaultRegion      string `json:"defaultRegion"`
	EmailNotifications bool   `json:"emailNotifications"`
	SlackNotifications bool   `json:"slackNotifications"`
	Language           string `json:"language"`
}

// User is a dashboard user profile.
type User struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	Name         string      `json:"name"`
	Role         Role        `json:"role"`
	Organization string      `json:"organization"`
	Preferences  Preferences `json:"preferences"`
	CreatedAt    time.Time   `json:"createdAt"`
	LastLoginAt  time.Time   `json:"lastLoginAt"`
}

// Credential pairs an email with a bcrypt password digest.
// SECURITY: The roster never holds plaintext passwords.
type Credential struct {
	Email        string
	PasswordHash string
}

// =============================================================================
// ROSTER
// =============================================================================

// Roster is the fixed user directory the SDK authenticates against.
// Profiles are seeded at construction and never deleted at runtime; only
// LastLoginAt mutates, on successful authentication.
type Roster struct {
	mu    sync.RWMutex
	users map[string]*User  // by ID
	creds map[string]string // lowercased email -> bcrypt digest
	byEml map[string]string // lowercased email -> user ID
}

// NewRoster builds a roster from profiles and credentials. Email matching
// is case-insensitive throughout.
func NewRoster(users []User, creds []Credential) *Roster {
	r := &Roster{
		users: make(map[string]*User, len(users)),
		creds: make(map[string]string, len(creds)),
		byEml: make(map[string]string, len(users)),
	}
	for i := range users {
		u := users[i]
		r.users[u.ID] = &u
		r.byEml[strings.ToLower(u.Email)] = u.ID
	}
	for _, c := range creds {
		r.creds[strings.ToLower(c.Email)] = c.PasswordHash
	}
	return r
}

// VerifyCredentials checks email/password against the credential list.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (r *Roster) VerifyCredentials(email, password string) bool {
	r.mu.RLock()
	hash, ok := r.creds[strings.ToLower(email)]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// FindByEmail returns the profile for an email, or nil.
func (r *Roster) FindByEmail(email string) *User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEml[strings.ToLower(email)]
	if !ok {
		return nil
	}
	return cloneUser(r.users[id])
}

// ByID returns the profile for a user ID, or nil.
func (r *Roster) ByID(id string) *User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneUser(r.users[id])
}

// Touch records a successful login time on the profile.
func (r *Roster) Touch(id string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.LastLoginAt = at
	}
}

// cloneUser copies a profile so callers cannot mutate roster state.
func cloneUser(u *User) *User {
	if u == nil {
		return nil
	}
	out := *u
	return &out
}

// =============================================================================
// DEMO ROSTER
// =============================================================================

// rosterSeedTime is the fixed creation timestamp for the demo profiles.
var rosterSeedTime = time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)

// DefaultRoster returns the fixed TechCorp demo roster. Digests are
// bcrypt (cost 10) of the published demo passwords.
func DefaultRoster() *Roster {
	users := []User{
		{
			ID:           "user-001",
			Email:        "admin@techcorp.com",
			Name:         "Sarah Chen",
			Role:         RoleAdmin,
			Organization: "TechCorp",
			Preferences: Preferences{
				Theme:              "dark",
				DefaultTimeRange:   "30d",
				DefaultCurrency:    "USD",
				DefaultRegion:      "us-east-1",
				EmailNotifications: true,
				SlackNotifications: true,
				Language:           "en",
			},
			CreatedAt: rosterSeedTime,
		},
		{
			ID:           "user-002",
			Email:        "analyst@techcorp.com",
			Name:         "Marcus Rodriguez",
			Role:         RoleAnalyst,
			Organization: "TechCorp",
			Preferences: Preferences{
				Theme:              "light",
				DefaultTimeRange:   "7d",
				DefaultCurrency:    "USD",
				DefaultRegion:      "us-east-1",
				EmailNotifications: true,
				SlackNotifications: false,
				Language:           "en",
			},
			CreatedAt: rosterSeedTime,
		},
		{
			ID:           "user-003",
			Email:        "viewer@techcorp.com",
			Name:         "Priya Patel",
			Role:         RoleViewer,
			Organization: "TechCorp",
			Preferences: Preferences{
				Theme:              "light",
				DefaultTimeRange:   "30d",
				DefaultCurrency:    "USD",
				DefaultRegion:      "us-east-1",
				EmailNotifications: false,
				SlackNotifications: false,
				Language:           "en",
			},
			CreatedAt: rosterSeedTime,
		},
	}
	creds := []Credential{
		{Email: "admin@techcorp.com", PasswordHash: "$2b$10$e78LA9xE/KDqqzN5Kyeoo.zA.QhVI6zigsjAatNAHYPKAUq.7GEre"},
		{Email: "analyst@techcorp.com", PasswordHash: "$2b$10$DX5RbdpiHd4GJRlC1/yuz.13nA5c0/LaJsG5ztRBD72NtqzFgvhXq"},
		{Email: "viewer@techcorp.com", PasswordHash: "$2b$10$lrWKzOsm0wjDKYF59I7cqO7DtxwmdxsxCEo1M5BT9y1x.G/UyeI6m"},
	}
	return NewRoster(users, creds)
}
