// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package userdata

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/techcorp/finops-go/internal/auth"
	"github.com/techcorp/finops-go/internal/kv"
)

// SessionSource resolves the currently authenticated session. Satisfied
// by *auth.Manager; narrowed to an interface so tests can fake it.
type SessionSource interface {
	CurrentSession() (*auth.Session, bool)
}

// =============================================================================
// STORE
// =============================================================================

// Store reads and writes per-user data blobs. Construct one per
// application alongside the auth manager and register it as the
// manager's seeder.
type Store struct {
	kv       kv.Store
	roster   *auth.Roster
	sessions SessionSource
	now      func() time.Time
	logger   *log.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithClock injects the time source for deterministic seeds and stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger redirects diagnostic output.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a user-data store bound to the auth manager's roster
// and session state.
func NewStore(store kv.Store, mgr *auth.Manager, opts ...Option) *Store {
	s := &Store{
		kv:       store,
		roster:   mgr.Roster(),
		sessions: mgr,
		now:      time.Now,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// key returns the store key for a user's blob.
func key(userID string) string {
	return kv.UserDataPrefix + userID
}

// resolveUserID defaults an empty id to the current session's user.
func (s *Store) resolveUserID(userID string) string {
	if userID != "" {
		return userID
	}
	if session, ok := s.sessions.CurrentSession(); ok {
		return session.UserID
	}
	return ""
}

// =============================================================================
// INITIALIZE / READ
// =============================================================================

// Initialize lazily creates the blob for a user. It is a no-op when data
// already exists, so calling it on every login is safe.
func (s *Store) Initialize(userID string) error {
	_, found, err := s.kv.Get(key(userID))
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	user := s.roster.ByID(userID)
	data := s.seed(userID, user)

	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.kv.Set(key(userID), raw)
}

// Get returns the blob for a user id, defaulting to the current session's
// user when userID is empty. Returns nil when no id is resolvable or no
// blob is stored.
func (s *Store) Get(userID string) *UserData {
	id := s.resolveUserID(userID)
	if id == "" {
		return nil
	}
	raw, found, err := s.kv.Get(key(id))
	if err != nil {
		s.logger.Printf("userdata: failed to read blob for %s: %v", id, err)
		return nil
	}
	if !found {
		return nil
	}
	var data UserData
	if err := json.Unmarshal(raw, &data); err != nil {
		s.logger.Printf("userdata: corrupt blob for %s: %v", id, err)
		return nil
	}
	return &data
}

// =============================================================================
// PATCH
// =============================================================================

// Patch shallow-merges updates onto the stored blob and persists the
// result: each top-level key present in updates fully replaces the stored
// section of the same name; absent keys are preserved untouched. There is
// no deep merge. Returns false when no user id is resolvable or the store
// fails.
//
// Two contexts patching the same user concurrently resolve
// last-writer-wins; the store holds no cross-context lock.
func (s *Store) Patch(updates map[string]json.RawMessage, userID string) bool {
	id := s.resolveUserID(userID)
	if id == "" {
		return false
	}

	merged := make(map[string]json.RawMessage)
	if raw, found, err := s.kv.Get(key(id)); err != nil {
		s.logger.Printf("userdata: failed to read blob for %s: %v", id, err)
		return false
	} else if found {
		if err := json.Unmarshal(raw, &merged); err != nil {
			s.logger.Printf("userdata: corrupt blob for %s: %v", id, err)
			merged = make(map[string]json.RawMessage)
		}
	}

	for k, v := range updates {
		merged[k] = v
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		s.logger.Printf("userdata: failed to encode blob for %s: %v", id, err)
		return false
	}
	if err := s.kv.Set(key(id), raw); err != nil {
		s.logger.Printf("userdata: failed to persist blob for %s: %v", id, err)
		return false
	}
	return true
}

// patchSection marshals one typed section and applies it through Patch.
func (s *Store) patchSection(section string, value any, userID string) bool {
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Printf("userdata: failed to encode %s section: %v", section, err)
		return false
	}
	return s.Patch(map[string]json.RawMessage{section: raw}, userID)
}

// =============================================================================
// CONVENIENCE MUTATORS
// =============================================================================

// SetDashboard replaces the dashboard filter state.
func (s *Store) SetDashboard(state DashboardState, userID string) bool {
	return s.patchSection(SectionDashboard, state, userID)
}

// AppendHistory pushes an entry onto the front of the query-history ring,
// trimming it to MaxQueryHistory.
func (s *Store) AppendHistory(entry HistoryEntry, userID string) bool {
	data := s.Get(userID)
	if data == nil {
		return false
	}
	if entry.ID == "" {
		entry.ID = "hist_" + uuid.NewString()
	}
	if entry.ExecutedAt.IsZero() {
		entry.ExecutedAt = s.now()
	}

	history := append([]HistoryEntry{entry}, data.SQLLab.QueryHistory...)
	if len(history) > MaxQueryHistory {
		history = history[:MaxQueryHistory]
	}
	data.SQLLab.QueryHistory = history
	return s.patchSection(SectionSQLLab, data.SQLLab, userID)
}

// SaveQuery adds or replaces a saved query (matched by ID).
func (s *Store) SaveQuery(query SavedQuery, userID string) bool {
	data := s.Get(userID)
	if data == nil {
		return false
	}
	if query.ID == "" {
		query.ID = "query_" + uuid.NewString()
	}
	if query.CreatedAt.IsZero() {
		query.CreatedAt = s.now()
	}
	if query.UserID == "" {
		query.UserID = s.resolveUserID(userID)
	}

	replaced := false
	for i, q := range data.SQLLab.SavedQueries {
		if q.ID == query.ID {
			data.SQLLab.SavedQueries[i] = query
			replaced = true
			break
		}
	}
	if !replaced {
		data.SQLLab.SavedQueries = append(data.SQLLab.SavedQueries, query)
	}
	return s.patchSection(SectionSQLLab, data.SQLLab, userID)
}

// MarkQueryExecuted stamps a saved query's last execution and bumps its
// execution counter.
func (s *Store) MarkQueryExecuted(queryID, userID string) bool {
	data := s.Get(userID)
	if data == nil {
		return false
	}
	for i := range data.SQLLab.SavedQueries {
		if data.SQLLab.SavedQueries[i].ID == queryID {
			at := s.now()
			data.SQLLab.SavedQueries[i].LastExecuted = &at
			data.SQLLab.SavedQueries[i].ExecutionCount++
			return s.patchSection(SectionSQLLab, data.SQLLab, userID)
		}
	}
	return false
}

// UpsertConversation adds or replaces a chat conversation (matched by ID)
// and stamps its update time.
func (s *Store) UpsertConversation(conv Conversation, userID string) bool {
	data := s.Get(userID)
	if data == nil {
		return false
	}
	if conv.ID == "" {
		conv.ID = "conv_" + uuid.NewString()
	}
	now := s.now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	conv.UpdatedAt = now

	replaced := false
	for i, c := range data.AIChat.Conversations {
		if c.ID == conv.ID {
			data.AIChat.Conversations[i] = conv
			replaced = true
			break
		}
	}
	if !replaced {
		data.AIChat.Conversations = append(data.AIChat.Conversations, conv)
	}
	return s.patchSection(SectionAIChat, data.AIChat, userID)
}

// RecordExport appends a cost-analytics export record, formatting the
// amount in the export's currency.
func (s *Store) RecordExport(format string, rowCount int, amount float64, code string, userID string) bool {
	data := s.Get(userID)
	if data == nil {
		return false
	}
	if code == "" {
		code = data.Dashboard.Currency
	}
	record := ExportRecord{
		ID:              "export_" + uuid.NewString(),
		Format:          format,
		RequestedAt:     s.now(),
		RowCount:        rowCount,
		Amount:          amount,
		Currency:        code,
		AmountFormatted: FormatAmount(code, amount),
	}
	data.CostAnalytics.ExportHistory = append(data.CostAnalytics.ExportHistory, record)
	return s.patchSection(SectionCostAnalytics, data.CostAnalytics, userID)
}
