// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package userdata manages the per-user application state blob.
//
// Each user owns one JSON document in the local store, independent of the
// session lifecycle: it is created lazily on first authenticated access
// and survives logout and session expiry. Updates are shallow merges -
// a patch replaces whole top-level sections and never touches siblings.
package userdata

import "time"

// MaxQueryHistory bounds the query-history ring; oldest entries fall off.
const MaxQueryHistory = 50

// Top-level section names of the UserData document. Patch keys must be
// one of these to have any effect on typed readers.
const (
	SectionDashboard     = "dashboard"
	SectionSQLLab        = "sqlLab"
	SectionAIChat        = "aiChat"
	SectionCostAnalytics = "costAnalytics"
)

// DashboardState is the persisted dashboard filter state.
type DashboardState struct {
	TimeRange   string   `json:"timeRange"`
	Currency    string   `json:"currency"`
	Region      string   `json:"region"`
	Services    []string `json:"services"`
	Granularity string   `json:"granularity"`
}

// SavedQuery is a user-authored SQL query kept in the SQL workbench.
type SavedQuery struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	Name           string     `json:"name"`
	Query          string     `json:"query"`
	Tags           []string   `json:"tags"`
	IsPublic       bool       `json:"isPublic"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastExecuted   *time.Time `json:"lastExecuted,omitempty"`
	ExecutionCount int        `json:"executionCount"`
}

// HistoryEntry records one executed query in the bounded history ring.
type HistoryEntry struct {
	ID         string    `json:"id"`
	Query      string    `json:"query"`
	Engine     string    `json:"engine"`
	Status     string    `json:"status"`
	ExecutedAt time.Time `json:"executedAt"`
	DurationMS int64     `json:"durationMs"`
	RowCount   int       `json:"rowCount"`
}

// SQLLabState is the SQL workbench section.
type SQLLabState struct {
	SavedQueries []SavedQuery   `json:"savedQueries"`
	QueryHistory []HistoryEntry `json:"queryHistory"`
}

// ChatMessage is a single message inside an AI conversation.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is one AI chat thread.
type Conversation struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Messages  []ChatMessage `json:"messages"`
}

// AIChatState is the AI assistant section.
type AIChatState struct {
	Conversations []Conversation `json:"conversations"`
}

// ExportRecord is one entry in the cost-analytics export history.
type ExportRecord struct {
	ID              string    `json:"id"`
	Format          string    `json:"format"` // "csv", "xlsx", "json"
	RequestedAt     time.Time `json:"requestedAt"`
	RowCount        int       `json:"rowCount"`
	Amount          float64   `json:"amount"`
	Currency        string    `json:"currency"`
	AmountFormatted string    `json:"amountFormatted"`
}

// CostAnalyticsState is the cost-analytics section.
type CostAnalyticsState struct {
	ExportHistory    []ExportRecord `json:"exportHistory"`
	LastViewedReport string         `json:"lastViewedReport"`
}

// UserData is the per-user application state document. Its four sections
// are the units of replacement for Patch.
type UserData struct {
	Dashboard     DashboardState     `json:"dashboard"`
	SQLLab        SQLLabState        `json:"sqlLab"`
	AIChat        AIChatState        `json:"aiChat"`
	CostAnalytics CostAnalyticsState `json:"costAnalytics"`
}
