// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package userdata

import (
	"time"

	"github.com/google/uuid"

	"github.com/techcorp/finops-go/internal/auth"
)

// seed builds the default blob for a user. The dashboard section starts
// from the user's preference bundle; admins and analysts get starter
// content in the workbench and chat sections, viewers start empty.
func (s *Store) seed(userID string, user *auth.User) UserData {
	now := s.now()

	data := UserData{
		Dashboard: DashboardState{
			TimeRange:   "30d",
			Currency:    "USD",
			Region:      "us-east-1",
			Services:    []string{},
			Granularity: "daily",
		},
		SQLLab: SQLLabState{
			SavedQueries: []SavedQuery{},
			QueryHistory: []HistoryEntry{},
		},
		AIChat: AIChatState{
			Conversations: []Conversation{},
		},
		CostAnalytics: CostAnalyticsState{
			ExportHistory: []ExportRecord{},
		},
	}

	role := auth.RoleViewer
	if user != nil {
		role = user.Role
		if user.Preferences.DefaultTimeRange != "" {
			data.Dashboard.TimeRange = user.Preferences.DefaultTimeRange
		}
		if user.Preferences.DefaultCurrency != "" {
			data.Dashboard.Currency = user.Preferences.DefaultCurrency
		}
		if user.Preferences.DefaultRegion != "" {
			data.Dashboard.Region = user.Preferences.DefaultRegion
		}
	}

	switch role {
	case auth.RoleAdmin:
		data.SQLLab.SavedQueries = []SavedQuery{
			starterQuery(userID, now,
				"Monthly spend by service",
				"SELECT service, SUM(unblended_cost) AS cost FROM cur.line_items WHERE billing_period = date_trunc('month', current_date) GROUP BY service ORDER BY cost DESC",
				[]string{"spend", "monthly"}, false),
			starterQuery(userID, now,
				"Cross-team cost allocation",
				"SELECT team_tag, SUM(unblended_cost) AS cost FROM cur.line_items GROUP BY team_tag ORDER BY cost DESC",
				[]string{"allocation", "teams"}, true),
		}
		data.SQLLab.QueryHistory = []HistoryEntry{starterHistory(now)}
		data.AIChat.Conversations = []Conversation{welcomeConversation(now)}
	case auth.RoleAnalyst:
		data.SQLLab.SavedQueries = []SavedQuery{
			starterQuery(userID, now,
				"Top 10 cost drivers this week",
				"SELECT resource_id, SUM(unblended_cost) AS cost FROM cur.line_items WHERE usage_date >= current_date - interval '7' day GROUP BY resource_id ORDER BY cost DESC LIMIT 10",
				[]string{"spend", "weekly"}, false),
		}
		data.SQLLab.QueryHistory = []HistoryEntry{starterHistory(now)}
		data.AIChat.Conversations = []Conversation{welcomeConversation(now)}
	}

	return data
}

// starterQuery builds one seeded saved query.
func starterQuery(userID string, now time.Time, name, query string, tags []string, public bool) SavedQuery {
	return SavedQuery{
		ID:        "query_" + uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Query:     query,
		Tags:      tags,
		IsPublic:  public,
		CreatedAt: now,
	}
}

// starterHistory builds the single seeded history entry.
func starterHistory(now time.Time) HistoryEntry {
	return HistoryEntry{
		ID:         "hist_" + uuid.NewString(),
		Query:      "SELECT service, SUM(unblended_cost) FROM cur.line_items GROUP BY service",
		Engine:     "athena",
		Status:     "succeeded",
		ExecutedAt: now,
		DurationMS: 1840,
		RowCount:   27,
	}
}

// welcomeConversation builds the seeded AI chat thread.
func welcomeConversation(now time.Time) Conversation {
	return Conversation{
		ID:        "conv_" + uuid.NewString(),
		Title:     "Getting started",
		CreatedAt: now,
		UpdatedAt: now,
		Messages: []ChatMessage{
			{
				ID:        "msg_" + uuid.NewString(),
				Role:      "assistant",
				Content:   "Hi! Ask me about your cloud spend and I can draft SQL queries against your cost and usage data.",
				Timestamp: now,
			},
		},
	}
}
