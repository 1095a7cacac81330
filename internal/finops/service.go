// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package finops exposes typed wrappers over the analytics backend's
// endpoints. The wrappers build versioned URLs from configuration and
// delegate transport, retry, and error normalization to apiclient.
package finops

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/techcorp/finops-go/internal/apiclient"
	"github.com/techcorp/finops-go/internal/config"
)

// AI query generation defaults sent in model_config.
const (
	defaultMaxTokens   = 2048
	defaultTemperature = 0.1
	defaultTopP        = 0.9
	defaultTopK        = 40
)

// Service is the endpoint surface of the analytics backend.
type Service struct {
	cfg    config.Config
	client *apiclient.Client
}

// NewService creates a Service over an existing request client.
func NewService(cfg config.Config, client *apiclient.Client) *Service {
	return &Service{cfg: cfg, client: client}
}

// =============================================================================
// QUERY EXECUTION
// =============================================================================

// queryRequest is the body for POST /finops/query.
type queryRequest struct {
	Query  string `json:"query"`
	Engine string `json:"engine"`
}

// ExecuteQuery runs a SQL query on the backend's configured engine and
// returns the raw result payload.
func (s *Service) ExecuteQuery(ctx context.Context, query, engine string) (json.RawMessage, error) {
	if engine == "" {
		engine = "athena"
	}
	return s.client.Request(ctx, s.cfg.APIURL()+"/finops/query", apiclient.RequestOptions{
		Method: http.MethodPost,
		Body:   queryRequest{Query: query, Engine: engine},
	})
}

// =============================================================================
// ANALYTICS READS
// =============================================================================

// GetKPIs fetches the headline cost KPIs.
func (s *Service) GetKPIs(ctx context.Context) (json.RawMessage, error) {
	return s.client.Request(ctx, s.cfg.APIURL()+"/finops/kpi", apiclient.RequestOptions{})
}

// GetOptimizations fetches cost optimization recommendations.
func (s *Service) GetOptimizations(ctx context.Context) (json.RawMessage, error) {
	return s.client.Request(ctx, s.cfg.APIURL()+"/finops/optimization", apiclient.RequestOptions{})
}

// GetSpendAnalytics fetches the spend analytics breakdown.
func (s *Service) GetSpendAnalytics(ctx context.Context) (json.RawMessage, error) {
	return s.client.Request(ctx, s.cfg.APIURL()+"/finops/spend-analytics", apiclient.RequestOptions{})
}

// =============================================================================
// AI QUERY GENERATION
// =============================================================================

// ModelConfig is the nested model_config object for query generation.
type ModelConfig struct {
	ModelID     string  `json:"model_id"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	TopK        int     `json:"top_k"`
}

// GenerateQueryRequest describes a natural-language query generation call.
type GenerateQueryRequest struct {
	// UserQuery is the natural-language question to turn into SQL.
	UserQuery string

	// IncludeExamples asks the backend to include few-shot examples.
	IncludeExamples bool

	// TargetTable narrows generation to one table when set.
	TargetTable string
}

// generateQueryBody is the wire shape for POST /finops/bedrock/generate-query.
type generateQueryBody struct {
	UserQuery       string      `json:"user_query"`
	ModelConfig     ModelConfig `json:"model_config"`
	IncludeExamples bool        `json:"include_examples"`
	TargetTable     string      `json:"target_table,omitempty"`
}

// GenerateQuery asks the backend's Bedrock integration to generate SQL
// from a natural-language question. Fails fast when AI is disabled by
// configuration.
func (s *Service) GenerateQuery(ctx context.Context, req GenerateQueryRequest) (json.RawMessage, error) {
	endpoint := s.cfg.APIURL() + "/finops/bedrock/generate-query"
	if !s.cfg.AIEnabled {
		return nil, &apiclient.APIError{
			Kind:     apiclient.KindValidation,
			Message:  "AI features are disabled by configuration",
			Endpoint: endpoint,
			Method:   http.MethodPost,
		}
	}

	body := generateQueryBody{
		UserQuery: req.UserQuery,
		ModelConfig: ModelConfig{
			ModelID:     s.cfg.ModelID,
			MaxTokens:   defaultMaxTokens,
			Temperature: defaultTemperature,
			TopP:        defaultTopP,
			TopK:        defaultTopK,
		},
		IncludeExamples: req.IncludeExamples,
		TargetTable:     req.TargetTable,
	}

	return s.client.Request(ctx, endpoint, apiclient.RequestOptions{
		Method: http.MethodPost,
		Body:   body,
	})
}

// =============================================================================
// DECODING
// =============================================================================

// Decode unmarshals a backend payload into v, normalizing failures to the
// client's error shape so UI code handles exactly one error type.
func Decode(data json.RawMessage, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &apiclient.APIError{
			Kind:    apiclient.KindDecode,
			Message: fmt.Sprintf("failed to decode backend response: %v", err),
		}
	}
	return nil
}
