// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// healthTimeout is the fixed deadline for health probes, independent of
// the configured request timeout.
const healthTimeout = 5 * time.Second

// HealthStatus describes the outcome of a backend health probe.
type HealthStatus struct {
	IsHealthy bool `json:"isHealthy"`

	// Status is "healthy", "unhealthy (<code>)", or "unreachable".
	Status string `json:"status"`

	// ResponseTimeMS is the measured round-trip time for reachable
	// backends.
	ResponseTimeMS int64 `json:"responseTimeMs,omitempty"`

	// Version is the backend version, when the health body reports one.
	Version string `json:"version,omitempty"`

	// Error carries the failure detail for unreachable backends.
	Error string `json:"error,omitempty"`
}

// healthBody is the shape of the backend's health response.
type healthBody struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// CheckHealth probes {BaseURL}/health with a short fixed timeout and no
// retries. It never returns an error: every outcome, including an
// unreachable host, is folded into the returned status.
func (c *Client) CheckHealth(ctx context.Context) HealthStatus {
	probeCtx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.cfg.HealthURL(), nil)
	if err != nil {
		return HealthStatus{IsHealthy: false, Status: "unreachable", Error: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		c.logf("health probe failed: %v", err)
		return HealthStatus{IsHealthy: false, Status: "unreachable", Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return HealthStatus{
			IsHealthy:      false,
			Status:         fmt.Sprintf("unhealthy (%d)", resp.StatusCode),
			ResponseTimeMS: elapsed.Milliseconds(),
		}
	}

	status := HealthStatus{
		IsHealthy:      true,
		Status:         "healthy",
		ResponseTimeMS: elapsed.Milliseconds(),
	}

	// Version is best effort; an unparsable body is still healthy.
	if data, err := readResponse(resp); err == nil {
		var body healthBody
		if json.Unmarshal(data, &body) == nil {
			status.Version = body.Version
		}
	}

	return status
}
