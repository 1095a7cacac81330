// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package apiclient

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ErrorKind classifies a normalized request failure.
type ErrorKind string

const (
	// KindValidation is a caller error (e.g. empty endpoint). Never retried.
	KindValidation ErrorKind = "validation"

	// KindTimeout is a per-attempt deadline expiry. Retryable.
	KindTimeout ErrorKind = "timeout"

	// KindNetwork is a transport failure before any HTTP status. Retryable.
	KindNetwork ErrorKind = "network"

	// KindHTTP is a non-2xx response. Retryable only for 429 and 5xx.
	KindHTTP ErrorKind = "http"

	// KindDecode is a malformed success body. Never retried: a broken
	// payload will not become well-formed on a second attempt.
	KindDecode ErrorKind = "decode"
)

// StatusTimeout is the status code attached to timeout errors.
const StatusTimeout = 408

// networkErrorMessage is the fixed diagnostic for transport failures.
const networkErrorMessage = "Network error - please check your connection"

// APIError is the single error shape every request failure converges to.
// No raw transport error escapes the client.
type APIError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`

	// Status is the HTTP status code, 408 for timeouts, 0 for network
	// failures and validation errors.
	Status int `json:"status,omitempty"`

	// Endpoint and Method identify the failed call.
	Endpoint string `json:"endpoint"`
	Method   string `json:"method"`

	// RetryAttempts is the retry budget that applied to the call.
	RetryAttempts int `json:"retryAttempts"`
}

// Error returns the human-readable message. UI layers surface this string
// directly, so it leads with the backend-provided message.
func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
	}
	return e.Message
}

// Is reports whether target matches this error's kind. It lets callers
// write errors.Is(err, &APIError{Kind: KindTimeout}).
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}

// retryable reports whether the failure may succeed on a later attempt.
func (e *APIError) retryable() bool {
	switch e.Kind {
	case KindTimeout, KindNetwork:
		return true
	case KindHTTP:
		// 4xx is terminal except for rate limiting.
		if e.Status == 429 {
			return true
		}
		return e.Status >= 500
	default:
		return false
	}
}

// extractErrorMessage normalizes the heterogeneous error shapes the
// backend produces. Priority order:
//
//  1. structured "detail" object - its "error"/"message" field, except
//     when the detail also carries "suggestions" or "metadata", in which
//     case the ENTIRE detail object is re-serialized as the message so
//     the UI can recover the structure by parsing it back out
//  2. string "detail"
//  3. "message"
//  4. "error"
//  5. raw response text
//  6. generic "API Error: <status> <statusText>"
func extractErrorMessage(body []byte, status int, statusText string) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil && payload != nil {
		switch detail := payload["detail"].(type) {
		case map[string]any:
			_, hasSuggestions := detail["suggestions"]
			_, hasMetadata := detail["metadata"]
			if hasSuggestions || hasMetadata {
				if raw, err := json.Marshal(detail); err == nil {
					return string(raw)
				}
			}
			if msg, ok := detail["error"].(string); ok && msg != "" {
				return msg
			}
			if msg, ok := detail["message"].(string); ok && msg != "" {
				return msg
			}
			if raw, err := json.Marshal(detail); err == nil {
				return string(raw)
			}
		case string:
			if detail != "" {
				return detail
			}
		}
		if msg, ok := payload["message"].(string); ok && msg != "" {
			return msg
		}
		if msg, ok := payload["error"].(string); ok && msg != "" {
			return msg
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return fmt.Sprintf("API Error: %d %s", status, statusText)
}
