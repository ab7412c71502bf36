package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgmiddleware "github.com/prohmpiriya/donation-rush/pkg/middleware"
)

// apiClient calls the donation service HTTP API
type apiClient struct {
	baseURL string
	scope   string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL, scope string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		scope:   scope,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// apiError is a non-2xx reply
type apiError struct {
	StatusCode int
	Message    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.scope != "" {
		req.Header.Set(pkgmiddleware.ScopeHeader, c.scope)
	}
	if method == http.MethodPost {
		req.Header.Set(pkgmiddleware.IdempotencyKeyHeader, uuid.New().String())
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return raw, &apiError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return raw, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return raw, nil
}

// errorMessage reads either the flat {"error": "..."} reply or the
// {"error": {"message": "..."}} envelope
func errorMessage(raw []byte) string {
	var flat struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &flat) == nil && flat.Error != "" {
		return flat.Error
	}
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return strings.TrimSpace(string(raw))
}
