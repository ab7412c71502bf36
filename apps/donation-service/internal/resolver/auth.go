package resolver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"
)

const (
	MethodStaticKey     = "static_key"
	MethodOAuth2Basic   = "oauth2_basic"
	MethodClientHeaders = "client_headers"
	MethodBasicToken    = "basic_token"

	defaultTokenTTL = 3600 * time.Second
	maxAuthBody     = 64 << 10
)

var (
	ErrUnknownAuthMethod    = errors.New("unknown auth method")
	ErrUnparsableCredential = errors.New("credential payload has no token")
)

// CredentialStyle is where the configured keys go on the exchange request
type CredentialStyle int

const (
	// StyleStaticKey sends the secret key as the raw Authorization header
	StyleStaticKey CredentialStyle = iota
	// StyleBasic sends Authorization: Basic base64(clientID:clientSecret)
	StyleBasic
	// StyleClientHeaders sends Client-ID and Client-Secret headers
	StyleClientHeaders
)

// Keys are the provider credentials the exchanges draw from
type Keys struct {
	SecretKey    string
	ClientID     string
	ClientSecret string
}

// AuthMethod describes one authentication exchange as data
type AuthMethod struct {
	Name       string
	HTTPMethod string
	Path       string
	Style      CredentialStyle
	Body       map[string]string

	// ProbeOnly exchanges only prove reachability; the credential is the secret key itself
	ProbeOnly bool
	// ReachableStatuses are non-2xx codes that still count as a reachable endpoint
	ReachableStatuses []int
}

var registry = map[string]AuthMethod{
	MethodStaticKey: {
		Name:              MethodStaticKey,
		HTTPMethod:        http.MethodGet,
		Path:              "/transaction.getPayment?id=probe",
		Style:             StyleStaticKey,
		ProbeOnly:         true,
		ReachableStatuses: []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	},
	MethodOAuth2Basic: {
		Name:       MethodOAuth2Basic,
		HTTPMethod: http.MethodPost,
		Path:       "/v1/auth/token",
		Style:      StyleBasic,
		Body:       map[string]string{"grant_type": "client_credentials"},
	},
	MethodClientHeaders: {
		Name:       MethodClientHeaders,
		HTTPMethod: http.MethodPost,
		Path:       "/api/auth",
		Style:      StyleClientHeaders,
		Body:       map[string]string{},
	},
	MethodBasicToken: {
		Name:       MethodBasicToken,
		HTTPMethod: http.MethodPost,
		Path:       "/auth/token",
		Style:      StyleBasic,
		Body:       map[string]string{"grant_type": "client_credentials"},
	},
}

// Register adds or replaces an auth method
func Register(m AuthMethod) {
	registry[m.Name] = m
}

// Lookup returns the registered auth method by name
func Lookup(name string) (AuthMethod, bool) {
	m, ok := registry[name]
	return m, ok
}

// Credential is an issued token and its lifetime. TTL 0 never expires.
type Credential struct {
	Token    string        `json:"token"`
	IssuedAt time.Time     `json:"issued_at"`
	TTL      time.Duration `json:"ttl"`
	Mock     bool          `json:"mock"`
}

// Expired reports whether now is at or past IssuedAt+TTL
func (c *Credential) Expired(now time.Time) bool {
	if c == nil || c.Token == "" {
		return true
	}
	if c.TTL <= 0 {
		return false
	}
	return !now.Before(c.IssuedAt.Add(c.TTL))
}

// MockCredential is handed out when no candidate could authenticate
func MockCredential(now time.Time) Credential {
	return Credential{
		Token:    fmt.Sprintf("mock_token_%d", now.UnixMilli()),
		IssuedAt: now,
		TTL:      defaultTokenTTL,
		Mock:     true,
	}
}

type tokenPayload struct {
	AccessToken string `json:"access_token"`
	Token       string `json:"token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// StatusError is a non-accepted HTTP answer to an exchange
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("auth exchange returned %d: %s", e.StatusCode, e.Body)
}

// Exchange runs the method against baseURL and returns the issued credential
func (m AuthMethod) Exchange(ctx context.Context, client *http.Client, baseURL string, keys Keys, now time.Time) (Credential, error) {
	var body io.Reader
	if m.Body != nil {
		payload, err := json.Marshal(m.Body)
		if err != nil {
			return Credential{}, fmt.Errorf("failed to encode auth body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, m.HTTPMethod, strings.TrimRight(baseURL, "/")+m.Path, body)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	switch m.Style {
	case StyleStaticKey:
		req.Header.Set("Authorization", keys.SecretKey)
	case StyleBasic:
		basic := base64.StdEncoding.EncodeToString([]byte(keys.ClientID + ":" + keys.ClientSecret))
		req.Header.Set("Authorization", "Basic "+basic)
	case StyleClientHeaders:
		req.Header.Set("Client-ID", keys.ClientID)
		req.Header.Set("Client-Secret", keys.ClientSecret)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Credential{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxAuthBody))
	if err != nil {
		return Credential{}, fmt.Errorf("failed to read auth response: %w", err)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if m.ProbeOnly {
		if ok || slices.Contains(m.ReachableStatuses, resp.StatusCode) {
			return Credential{Token: keys.SecretKey, IssuedAt: now}, nil
		}
		return Credential{}, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 200)}
	}
	if !ok {
		return Credential{}, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 200)}
	}

	var payload tokenPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrUnparsableCredential, err)
	}
	token := payload.AccessToken
	if token == "" {
		token = payload.Token
	}
	if token == "" {
		return Credential{}, ErrUnparsableCredential
	}

	ttl := defaultTokenTTL
	if payload.ExpiresIn > 0 {
		ttl = time.Duration(payload.ExpiresIn) * time.Second
	}
	return Credential{Token: token, IssuedAt: now, TTL: ttl}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
