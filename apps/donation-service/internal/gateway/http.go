package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/prohmpiriya/donation-rush/pkg/logger"
	"github.com/prohmpiriya/donation-rush/pkg/telemetry"
)

const maxResponseBody = 1 << 20

// transport sends JSON requests and classifies provider answers
type transport struct {
	provider string
	client   *http.Client
}

func newTransport(provider string, client *http.Client, timeout time.Duration) *transport {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &transport{provider: provider, client: client}
}

type call struct {
	operation string
	method    string
	url       string
	headers   map[string]string
	body      interface{}
}

// do sends the call and decodes a 2xx body into out. It returns the raw body
// so callers can try alternative shapes.
func (t *transport) do(ctx context.Context, c call, out interface{}) ([]byte, error) {
	ctx, span := telemetry.StartSpan(ctx, "gateway."+t.provider+"."+c.operation,
		telemetry.AttrProvider.String(t.provider),
		telemetry.AttrOperation.String(c.operation),
		attribute.String("http.method", c.method),
	)
	defer span.End()

	var reader io.Reader
	if c.body != nil {
		payload, err := json.Marshal(c.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", c.operation, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, c.method, c.url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", c.operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		// caller gave up; not a provider failure and not worth retrying
		if isContextError(err) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		gerr := &Error{Kind: KindTransient, Provider: t.provider, Operation: c.operation, Err: err}
		telemetry.SetSpanError(span, gerr)
		logger.Get().Warn("Gateway request failed",
			zap.String("provider", t.provider),
			zap.String("operation", c.operation),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
		return nil, gerr
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		gerr := &Error{Kind: KindTransient, Provider: t.provider, Operation: c.operation, StatusCode: resp.StatusCode, Err: err}
		telemetry.SetSpanError(span, gerr)
		return nil, gerr
	}

	if gerr := t.classify(c.operation, resp.StatusCode, raw); gerr != nil {
		telemetry.SetSpanError(span, gerr)
		logger.Get().Warn("Gateway returned an error",
			zap.String("provider", t.provider),
			zap.String("operation", c.operation),
			zap.Int("status", resp.StatusCode),
			zap.String("kind", string(gerr.Kind)),
			zap.String("message", gerr.Message),
		)
		return raw, gerr
	}

	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			gerr := &Error{
				Kind:       KindTransient,
				Provider:   t.provider,
				Operation:  c.operation,
				StatusCode: resp.StatusCode,
				Message:    "unparsable response body",
				Err:        err,
			}
			telemetry.SetSpanError(span, gerr)
			return raw, gerr
		}
	}
	return raw, nil
}

// classify maps a status code to an error kind; nil for 2xx
func (t *transport) classify(operation string, status int, body []byte) *Error {
	if status >= 200 && status < 300 {
		return nil
	}

	gerr := &Error{
		Provider:   t.provider,
		Operation:  operation,
		StatusCode: status,
		Message:    providerMessage(body),
	}
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		gerr.Kind = KindRejected
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		gerr.Kind = KindAuthInvalid
	case status == http.StatusNotFound:
		gerr.Kind = KindNotFound
	case status >= 500 || status == http.StatusTooManyRequests || status == http.StatusRequestTimeout:
		gerr.Kind = KindTransient
	default:
		gerr.Kind = KindRejected
	}
	return gerr
}

// providerMessage pulls the human message out of an error body.
// Non-JSON bodies are returned as-is.
func providerMessage(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}

	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
		Errors  json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return string(trimmed)
	}
	if payload.Message != "" {
		return payload.Message
	}
	for _, raw := range []json.RawMessage{payload.Error, payload.Errors} {
		if len(raw) == 0 {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
		return string(raw)
	}
	return string(trimmed)
}

// flexAmount accepts a JSON number or numeric string
type flexAmount string

func (f *flexAmount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*f = flexAmount(strings.TrimSpace(str))
		return nil
	}
	*f = flexAmount(s)
	return nil
}

// Int64 reads the value as a whole number of minor units
func (f flexAmount) Int64() int64 {
	if f == "" {
		return 0
	}
	if n, err := strconv.ParseInt(string(f), 10, 64); err == nil {
		return n
	}
	if v, err := strconv.ParseFloat(string(f), 64); err == nil {
		return int64(v + 0.5)
	}
	return 0
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime accepts the timestamp formats providers answer with
func parseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
