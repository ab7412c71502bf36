package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"github.com/prohmpiriya/donation-rush/pkg/redis"
	"github.com/prohmpiriya/donation-rush/pkg/response"
)

const (
	IdempotencyKeyHeader = "X-Idempotency-Key"
	// ScopeHeader identifies the browser or client session a request
	// belongs to
	ScopeHeader = "X-Session-ID"
	// ReplayedHeader marks a response served from the idempotency record
	ReplayedHeader = "Idempotent-Replayed"

	idempotencyPrefix = "donation:idempotency:"
)

type recordState string

const (
	stateProcessing recordState = "processing"
	stateDone       recordState = "done"
)

// idempotencyRecord is the Redis value kept per scope and key
type idempotencyRecord struct {
	State       recordState `json:"state"`
	Fingerprint string      `json:"fingerprint"`
	Status      int         `json:"status,omitempty"`
	Body        []byte      `json:"body,omitempty"`
	StartedAt   time.Time   `json:"started_at"`
}

// RedisClient is the subset of Redis commands the middleware needs
type RedisClient interface {
	redis.Commander
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.BoolCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// IdempotencyConfig configures Idempotency
type IdempotencyConfig struct {
	Redis RedisClient
	// TTL keeps finished responses for replay
	TTL time.Duration
	// ProcessingTTL bounds how long an in-flight request blocks duplicates
	ProcessingTTL time.Duration
}

func DefaultIdempotencyConfig(rdb RedisClient) *IdempotencyConfig {
	return &IdempotencyConfig{
		Redis:         rdb,
		TTL:           10 * time.Minute,
		ProcessingTTL: time.Minute,
	}
}

// Idempotency replays the first response for a repeated X-Idempotency-Key
// within one scope, so a double-clicked donate button creates a single
// transaction. Requests without a key, or without Redis, pass through.
// Redis failures fail open.
func Idempotency(config *IdempotencyConfig) gin.HandlerFunc {
	if config.TTL <= 0 {
		config.TTL = 10 * time.Minute
	}
	if config.ProcessingTTL <= 0 {
		config.ProcessingTTL = time.Minute
	}

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" || config.Redis == nil {
			c.Next()
			return
		}

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}
		fingerprint := fingerprint(c, body)
		redisKey := idempotencyPrefix + c.GetHeader(ScopeHeader) + ":" + key
		ctx := c.Request.Context()

		var existing idempotencyRecord
		found, err := redis.GetJSON(ctx, config.Redis, redisKey, &existing)
		if err != nil {
			c.Next()
			return
		}
		if found {
			replay(c, &existing, fingerprint)
			return
		}

		record := &idempotencyRecord{State: stateProcessing, Fingerprint: fingerprint, StartedAt: time.Now().UTC()}
		if !claim(ctx, config.Redis, redisKey, record, config.ProcessingTTL) {
			if found, _ := redis.GetJSON(ctx, config.Redis, redisKey, &existing); found {
				replay(c, &existing, fingerprint)
				return
			}
		}

		rw := &capturingWriter{ResponseWriter: c.Writer, status: http.StatusOK}
		c.Writer = rw
		c.Next()

		// a 5xx is not remembered so the client may retry with the same key
		if rw.status >= http.StatusInternalServerError {
			_ = config.Redis.Del(ctx, redisKey).Err()
			return
		}

		record.State = stateDone
		record.Status = rw.status
		record.Body = rw.body.Bytes()
		_ = redis.SetJSON(ctx, config.Redis, redisKey, record, config.TTL)
	}
}

func replay(c *gin.Context, record *idempotencyRecord, fingerprint string) {
	switch {
	case record.Fingerprint != fingerprint:
		response.Abort(c, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED", "idempotency key already used with a different request")
	case record.State == stateProcessing:
		response.Abort(c, http.StatusConflict, "REQUEST_IN_PROGRESS", "a request with this idempotency key is still running")
	default:
		c.Header(ReplayedHeader, "true")
		c.Data(record.Status, "application/json; charset=utf-8", record.Body)
		c.Abort()
	}
}

func claim(ctx context.Context, r RedisClient, key string, record *idempotencyRecord, ttl time.Duration) bool {
	data, err := json.Marshal(record)
	if err != nil {
		return false
	}
	ok, err := r.SetNX(ctx, key, data, ttl).Result()
	return err == nil && ok
}

func fingerprint(c *gin.Context, body []byte) string {
	h := sha256.New()
	h.Write([]byte(c.Request.Method))
	h.Write([]byte(c.Request.URL.Path))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type capturingWriter struct {
	gin.ResponseWriter
	body   bytes.Buffer
	status int
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
