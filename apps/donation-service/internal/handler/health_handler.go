package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/gateway"
	"github.com/prohmpiriya/donation-rush/pkg/database"
	"github.com/prohmpiriya/donation-rush/pkg/redis"
)

const readyTimeout = 5 * time.Second

type dependency struct {
	name  string
	check func(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes
type HealthHandler struct {
	deps     []dependency
	provider string
}

// NewHealthHandler creates a new HealthHandler. Any dependency may be nil;
// the ledger and the session store then run in memory.
func NewHealthHandler(db *database.PostgresDB, rdb *redis.Client, gw gateway.PaymentGateway) *HealthHandler {
	h := &HealthHandler{}
	if db != nil {
		h.deps = append(h.deps, dependency{name: "database", check: db.HealthCheck})
	}
	if rdb != nil {
		h.deps = append(h.deps, dependency{name: "redis", check: rdb.HealthCheck})
	}
	if gw != nil {
		h.provider = gw.Name()
	}
	return h
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type ReadyResponse struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Provider   string            `json:"provider,omitempty"`
	Components map[string]string `json:"components"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready. Storage outages fail readiness; the payment
// provider never does, since an unreachable provider means demo mode.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	components := map[string]string{
		"database": "in-memory",
		"redis":    "in-memory",
	}
	healthy := true

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, dep := range h.deps {
		wg.Add(1)
		go func(dep dependency) {
			defer wg.Done()
			state := "healthy"
			if err := dep.check(ctx); err != nil {
				state = "unhealthy: " + err.Error()
			}
			mu.Lock()
			defer mu.Unlock()
			components[dep.name] = state
			if state != "healthy" {
				healthy = false
			}
		}(dep)
	}
	wg.Wait()

	resp := ReadyResponse{
		Status:     "ready",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Provider:   h.provider,
		Components: components,
	}
	status := http.StatusOK
	if !healthy {
		resp.Status = "not ready"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
