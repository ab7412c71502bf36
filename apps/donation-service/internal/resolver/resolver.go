package resolver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/prohmpiriya/donation-rush/pkg/logger"
	"github.com/prohmpiriya/donation-rush/pkg/telemetry"
)

// Candidate is one base URL paired with one auth method
type Candidate struct {
	BaseURL    string `json:"base_url"`
	AuthMethod string `json:"auth_method"`
}

func (c Candidate) String() string {
	return c.AuthMethod + "@" + c.BaseURL
}

// Candidates expands base URLs and methods URL-major:
// every method is tried on the first URL before moving to the next.
func Candidates(baseURLs, methods []string) ([]Candidate, error) {
	out := make([]Candidate, 0, len(baseURLs)*len(methods))
	for _, u := range baseURLs {
		u = strings.TrimRight(strings.TrimSpace(u), "/")
		for _, m := range methods {
			if _, ok := Lookup(m); !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownAuthMethod, m)
			}
			out = append(out, Candidate{BaseURL: u, AuthMethod: m})
		}
	}
	return out, nil
}

// Resolution is the endpoint and credential gateway calls should use
type Resolution struct {
	Candidate  Candidate  `json:"candidate"`
	Credential Credential `json:"credential"`
	DemoMode   bool       `json:"demo_mode"`
}

// Config holds resolver settings
type Config struct {
	Provider     string
	Candidates   []Candidate
	Keys         Keys
	ProbeTimeout time.Duration
	HTTPClient   *http.Client
	Now          func() time.Time
}

// Resolver finds the first working candidate and caches it with its credential
type Resolver struct {
	// resolving admits one probe sweep at a time; mu guards the cache
	resolving  *semaphore.Weighted
	mu         sync.Mutex
	provider   string
	candidates []Candidate
	keys       Keys
	timeout    time.Duration
	client     *http.Client
	now        func() time.Time

	sticky  *Candidate
	current *Resolution
}

// New creates a resolver. Nothing is probed until the first Resolve.
func New(cfg *Config) *Resolver {
	r := &Resolver{
		resolving:  semaphore.NewWeighted(1),
		provider:   cfg.Provider,
		candidates: cfg.Candidates,
		keys:       cfg.Keys,
		timeout:    cfg.ProbeTimeout,
		client:     cfg.HTTPClient,
		now:        cfg.Now,
	}
	if r.timeout <= 0 {
		r.timeout = 15 * time.Second
	}
	if r.client == nil {
		r.client = &http.Client{}
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Resolve returns the cached resolution, re-resolving only when the
// credential is absent or expired. When every candidate fails it returns a
// demo-mode resolution with a mock credential instead of an error.
// A caller waiting behind another caller's sweep gives up when its own
// context is done.
func (r *Resolver) Resolve(ctx context.Context) (Resolution, error) {
	if res, ok := r.fresh(r.now()); ok {
		return res, nil
	}

	if err := r.resolving.Acquire(ctx, 1); err != nil {
		return Resolution{}, err
	}
	defer r.resolving.Release(1)

	// another caller may have resolved while this one waited
	now := r.now()
	if res, ok := r.fresh(now); ok {
		return res, nil
	}

	ctx, span := telemetry.StartSpan(ctx, "resolver.resolve", telemetry.AttrProvider.String(r.provider))
	defer span.End()

	r.mu.Lock()
	order := r.order()
	r.mu.Unlock()

	winner, cred, err := TryInOrder(ctx, order, func(ctx context.Context, c Candidate) (Credential, error) {
		return r.attempt(ctx, c, now)
	})
	if err != nil {
		if ctx.Err() != nil {
			telemetry.SetSpanError(span, ctx.Err())
			return Resolution{}, ctx.Err()
		}
		logger.Get().Warn("All gateway candidates failed, falling back to demo mode",
			zap.String("provider", r.provider),
			zap.Int("candidates", len(r.candidates)),
			zap.Error(err),
		)
		res := Resolution{Credential: MockCredential(now), DemoMode: true}
		r.mu.Lock()
		r.current = &res
		r.mu.Unlock()
		span.SetAttributes(telemetry.AttrDemoMode.Bool(true))
		return res, nil
	}

	res := Resolution{Candidate: winner, Credential: cred}
	r.mu.Lock()
	r.sticky = &winner
	r.current = &res
	r.mu.Unlock()
	span.SetAttributes(
		telemetry.AttrBaseURL.String(winner.BaseURL),
		telemetry.AttrAuthMethod.String(winner.AuthMethod),
	)
	logger.Get().Info("Gateway candidate resolved",
		zap.String("provider", r.provider),
		zap.String("base_url", winner.BaseURL),
		zap.String("auth_method", winner.AuthMethod),
	)
	return res, nil
}

func (r *Resolver) fresh(now time.Time) (Resolution, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil || r.current.Credential.Expired(now) {
		return Resolution{}, false
	}
	return *r.current, true
}

// Invalidate drops the cached credential. The sticky candidate is kept and
// tried first on the next Resolve.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = nil
}

// Current returns the cached resolution without probing
func (r *Resolver) Current() (Resolution, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return Resolution{}, false
	}
	return *r.current, true
}

// ProbeResult is the outcome of one candidate during a diagnostic sweep
type ProbeResult struct {
	Candidate Candidate     `json:"candidate"`
	Reachable bool          `json:"reachable"`
	Latency   time.Duration `json:"latency"`
	Error     string        `json:"error,omitempty"`
}

// Probe attempts every candidate without touching the cache
func (r *Resolver) Probe(ctx context.Context) []ProbeResult {
	results := make([]ProbeResult, 0, len(r.candidates))
	for _, c := range r.candidates {
		start := time.Now()
		_, err := r.attempt(ctx, c, r.now())
		res := ProbeResult{Candidate: c, Reachable: err == nil, Latency: time.Since(start)}
		if err != nil {
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results
}

// order puts the sticky candidate first, followed by the rest in configured order
func (r *Resolver) order() []Candidate {
	if r.sticky == nil {
		return r.candidates
	}
	out := make([]Candidate, 0, len(r.candidates))
	out = append(out, *r.sticky)
	for _, c := range r.candidates {
		if c != *r.sticky {
			out = append(out, c)
		}
	}
	return out
}

func (r *Resolver) attempt(ctx context.Context, c Candidate, now time.Time) (Credential, error) {
	method, ok := Lookup(c.AuthMethod)
	if !ok {
		return Credential{}, fmt.Errorf("%w: %s", ErrUnknownAuthMethod, c.AuthMethod)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cred, err := method.Exchange(ctx, r.client, c.BaseURL, r.keys, now)
	if err != nil {
		logger.Get().Debug("Gateway candidate failed",
			zap.String("provider", r.provider),
			zap.String("base_url", c.BaseURL),
			zap.String("auth_method", c.AuthMethod),
			zap.Error(err),
		)
		return Credential{}, fmt.Errorf("%s: %w", c, err)
	}
	return cred, nil
}
