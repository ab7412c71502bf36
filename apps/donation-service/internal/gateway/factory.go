package gateway

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/resolver"
	"github.com/prohmpiriya/donation-rush/pkg/config"
)

// GatewayType represents the type of payment gateway
type GatewayType string

const (
	GatewayTypeDemo    GatewayType = "demo"
	GatewayTypeRushPay GatewayType = "rushpay"
	GatewayTypeSyncPay GatewayType = "syncpay"
)

// DefaultEndpoints returns the base URLs and auth methods tried for a provider
// when the configuration does not override them
func DefaultEndpoints(gatewayType GatewayType, sandbox bool) ([]string, []string) {
	switch gatewayType {
	case GatewayTypeRushPay:
		return []string{RushPayBaseURL}, []string{resolver.MethodStaticKey}
	case GatewayTypeSyncPay:
		if sandbox {
			return SyncPaySandboxURLs, SyncPayAuthMethods
		}
		return SyncPayProductionURLs, SyncPayAuthMethods
	default:
		return nil, nil
	}
}

// NewPaymentGateway creates a payment gateway based on the configured provider
func NewPaymentGateway(cfg *config.GatewayConfig, demo *DemoGateway, client *http.Client) (PaymentGateway, error) {
	if cfg == nil {
		return nil, fmt.Errorf("gateway config is required")
	}
	if demo == nil {
		demo = NewDemoGateway(nil)
	}

	gatewayType := GatewayType(strings.ToLower(cfg.Provider))
	if gatewayType == GatewayTypeDemo || gatewayType == "" {
		return demo, nil
	}

	r, err := NewResolver(cfg, client)
	if err != nil {
		return nil, err
	}

	switch gatewayType {
	case GatewayTypeRushPay:
		if cfg.SecretKey == "" {
			return nil, fmt.Errorf("rushpay secret key is required")
		}
		return NewRushPayGateway(&RushPayGatewayConfig{
			RequestTimeout:     cfg.RequestTimeout,
			MinimumAmountMinor: cfg.MinimumAmountMinor,
			PostbackURL:        cfg.PostbackURL,
			HTTPClient:         client,
		}, r, demo), nil

	case GatewayTypeSyncPay:
		if cfg.ClientID == "" || cfg.ClientSecret == "" {
			return nil, fmt.Errorf("syncpay client id and secret are required")
		}
		return NewSyncPayGateway(&SyncPayGatewayConfig{
			RequestTimeout: cfg.RequestTimeout,
			PostbackURL:    cfg.PostbackURL,
			HTTPClient:     client,
		}, r, demo), nil

	default:
		return nil, fmt.Errorf("unsupported gateway type: %s", cfg.Provider)
	}
}

// NewResolver builds the endpoint resolver for the configured provider
func NewResolver(cfg *config.GatewayConfig, client *http.Client) (*resolver.Resolver, error) {
	gatewayType := GatewayType(strings.ToLower(cfg.Provider))
	urls, methods := DefaultEndpoints(gatewayType, cfg.Sandbox)
	if len(cfg.BaseURLs) > 0 {
		urls = cfg.BaseURLs
	}
	if len(cfg.AuthMethods) > 0 {
		methods = cfg.AuthMethods
	}

	candidates, err := resolver.Candidates(urls, methods)
	if err != nil {
		return nil, fmt.Errorf("invalid gateway endpoints: %w", err)
	}

	return resolver.New(&resolver.Config{
		Provider:   string(gatewayType),
		Candidates: candidates,
		Keys: resolver.Keys{
			SecretKey:    cfg.SecretKey,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
		},
		ProbeTimeout: cfg.ProbeTimeout,
		HTTPClient:   client,
	}), nil
}
