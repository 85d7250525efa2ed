package checkout

import (
	"context"

	"github.com/GuiSantosdev/clivus-dev-sub000/internal/module/checkout/provider"
	"github.com/GuiSantosdev/clivus-dev-sub000/internal/module/gateway"
	apperrors "github.com/GuiSantosdev/clivus-dev-sub000/internal/shared/errors"
)

// Selector picks the provider that handles a checkout. Eligibility is
// recomputed per request from live configuration: a gateway the admin
// just disabled drops out immediately.
type Selector struct {
	store    GatewayStore
	registry *provider.Registry
}

// NewSelector creates a new gateway selector.
func NewSelector(store GatewayStore, registry *provider.Registry) *Selector {
	return &Selector{store: store, registry: registry}
}

// Selection pairs the chosen adapter with its live configuration.
type Selection struct {
	Adapter provider.Adapter
	Config  *gateway.GatewayConfig
}

// eligible reports whether the config can serve the method right now:
// enabled, fully credentialed for its active environment, and the
// adapter supports the method. Connection status is advisory only and
// never gates selection.
func (s *Selector) eligible(cfg *gateway.GatewayConfig, adapter provider.Adapter, method provider.Method) bool {
	if !cfg.IsEnabled {
		return false
	}
	if !provider.Supports(adapter, method) {
		return false
	}
	return cfg.ActiveCredentials().HasAll(adapter.RequiredFields())
}

// Select returns the highest-priority eligible provider for the method.
// Registration order is the priority order. A non-empty preferred name
// restricts the choice to that provider; a preference that exists but
// is not eligible yields the same no-gateway outcome as an empty pool.
func (s *Selector) Select(ctx context.Context, method provider.Method, preferred string) (*Selection, error) {
	configs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*gateway.GatewayConfig, len(configs))
	for _, cfg := range configs {
		byName[cfg.Name] = cfg
	}

	if preferred != "" {
		adapter, err := s.registry.Get(preferred)
		if err != nil {
			return nil, err
		}
		cfg, ok := byName[preferred]
		if !ok || !s.eligible(cfg, adapter, method) {
			return nil, apperrors.NoGatewayAvailable(string(method))
		}
		return &Selection{Adapter: adapter, Config: cfg}, nil
	}

	for _, adapter := range s.registry.All() {
		cfg, ok := byName[adapter.Name()]
		if !ok {
			continue
		}
		if s.eligible(cfg, adapter, method) {
			return &Selection{Adapter: adapter, Config: cfg}, nil
		}
	}
	return nil, apperrors.NoGatewayAvailable(string(method))
}
