package checkout

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/GuiSantosdev/clivus-dev-sub000/internal/module/checkout/provider"
	"github.com/GuiSantosdev/clivus-dev-sub000/internal/module/gateway"
	"github.com/GuiSantosdev/clivus-dev-sub000/internal/utils/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// memRepo is an in-memory Repository with the same compare-and-set
// transition semantics as the database implementation.
type memRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*Payment
}

func newMemRepo() *memRepo {
	return &memRepo{payments: make(map[uuid.UUID]*Payment)}
}

func (r *memRepo) Create(ctx context.Context, p *Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *memRepo) Update(ctx context.Context, p *Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memRepo) GetByProviderTx(ctx context.Context, providerName, providerTxID string) (*Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.ProviderName == providerName && p.ProviderTransactionID == providerTxID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPaymentNotFound
}

func (r *memRepo) Transition(ctx context.Context, id uuid.UUID, to Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || p.Status != StatusPending {
		return ErrAlreadyTransitioned
	}
	p.Status = to
	if to == StatusCompleted {
		now := time.Now()
		p.CompletedAt = &now
	}
	return nil
}

func (r *memRepo) ListExpiredPending(ctx context.Context, olderThan time.Time) ([]*Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Payment
	for _, p := range r.payments {
		if p.Status == StatusPending && p.CreatedAt.Before(olderThan) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payments)
}

// memStore is an in-memory GatewayStore.
type memStore struct {
	mu      sync.Mutex
	configs map[string]*gateway.GatewayConfig
}

func newMemStore(configs ...*gateway.GatewayConfig) *memStore {
	s := &memStore{configs: make(map[string]*gateway.GatewayConfig)}
	for _, cfg := range configs {
		s.configs[cfg.Name] = cfg
	}
	return s
}

func (s *memStore) List(ctx context.Context) ([]*gateway.GatewayConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*gateway.GatewayConfig, 0, len(s.configs))
	for _, cfg := range s.configs {
		out = append(out, cfg)
	}
	return out, nil
}

func (s *memStore) Get(ctx context.Context, name string) (*gateway.GatewayConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[name]
	if !ok {
		return nil, gateway.ErrGatewayNotFound
	}
	return cfg, nil
}

// countingCatalog records activations.
type countingCatalog struct {
	mu          sync.Mutex
	activations int
	plans       map[string]*PlanInfo
}

func newCountingCatalog(plans ...*PlanInfo) *countingCatalog {
	c := &countingCatalog{plans: make(map[string]*PlanInfo)}
	for _, p := range plans {
		c.plans[p.Slug] = p
	}
	return c
}

func (c *countingCatalog) GetBySlug(ctx context.Context, slug string) (*PlanInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.plans[slug]
	if !ok {
		return nil, errors.New("plan not found")
	}
	return p, nil
}

func (c *countingCatalog) Activate(ctx context.Context, paymentID uuid.UUID, planSlug, orderRef string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activations++
	return nil
}

func (c *countingCatalog) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activations
}

// fakeAdapter is a configurable provider.Adapter.
type fakeAdapter struct {
	name     string
	methods  []provider.Method
	fields   []string
	charge   *provider.PixCharge
	hosted   *provider.HostedCheckout
	err      error
	sigValid bool
	event    *provider.PaymentEvent
	parseErr error
}

func (f *fakeAdapter) Name() string                        { return f.name }
func (f *fakeAdapter) DisplayName() string                 { return f.name }
func (f *fakeAdapter) SupportedMethods() []provider.Method { return f.methods }
func (f *fakeAdapter) RequiredFields() []string            { return f.fields }

func (f *fakeAdapter) CreatePixCharge(ctx context.Context, amount int64, orderRef string, env provider.Environment, creds provider.Credentials) (*provider.PixCharge, error) {
	return f.charge, f.err
}

func (f *fakeAdapter) CreateHostedCheckout(ctx context.Context, amount int64, orderRef string, method provider.Method, env provider.Environment, creds provider.Credentials) (*provider.HostedCheckout, error) {
	return f.hosted, f.err
}

func (f *fakeAdapter) VerifyCredentials(ctx context.Context, env provider.Environment, creds provider.Credentials) (*provider.ConnectionTestResult, error) {
	return &provider.ConnectionTestResult{Success: true, TestedEnvironment: env}, nil
}

func (f *fakeAdapter) VerifyWebhookSignature(rawBody []byte, headers http.Header, secret string) bool {
	return f.sigValid
}

func (f *fakeAdapter) ParseWebhookPayload(rawBody []byte) (*provider.PaymentEvent, error) {
	return f.event, f.parseErr
}

func enabledConfig(name string, creds map[string]string) *gateway.GatewayConfig {
	return &gateway.GatewayConfig{
		ID:                   uuid.New(),
		Name:                 name,
		DisplayName:          name,
		IsEnabled:            true,
		ActiveEnvironment:    provider.EnvSandbox,
		SandboxCredentials:   creds,
		SandboxWebhookSecret: "secret-" + name,
	}
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func testMetrics() *metrics.Metrics {
	return metrics.NewWith("clivus", prometheus.NewRegistry())
}
