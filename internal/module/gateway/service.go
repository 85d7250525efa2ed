package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/GuiSantosdev/clivus-dev-sub000/internal/module/checkout/provider"
	apperrors "github.com/GuiSantosdev/clivus-dev-sub000/internal/shared/errors"
	"go.uber.org/zap"
)

// Service implements credential management and connection testing for
// the configured payment gateways.
type Service struct {
	repo            Repository
	registry        *provider.Registry
	providerTimeout time.Duration
	logger          *zap.Logger
}

// NewService creates a new gateway service.
func NewService(repo Repository, registry *provider.Registry, providerTimeout time.Duration, logger *zap.Logger) *Service {
	if providerTimeout == 0 {
		providerTimeout = 15 * time.Second
	}
	return &Service{
		repo:            repo,
		registry:        registry,
		providerTimeout: providerTimeout,
		logger:          logger,
	}
}

// Seed creates a config row for every registered adapter that does not
// have one yet. Rows start disabled, in sandbox, untested.
func (s *Service) Seed(ctx context.Context) error {
	for _, adapter := range s.registry.All() {
		_, err := s.repo.GetByName(ctx, adapter.Name())
		if err == nil {
			continue
		}
		if err != ErrGatewayNotFound {
			return err
		}

		cfg := &GatewayConfig{
			Name:                  adapter.Name(),
			DisplayName:           adapter.DisplayName(),
			IsEnabled:             false,
			ActiveEnvironment:     provider.EnvSandbox,
			SandboxCredentials:    CredentialMap{},
			ProductionCredentials: CredentialMap{},
			ConnectionStatus:      ConnectionUntested,
		}
		if err := s.repo.Create(ctx, cfg); err != nil {
			return err
		}
		s.logger.Info("seeded gateway config", zap.String("provider", adapter.Name()))
	}
	return nil
}

// Get returns the configuration for a known provider.
func (s *Service) Get(ctx context.Context, name string) (*GatewayConfig, error) {
	if _, err := s.registry.Get(name); err != nil {
		return nil, err
	}
	return s.repo.GetByName(ctx, name)
}

// List returns all gateway configurations.
func (s *Service) List(ctx context.Context) ([]*GatewayConfig, error) {
	return s.repo.List(ctx)
}

// UpdateRequest carries a partial gateway update. Credential maps are
// merged key by key: provided keys overwrite, an empty value clears the
// key, unspecified keys are preserved.
type UpdateRequest struct {
	IsEnabled         *bool                 `json:"isEnabled,omitempty"`
	Environment       *provider.Environment `json:"environment,omitempty"`
	SandboxConfig     map[string]string     `json:"sandboxConfig,omitempty"`
	ProductionConfig  map[string]string     `json:"productionConfig,omitempty"`
	SandboxWebhook    *string               `json:"sandboxWebhook,omitempty"`
	ProductionWebhook *string               `json:"productionWebhook,omitempty"`
}

// Upsert applies a partial update to a provider's configuration.
func (s *Service) Upsert(ctx context.Context, name string, req *UpdateRequest) (*GatewayConfig, error) {
	cfg, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	if req.Environment != nil {
		if !req.Environment.Valid() {
			return nil, apperrors.Validation("environment must be sandbox or production")
		}
		cfg.ActiveEnvironment = *req.Environment
	}
	if req.IsEnabled != nil {
		cfg.IsEnabled = *req.IsEnabled
	}
	if req.SandboxWebhook != nil {
		cfg.SandboxWebhookSecret = *req.SandboxWebhook
	}
	if req.ProductionWebhook != nil {
		cfg.ProductionWebhookSecret = *req.ProductionWebhook
	}

	cfg.SandboxCredentials = mergeCredentials(cfg.SandboxCredentials, req.SandboxConfig)
	cfg.ProductionCredentials = mergeCredentials(cfg.ProductionCredentials, req.ProductionConfig)

	if err := s.repo.Save(ctx, cfg); err != nil {
		return nil, err
	}

	s.logger.Info("gateway config updated",
		zap.String("provider", name),
		zap.Bool("enabled", cfg.IsEnabled),
		zap.String("environment", string(cfg.ActiveEnvironment)),
	)
	return cfg, nil
}

// SetEnabled flips only the enabled flag.
func (s *Service) SetEnabled(ctx context.Context, name string, enabled bool) (*GatewayConfig, error) {
	return s.Upsert(ctx, name, &UpdateRequest{IsEnabled: &enabled})
}

// TestConnection loads the requested bundle, runs the adapter's
// read-only probe and writes the outcome back onto the config. The
// enabled flag is never touched here. The probe is read-only, so a
// single bounded retry on transport failure is safe.
func (s *Service) TestConnection(ctx context.Context, name string, env provider.Environment) (*provider.ConnectionTestResult, error) {
	adapter, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}
	if !env.Valid() {
		return nil, apperrors.Validation("environment must be sandbox or production")
	}

	cfg, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	creds := cfg.CredentialsFor(env)
	var result *provider.ConnectionTestResult

	if missing := missingFields(creds, adapter.RequiredFields()); len(missing) > 0 {
		result = &provider.ConnectionTestResult{
			Success:           false,
			Message:           "missing credential fields: " + strings.Join(missing, ", "),
			TestedEnvironment: env,
		}
	} else {
		result = s.probe(ctx, adapter, env, creds)
	}

	if err := s.RecordConnectionTest(ctx, name, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) probe(ctx context.Context, adapter provider.Adapter, env provider.Environment, creds provider.Credentials) *provider.ConnectionTestResult {
	for attempt := 0; attempt < 2; attempt++ {
		probeCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
		result, err := adapter.VerifyCredentials(probeCtx, env, creds)
		cancel()

		if err == nil || result == nil {
			if result == nil {
				result = &provider.ConnectionTestResult{
					Success:           false,
					Message:           fmt.Sprintf("probe failed: %v", err),
					TestedEnvironment: env,
				}
			}
			return result
		}

		// A definitive rejection is final; only transport failures are
		// worth the one retry.
		if !result.Success && result.Message != "" && attempt == 0 {
			s.logger.Warn("credential probe failed, retrying once",
				zap.String("provider", adapter.Name()),
				zap.String("environment", string(env)),
				zap.Error(err),
			)
			continue
		}
		return result
	}
	return &provider.ConnectionTestResult{
		Success:           false,
		Message:           "probe failed",
		TestedEnvironment: env,
	}
}

// RecordConnectionTest persists a test outcome onto the config row.
func (s *Service) RecordConnectionTest(ctx context.Context, name string, result *provider.ConnectionTestResult) error {
	cfg, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return err
	}

	now := time.Now()
	cfg.LastConnectionTestAt = &now
	if result.Success {
		cfg.ConnectionStatus = ConnectionSuccess
		cfg.ConnectionError = ""
	} else {
		cfg.ConnectionStatus = ConnectionFailed
		cfg.ConnectionError = result.Message
	}

	return s.repo.Save(ctx, cfg)
}

func mergeCredentials(current CredentialMap, patch map[string]string) CredentialMap {
	if current == nil {
		current = CredentialMap{}
	}
	for k, v := range patch {
		if v == "" {
			delete(current, k)
			continue
		}
		current[k] = v
	}
	return current
}

func missingFields(creds provider.Credentials, required []string) []string {
	var missing []string
	for _, field := range required {
		if creds.Get(field) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}
