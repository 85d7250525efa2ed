package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/GuiSantosdev/clivus-dev-sub000/internal/module/checkout/provider"
	apperrors "github.com/GuiSantosdev/clivus-dev-sub000/internal/shared/errors"
	"github.com/GuiSantosdev/clivus-dev-sub000/internal/utils/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service orchestrates checkouts: resolves the price, picks a provider,
// creates the charge and persists the Payment. It also serves the
// read-only status poll the checkout UI runs while waiting for the
// asynchronous confirmation.
type Service struct {
	repo     Repository
	selector *Selector
	machine  *StateMachine
	catalog  PlanCatalog
	guard    *provider.Guard
	metrics  *metrics.Metrics
	cfg      CheckoutOptions
	logger   *zap.Logger
}

// CheckoutOptions are the tunables of the checkout flow.
type CheckoutOptions struct {
	ProviderTimeout time.Duration
	PollInterval    time.Duration
	PollMaxAttempts int
}

// NewService creates a new checkout service.
func NewService(
	repo Repository,
	selector *Selector,
	machine *StateMachine,
	catalog PlanCatalog,
	guard *provider.Guard,
	m *metrics.Metrics,
	cfg CheckoutOptions,
	logger *zap.Logger,
) *Service {
	if cfg.ProviderTimeout == 0 {
		cfg.ProviderTimeout = 15 * time.Second
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 3 * time.Second
	}
	if cfg.PollMaxAttempts == 0 {
		cfg.PollMaxAttempts = 40
	}
	return &Service{
		repo:     repo,
		selector: selector,
		machine:  machine,
		catalog:  catalog,
		guard:    guard,
		metrics:  m,
		cfg:      cfg,
		logger:   logger,
	}
}

// resolveAmount turns a plan slug or raw amount into the amount to
// charge. Plan wins when both are present.
func (s *Service) resolveAmount(ctx context.Context, planSlug string, amount int64) (int64, string, error) {
	if planSlug != "" {
		if s.catalog == nil {
			return 0, "", apperrors.Validation("plans are not available")
		}
		plan, err := s.catalog.GetBySlug(ctx, planSlug)
		if err != nil {
			return 0, "", apperrors.Validation("unknown plan: " + planSlug)
		}
		return plan.PriceCents, plan.Slug, nil
	}
	if amount <= 0 {
		return 0, "", apperrors.Validation("amount must be positive")
	}
	return amount, "", nil
}

// StartPixCheckout creates a PIX charge on the selected provider.
// No Payment row exists until a provider has been chosen: a request
// that dies on selection leaves no trace.
func (s *Service) StartPixCheckout(ctx context.Context, req *PixCheckoutRequest) (*PixCheckoutResponse, error) {
	amount, planSlug, err := s.resolveAmount(ctx, req.Plan, req.Amount)
	if err != nil {
		return nil, err
	}

	sel, err := s.selector.Select(ctx, provider.MethodPix, req.Gateway)
	if err != nil {
		return nil, err
	}

	payment := &Payment{
		ID:           uuid.New(),
		OrderRef:     orderRefOrNew(req.OrderRef),
		PlanSlug:     planSlug,
		ProviderName: sel.Adapter.Name(),
		Environment:  sel.Config.ActiveEnvironment,
		Method:       provider.MethodPix,
		AmountCents:  amount,
		Currency:     "BRL",
		Status:       StatusPending,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, err
	}

	charge, err := s.createPixCharge(ctx, sel, amount, payment.OrderRef)
	if err != nil {
		s.failCheckout(ctx, payment, err)
		return nil, err
	}

	payment.ProviderTransactionID = charge.ProviderTransactionID
	payment.QRPayload = charge.QRPayload
	payment.CopyableCode = charge.CopyableCode
	payment.RawProviderPayload = charge.RawPayload
	if err := s.repo.Update(ctx, payment); err != nil {
		return nil, err
	}

	s.metrics.RecordCheckout(sel.Adapter.Name(), string(provider.MethodPix), "created")
	s.logger.Info("pix checkout created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("provider", sel.Adapter.Name()),
		zap.Int64("amount_cents", amount),
	)

	return &PixCheckoutResponse{
		PaymentID:  payment.ID.String(),
		QRCode:     charge.QRPayload,
		QRCodeText: charge.CopyableCode,
		Provider:   sel.Adapter.Name(),
	}, nil
}

// StartHostedCheckout creates a provider-hosted boleto or card checkout.
func (s *Service) StartHostedCheckout(ctx context.Context, req *HostedCheckoutRequest) (*HostedCheckoutResponse, error) {
	method := provider.Method(req.PaymentMethod)
	if !method.Valid() || method == provider.MethodPix {
		return nil, apperrors.Validation("paymentMethod must be boleto or card")
	}

	amount, planSlug, err := s.resolveAmount(ctx, req.Plan, req.Amount)
	if err != nil {
		return nil, err
	}

	sel, err := s.selector.Select(ctx, method, req.Gateway)
	if err != nil {
		return nil, err
	}

	payment := &Payment{
		ID:           uuid.New(),
		OrderRef:     orderRefOrNew(req.OrderRef),
		PlanSlug:     planSlug,
		ProviderName: sel.Adapter.Name(),
		Environment:  sel.Config.ActiveEnvironment,
		Method:       method,
		AmountCents:  amount,
		Currency:     "BRL",
		Status:       StatusPending,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, err
	}

	hosted, err := s.createHostedCheckout(ctx, sel, amount, payment.OrderRef, method)
	if err != nil {
		s.failCheckout(ctx, payment, err)
		return nil, err
	}

	payment.ProviderTransactionID = hosted.ProviderTransactionID
	payment.RedirectURL = hosted.RedirectURL
	payment.RawProviderPayload = hosted.RawPayload
	if err := s.repo.Update(ctx, payment); err != nil {
		return nil, err
	}

	s.metrics.RecordCheckout(sel.Adapter.Name(), string(method), "created")
	s.logger.Info("hosted checkout created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("provider", sel.Adapter.Name()),
		zap.String("method", string(method)),
		zap.Int64("amount_cents", amount),
	)

	return &HostedCheckoutResponse{
		PaymentID: payment.ID.String(),
		URL:       hosted.RedirectURL,
		Provider:  sel.Adapter.Name(),
	}, nil
}

func (s *Service) createPixCharge(ctx context.Context, sel *Selection, amount int64, orderRef string) (*provider.PixCharge, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.guard.Do(sel.Adapter.Name(), func() (any, error) {
		return sel.Adapter.CreatePixCharge(callCtx, amount, orderRef, sel.Config.ActiveEnvironment, sel.Config.ActiveCredentials())
	})
	s.metrics.RecordProviderCall(sel.Adapter.Name(), "create_pix_charge", time.Since(start))
	if err != nil {
		return nil, translateGuardError(sel.Adapter.Name(), err)
	}
	return result.(*provider.PixCharge), nil
}

func (s *Service) createHostedCheckout(ctx context.Context, sel *Selection, amount int64, orderRef string, method provider.Method) (*provider.HostedCheckout, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.guard.Do(sel.Adapter.Name(), func() (any, error) {
		return sel.Adapter.CreateHostedCheckout(callCtx, amount, orderRef, method, sel.Config.ActiveEnvironment, sel.Config.ActiveCredentials())
	})
	s.metrics.RecordProviderCall(sel.Adapter.Name(), "create_hosted_checkout", time.Since(start))
	if err != nil {
		return nil, translateGuardError(sel.Adapter.Name(), err)
	}
	return result.(*provider.HostedCheckout), nil
}

// failCheckout marks a payment failed after its charge creation died.
// Charge creation is never retried here: a retry could double-charge.
func (s *Service) failCheckout(ctx context.Context, payment *Payment, cause error) {
	s.metrics.RecordCheckout(payment.ProviderName, string(payment.Method), "failed")
	if err := s.machine.Transition(ctx, payment, StatusFailed, "checkout"); err != nil && !errors.Is(err, ErrAlreadyTransitioned) {
		s.logger.Error("failed to mark payment failed",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err),
		)
	}
	s.logger.Warn("checkout failed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("provider", payment.ProviderName),
		zap.Error(cause),
	)
}

// GetStatus is the polling read. Pure read, no provider calls.
func (s *Service) GetStatus(ctx context.Context, paymentID string) (*StatusResponse, error) {
	id, err := uuid.Parse(paymentID)
	if err != nil {
		return nil, apperrors.Validation("invalid paymentId")
	}

	payment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			return nil, apperrors.NotFound("payment")
		}
		return nil, err
	}

	return &StatusResponse{
		PaymentID:       payment.ID.String(),
		Status:          string(payment.Status),
		Method:          string(payment.Method),
		Amount:          payment.AmountCents,
		Currency:        payment.Currency,
		PollIntervalMS:  s.cfg.PollInterval.Milliseconds(),
		PollMaxAttempts: s.cfg.PollMaxAttempts,
	}, nil
}

// translateGuardError maps an open breaker onto the unavailable kind;
// adapter errors already arrive translated.
func translateGuardError(providerName string, err error) error {
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	return apperrors.ProviderUnavailable(providerName, err)
}

func orderRefOrNew(ref string) string {
	if ref != "" {
		return ref
	}
	return uuid.NewString()
}
