package plan

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service manages the purchasable plan catalog and activations.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a new plan service.
func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// GetBySlug returns an active plan by slug.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Plan, error) {
	return s.repo.GetBySlug(ctx, slug)
}

// ListActive returns the purchasable plans.
func (s *Service) ListActive(ctx context.Context) ([]*Plan, error) {
	return s.repo.ListActive(ctx)
}

// Activate grants the plan purchased by a completed payment. Idempotent
// per payment: a duplicate confirmation that slips past the payment
// transition gate still cannot activate twice.
func (s *Service) Activate(ctx context.Context, paymentID uuid.UUID, planSlug, orderRef string) error {
	err := s.repo.CreateActivation(ctx, &Activation{
		ID:          uuid.New(),
		PaymentID:   paymentID,
		PlanSlug:    planSlug,
		OrderRef:    orderRef,
		ActivatedAt: time.Now(),
	})
	if errors.Is(err, ErrAlreadyActivated) {
		s.logger.Warn("duplicate plan activation suppressed",
			zap.String("payment_id", paymentID.String()),
			zap.String("plan", planSlug),
		)
		return nil
	}
	if err != nil {
		return err
	}

	s.logger.Info("plan activated",
		zap.String("payment_id", paymentID.String()),
		zap.String("plan", planSlug),
		zap.String("order_ref", orderRef),
	)
	return nil
}

// Seed inserts the default catalog when it is empty.
func (s *Service) Seed(ctx context.Context, defaults []*Plan) error {
	existing, err := s.repo.ListActive(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, p := range defaults {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
	}
	s.logger.Info("seeded plan catalog", zap.Int("plans", len(defaults)))
	return nil
}
