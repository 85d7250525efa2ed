package checkout

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// StateMachine guards every payment status change. All confirmation
// paths (webhook, poll, sweep) funnel through Transition, so the
// conditional update in the repository is the single point where
// concurrent confirmations are serialized.
type StateMachine struct {
	repo    Repository
	catalog PlanCatalog
	logger  *zap.Logger
}

// NewStateMachine creates a new payment state machine.
func NewStateMachine(repo Repository, catalog PlanCatalog, logger *zap.Logger) *StateMachine {
	return &StateMachine{repo: repo, catalog: catalog, logger: logger}
}

// Transition moves a pending payment to a terminal status and, on
// completion, fires the plan activation side effect. Exactly one caller
// wins the conditional update, so the side effect runs at most once no
// matter how many confirmation paths race. Losers get
// ErrAlreadyTransitioned.
func (m *StateMachine) Transition(ctx context.Context, payment *Payment, to Status, source string) error {
	if !to.Terminal() {
		return fmt.Errorf("invalid transition target %q", to)
	}

	if err := m.repo.Transition(ctx, payment.ID, to); err != nil {
		if errors.Is(err, ErrAlreadyTransitioned) {
			m.logger.Debug("payment transition lost race",
				zap.String("payment_id", payment.ID.String()),
				zap.String("target", string(to)),
				zap.String("source", source),
			)
		}
		return err
	}

	m.logger.Info("payment transitioned",
		zap.String("payment_id", payment.ID.String()),
		zap.String("provider", payment.ProviderName),
		zap.String("status", string(to)),
		zap.String("source", source),
	)

	if to == StatusCompleted && payment.PlanSlug != "" && m.catalog != nil {
		if err := m.catalog.Activate(ctx, payment.ID, payment.PlanSlug, payment.OrderRef); err != nil {
			// The payment stays completed; activation is recoverable
			// from the payments table.
			m.logger.Error("plan activation failed",
				zap.String("payment_id", payment.ID.String()),
				zap.String("plan", payment.PlanSlug),
				zap.Error(err),
			)
			return fmt.Errorf("activate plan: %w", err)
		}
	}
	return nil
}
