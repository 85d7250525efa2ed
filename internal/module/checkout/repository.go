package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for payment persistence.
type Repository interface {
	Create(ctx context.Context, payment *Payment) error
	Update(ctx context.Context, payment *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	GetByProviderTx(ctx context.Context, providerName, providerTxID string) (*Payment, error)
	// Transition atomically moves a pending payment to a terminal
	// status. Returns ErrAlreadyTransitioned when the row is no longer
	// pending, so concurrent confirmation paths collapse to one winner.
	Transition(ctx context.Context, id uuid.UUID, to Status) error
	ListExpiredPending(ctx context.Context, olderThan time.Time) ([]*Payment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new payment repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, payment *Payment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (r *repository) Update(ctx context.Context, payment *Payment) error {
	if err := r.db.WithContext(ctx).Save(payment).Error; err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	var payment Payment
	err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return &payment, nil
}

func (r *repository) GetByProviderTx(ctx context.Context, providerName, providerTxID string) (*Payment, error) {
	var payment Payment
	err := r.db.WithContext(ctx).
		First(&payment, "provider_name = ? AND provider_transaction_id = ?", providerName, providerTxID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment by provider tx: %w", err)
	}
	return &payment, nil
}

func (r *repository) Transition(ctx context.Context, id uuid.UUID, to Status) error {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	if to == StatusCompleted {
		now := time.Now()
		updates["completed_at"] = &now
	}

	// Single conditional UPDATE. The WHERE clause on status is the
	// compare half of the compare-and-set; RowsAffected tells us
	// whether this caller won the race.
	result := r.db.WithContext(ctx).
		Model(&Payment{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("transition payment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlreadyTransitioned
	}
	return nil
}

func (r *repository) ListExpiredPending(ctx context.Context, olderThan time.Time) ([]*Payment, error) {
	var payments []*Payment
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", StatusPending, olderThan).
		Order("created_at").
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("list expired pending: %w", err)
	}
	return payments, nil
}
