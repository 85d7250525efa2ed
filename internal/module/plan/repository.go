package plan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Module errors.
var (
	ErrPlanNotFound     = errors.New("plan not found")
	ErrAlreadyActivated = errors.New("payment already activated a plan")
)

// Repository defines the interface for plan persistence.
type Repository interface {
	GetBySlug(ctx context.Context, slug string) (*Plan, error)
	ListActive(ctx context.Context) ([]*Plan, error)
	Create(ctx context.Context, plan *Plan) error
	CreateActivation(ctx context.Context, activation *Activation) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new plan repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetBySlug(ctx context.Context, slug string) (*Plan, error) {
	var plan Plan
	err := r.db.WithContext(ctx).First(&plan, "slug = ? AND is_active", slug).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return &plan, nil
}

func (r *repository) ListActive(ctx context.Context) ([]*Plan, error) {
	var plans []*Plan
	err := r.db.WithContext(ctx).Where("is_active").Order("price_cents").Find(&plans).Error
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

func (r *repository) Create(ctx context.Context, plan *Plan) error {
	if err := r.db.WithContext(ctx).Create(plan).Error; err != nil {
		return fmt.Errorf("create plan: %w", err)
	}
	return nil
}

func (r *repository) CreateActivation(ctx context.Context, activation *Activation) error {
	err := r.db.WithContext(ctx).Create(activation).Error
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyActivated
		}
		return fmt.Errorf("create activation: %w", err)
	}
	return nil
}

// isUniqueViolation matches both gorm's translated error and the raw
// postgres duplicate key message.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "duplicate key")
}
