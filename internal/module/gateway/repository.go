package gateway

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Repository defines the interface for gateway configuration access.
type Repository interface {
	GetByName(ctx context.Context, name string) (*GatewayConfig, error)
	List(ctx context.Context) ([]*GatewayConfig, error)
	Create(ctx context.Context, cfg *GatewayConfig) error
	Save(ctx context.Context, cfg *GatewayConfig) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new gateway repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByName(ctx context.Context, name string) (*GatewayConfig, error) {
	var cfg GatewayConfig
	err := r.db.WithContext(ctx).First(&cfg, "name = ?", name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGatewayNotFound
		}
		return nil, fmt.Errorf("get gateway config: %w", err)
	}
	return &cfg, nil
}

func (r *repository) List(ctx context.Context) ([]*GatewayConfig, error) {
	var configs []*GatewayConfig
	if err := r.db.WithContext(ctx).Order("name").Find(&configs).Error; err != nil {
		return nil, fmt.Errorf("list gateway configs: %w", err)
	}
	return configs, nil
}

func (r *repository) Create(ctx context.Context, cfg *GatewayConfig) error {
	if err := r.db.WithContext(ctx).Create(cfg).Error; err != nil {
		return fmt.Errorf("create gateway config: %w", err)
	}
	return nil
}

func (r *repository) Save(ctx context.Context, cfg *GatewayConfig) error {
	if err := r.db.WithContext(ctx).Save(cfg).Error; err != nil {
		return fmt.Errorf("save gateway config: %w", err)
	}
	return nil
}
