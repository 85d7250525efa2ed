package checkout

import (
	"context"

	"github.com/GuiSantosdev/clivus-dev-sub000/internal/module/gateway"
	"github.com/google/uuid"
)

// GatewayStore is the slice of the gateway service the checkout flow
// needs: read access to provider configuration.
type GatewayStore interface {
	List(ctx context.Context) ([]*gateway.GatewayConfig, error)
	Get(ctx context.Context, name string) (*gateway.GatewayConfig, error)
}

// PlanCatalog resolves purchasable plans and records activations. The
// activation side effect fires at most once per payment; the catalog
// enforces that with a unique index on payment id.
type PlanCatalog interface {
	GetBySlug(ctx context.Context, slug string) (*PlanInfo, error)
	Activate(ctx context.Context, paymentID uuid.UUID, planSlug, orderRef string) error
}

// PlanInfo is the catalog's view of a purchasable plan.
type PlanInfo struct {
	Slug       string
	Name       string
	PriceCents int64
	Currency   string
}
