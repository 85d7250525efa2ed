package checkout

import (
	"time"

	"github.com/GuiSantosdev/clivus-dev-sub000/internal/module/checkout/provider"
	"github.com/google/uuid"
)

// Status is a payment lifecycle state. Pending is the only state a
// payment can leave; completed, failed and expired are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusExpired   Status = "expired"
)

// Terminal reports whether the status admits no further transition.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusExpired
}

// Payment is one checkout attempt routed to one provider. The pair
// (provider_name, provider_transaction_id) is how asynchronous
// confirmations find their way back to the row.
type Payment struct {
	ID                    uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderRef              string          `json:"order_ref" gorm:"not null;index"`
	PlanSlug              string          `json:"plan_slug" gorm:"index"`
	ProviderName          string          `json:"provider_name" gorm:"not null;index"`
	ProviderTransactionID string          `json:"provider_transaction_id" gorm:"index:idx_payments_provider_tx"`
	Environment           provider.Environment `json:"environment" gorm:"not null;default:sandbox"`
	Method                provider.Method `json:"method" gorm:"not null"`
	AmountCents           int64           `json:"amount_cents" gorm:"not null"`
	Currency              string          `json:"currency" gorm:"not null;default:BRL"`
	Status                Status          `json:"status" gorm:"not null;default:pending;index"`
	QRPayload             string          `json:"-"`
	CopyableCode          string          `json:"-"`
	RedirectURL           string          `json:"-"`
	RawProviderPayload    string          `json:"-" gorm:"type:jsonb"`
	CreatedAt             time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt             time.Time       `json:"updated_at"`
	CompletedAt           *time.Time      `json:"completed_at,omitempty"`
}

// TableName returns the database table name.
func (Payment) TableName() string {
	return "payments"
}
