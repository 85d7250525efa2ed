package plan

import (
	"time"

	"github.com/google/uuid"
)

// Plan is a purchasable catalog entry. Prices are in cents.
type Plan struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Slug        string    `json:"slug" gorm:"uniqueIndex;not null"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents" gorm:"not null"`
	Currency    string    `json:"currency" gorm:"not null;default:BRL"`
	IsActive    bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Plan) TableName() string {
	return "plans"
}

// Activation records a plan granted by a completed payment. The unique
// index on payment id is the database-level backstop for the
// at-most-once activation guarantee.
type Activation struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PaymentID   uuid.UUID `json:"payment_id" gorm:"type:uuid;uniqueIndex;not null"`
	PlanSlug    string    `json:"plan_slug" gorm:"not null;index"`
	OrderRef    string    `json:"order_ref" gorm:"not null"`
	ActivatedAt time.Time `json:"activated_at"`
}

// TableName returns the database table name.
func (Activation) TableName() string {
	return "plan_activations"
}
