package gateway

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/GuiSantosdev/clivus-dev-sub000/internal/module/checkout/provider"
	"github.com/google/uuid"
)

// ConnectionStatus is the outcome of the last credential test.
type ConnectionStatus string

const (
	ConnectionUntested ConnectionStatus = "untested"
	ConnectionSuccess  ConnectionStatus = "success"
	ConnectionFailed   ConnectionStatus = "failed"
)

// CredentialMap is an opaque provider credential bundle stored as JSONB.
type CredentialMap map[string]string

// Value implements driver.Valuer.
func (m CredentialMap) Value() (driver.Value, error) {
	if m == nil {
		m = CredentialMap{}
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *CredentialMap) Scan(value interface{}) error {
	if value == nil {
		*m = CredentialMap{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported credential map type %T", value)
	}
	return json.Unmarshal(data, m)
}

// GatewayConfig holds one provider's admin-managed configuration:
// disjoint sandbox and production credential bundles, the active
// environment selector, the enabled flag and the last connection test
// outcome. Rows are created once per known provider and soft-disabled,
// never deleted.
type GatewayConfig struct {
	ID                      uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name                    string           `json:"name" gorm:"uniqueIndex;not null"`
	DisplayName             string           `json:"display_name"`
	IsEnabled               bool             `json:"is_enabled" gorm:"not null;default:false"`
	ActiveEnvironment       provider.Environment `json:"environment" gorm:"not null;default:sandbox"`
	SandboxCredentials      CredentialMap    `json:"-" gorm:"type:jsonb"`
	ProductionCredentials   CredentialMap    `json:"-" gorm:"type:jsonb"`
	SandboxWebhookSecret    string           `json:"-"`
	ProductionWebhookSecret string           `json:"-"`
	ConnectionStatus        ConnectionStatus `json:"connection_status" gorm:"not null;default:untested"`
	ConnectionError         string           `json:"connection_error,omitempty"`
	LastConnectionTestAt    *time.Time       `json:"last_connection_test_at,omitempty"`
	CreatedAt               time.Time        `json:"created_at"`
	UpdatedAt               time.Time        `json:"updated_at"`
}

// TableName returns the database table name.
func (GatewayConfig) TableName() string {
	return "gateway_configs"
}

// CredentialsFor returns the bundle for the given environment.
func (g *GatewayConfig) CredentialsFor(env provider.Environment) provider.Credentials {
	if env == provider.EnvProduction {
		return provider.Credentials(g.ProductionCredentials)
	}
	return provider.Credentials(g.SandboxCredentials)
}

// WebhookSecretFor returns the webhook secret for the given environment.
func (g *GatewayConfig) WebhookSecretFor(env provider.Environment) string {
	if env == provider.EnvProduction {
		return g.ProductionWebhookSecret
	}
	return g.SandboxWebhookSecret
}

// ActiveCredentials returns the bundle for the active environment.
func (g *GatewayConfig) ActiveCredentials() provider.Credentials {
	return g.CredentialsFor(g.ActiveEnvironment)
}

// ActiveWebhookSecret returns the webhook secret for the active environment.
func (g *GatewayConfig) ActiveWebhookSecret() string {
	return g.WebhookSecretFor(g.ActiveEnvironment)
}
