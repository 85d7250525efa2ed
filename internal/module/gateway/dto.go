package gateway

import "time"

// GatewayResponse represents a gateway configuration in API responses.
// Credential values are only visible on the admin surface, which is the
// only surface these DTOs serve.
type GatewayResponse struct {
	Name               string            `json:"name"`
	DisplayName        string            `json:"displayName"`
	IsEnabled          bool              `json:"isEnabled"`
	Environment        string            `json:"environment"`
	SandboxConfig      map[string]string `json:"sandboxConfig"`
	ProductionConfig   map[string]string `json:"productionConfig"`
	SandboxWebhook     string            `json:"sandboxWebhook,omitempty"`
	ProductionWebhook  string            `json:"productionWebhook,omitempty"`
	RequiredFields     []string          `json:"requiredFields"`
	SupportedMethods   []string          `json:"supportedMethods"`
	ConnectionStatus   string            `json:"connectionStatus"`
	ConnectionError    string            `json:"connectionError,omitempty"`
	LastConnectionTest *time.Time        `json:"lastConnectionTest,omitempty"`
}

// ToResponse converts a GatewayConfig to its API shape.
func (g *GatewayConfig) ToResponse(requiredFields, supportedMethods []string) *GatewayResponse {
	return &GatewayResponse{
		Name:               g.Name,
		DisplayName:        g.DisplayName,
		IsEnabled:          g.IsEnabled,
		Environment:        string(g.ActiveEnvironment),
		SandboxConfig:      g.SandboxCredentials,
		ProductionConfig:   g.ProductionCredentials,
		SandboxWebhook:     g.SandboxWebhookSecret,
		ProductionWebhook:  g.ProductionWebhookSecret,
		RequiredFields:     requiredFields,
		SupportedMethods:   supportedMethods,
		ConnectionStatus:   string(g.ConnectionStatus),
		ConnectionError:    g.ConnectionError,
		LastConnectionTest: g.LastConnectionTestAt,
	}
}

// ListGatewaysResponse wraps the gateway list.
type ListGatewaysResponse struct {
	Gateways []*GatewayResponse `json:"gateways"`
}

// TestConnectionRequest asks for a credential probe of one environment.
type TestConnectionRequest struct {
	Gateway     string `json:"gatewayName" binding:"required"`
	Environment string `json:"environment" binding:"required"`
}

// TestConnectionResponse reports the probe outcome.
type TestConnectionResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Environment string `json:"environment"`
}
