package gateway

import (
	"net/http"

	"github.com/GuiSantosdev/clivus-dev-sub000/internal/module/checkout/provider"
	apperrors "github.com/GuiSantosdev/clivus-dev-sub000/internal/shared/errors"
	"github.com/gin-gonic/gin"
)

// Handler handles admin HTTP requests for gateway configuration.
type Handler struct {
	service  *Service
	registry *provider.Registry
}

// NewHandler creates a new gateway handler.
func NewHandler(service *Service, registry *provider.Registry) *Handler {
	return &Handler{service: service, registry: registry}
}

// RegisterRoutes registers the admin gateway routes. The group is
// expected to already carry admin authentication.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	gateways := r.Group("/gateways")
	{
		gateways.GET("", h.ListGateways)
		gateways.GET("/:name", h.GetGateway)
		gateways.PUT("/:name", h.UpdateGateway)
		gateways.POST("/test-connection", h.TestConnection)
	}
}

func (h *Handler) toResponse(cfg *GatewayConfig) *GatewayResponse {
	adapter, err := h.registry.Get(cfg.Name)
	if err != nil {
		return cfg.ToResponse(nil, nil)
	}
	methods := make([]string, 0, len(adapter.SupportedMethods()))
	for _, m := range adapter.SupportedMethods() {
		methods = append(methods, string(m))
	}
	return cfg.ToResponse(adapter.RequiredFields(), methods)
}

// ListGateways returns every provider's configuration.
func (h *Handler) ListGateways(c *gin.Context) {
	configs, err := h.service.List(c.Request.Context())
	if err != nil {
		handleGatewayError(c, err)
		return
	}

	responses := make([]*GatewayResponse, len(configs))
	for i, cfg := range configs {
		responses[i] = h.toResponse(cfg)
	}

	c.JSON(http.StatusOK, ListGatewaysResponse{Gateways: responses})
}

// GetGateway returns one provider's configuration.
func (h *Handler) GetGateway(c *gin.Context) {
	cfg, err := h.service.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		handleGatewayError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toResponse(cfg))
}

// UpdateGateway applies a partial update to one provider's
// configuration. Credential maps merge key by key.
func (h *Handler) UpdateGateway(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cfg, err := h.service.Upsert(c.Request.Context(), c.Param("name"), &req)
	if err != nil {
		handleGatewayError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toResponse(cfg))
}

// TestConnection probes the named provider with the stored credentials
// of the requested environment and persists the outcome.
func (h *Handler) TestConnection(c *gin.Context) {
	var req TestConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "gateway and environment are required"})
		return
	}

	result, err := h.service.TestConnection(c.Request.Context(), req.Gateway, provider.Environment(req.Environment))
	if err != nil {
		handleGatewayError(c, err)
		return
	}

	c.JSON(http.StatusOK, TestConnectionResponse{
		Success:     result.Success,
		Message:     result.Message,
		Environment: string(result.TestedEnvironment),
	})
}

func handleGatewayError(c *gin.Context, err error) {
	if err == ErrGatewayNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "gateway not found"})
		return
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		c.JSON(appErr.StatusCode, appErr.ToResponse())
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
