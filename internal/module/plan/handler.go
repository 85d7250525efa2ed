package plan

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler handles the public plan catalog routes.
type Handler struct {
	service *Service
}

// NewHandler creates a new plan handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the plan routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/plans", h.ListPlans)
}

// ListPlans returns the purchasable catalog.
func (h *Handler) ListPlans(c *gin.Context) {
	plans, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list plans"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}
