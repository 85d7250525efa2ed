package checkout

import (
	"net/http"

	apperrors "github.com/GuiSantosdev/clivus-dev-sub000/internal/shared/errors"
	"github.com/gin-gonic/gin"
)

// Handler handles the storefront checkout HTTP routes.
type Handler struct {
	service *Service
}

// NewHandler creates a new checkout handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the checkout routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	checkout := r.Group("/checkout")
	{
		checkout.POST("/pix", h.StartPix)
		checkout.POST("", h.StartHosted)
		checkout.GET("/check-payment", h.CheckPayment)
	}
}

// StartPix creates a PIX charge and returns the QR payload.
func (h *Handler) StartPix(c *gin.Context) {
	var req PixCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	resp, err := h.service.StartPixCheckout(c.Request.Context(), &req)
	if err != nil {
		handleCheckoutError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// StartHosted creates a provider-hosted boleto or card checkout.
func (h *Handler) StartHosted(c *gin.Context) {
	var req HostedCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paymentMethod is required"})
		return
	}

	resp, err := h.service.StartHostedCheckout(c.Request.Context(), &req)
	if err != nil {
		handleCheckoutError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// CheckPayment is the status poll the UI runs while waiting for the
// confirmation webhook.
func (h *Handler) CheckPayment(c *gin.Context) {
	paymentID := c.Query("paymentId")
	if paymentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paymentId is required"})
		return
	}

	resp, err := h.service.GetStatus(c.Request.Context(), paymentID)
	if err != nil {
		handleCheckoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func handleCheckoutError(c *gin.Context, err error) {
	if appErr, ok := apperrors.AsAppError(err); ok {
		c.JSON(appErr.StatusCode, appErr.ToResponse())
		return
	}
	c.JSON(apperrors.GetStatusCode(err), gin.H{"error": "internal error"})
}
