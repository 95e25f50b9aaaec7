package handler

import (
	"github.com/gin-gonic/gin"

	apppricing "github.com/gestion/settlement/internal/application/pricing"
)

// PricingService is the application surface the handler drives.
type PricingService interface {
	SolvePrice(req apppricing.SolvePriceRequest) (*apppricing.PriceResponse, error)
	PriceBreakdown(req apppricing.BreakdownRequest) (*apppricing.PriceResponse, error)
}

// PricingHandler handles pricing API endpoints.
type PricingHandler struct {
	BaseHandler
	service PricingService
}

// NewPricingHandler creates a new PricingHandler
func NewPricingHandler(service PricingService) *PricingHandler {
	return &PricingHandler{service: service}
}

// RegisterRoutes registers the pricing routes
func (h *PricingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	pricing := rg.Group("/pricing")
	{
		pricing.POST("/solve", h.Solve)
		pricing.POST("/breakdown", h.Breakdown)
	}
}

// Solve returns the sale price reaching the requested profit factor.
func (h *PricingHandler) Solve(c *gin.Context) {
	var req apppricing.SolvePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.SolvePrice(req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Breakdown returns the sale economics at a given price.
func (h *PricingHandler) Breakdown(c *gin.Context) {
	var req apppricing.BreakdownRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.PriceBreakdown(req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
