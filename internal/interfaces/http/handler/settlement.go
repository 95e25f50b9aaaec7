package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	appsettlement "github.com/gestion/settlement/internal/application/settlement"
)

// SettlementService is the application surface the handler drives.
type SettlementService interface {
	Settle(ctx context.Context, req appsettlement.SettleGroupRequest) (*appsettlement.SettlementResponse, error)
	SettleBatch(ctx context.Context, req appsettlement.SettleBatchRequest) (*appsettlement.SettleBatchResponse, error)
	SettledFor(ctx context.Context, orderRef string) (*appsettlement.SettledSaleResponse, error)
}

// SettlementHandler handles settlement API endpoints.
type SettlementHandler struct {
	BaseHandler
	service SettlementService
}

// NewSettlementHandler creates a new SettlementHandler
func NewSettlementHandler(service SettlementService) *SettlementHandler {
	return &SettlementHandler{service: service}
}

// RegisterRoutes registers the settlement routes
func (h *SettlementHandler) RegisterRoutes(rg *gin.RouterGroup) {
	settlements := rg.Group("/settlements")
	{
		settlements.POST("", h.Settle)
		settlements.POST("/batch", h.SettleBatch)
		settlements.GET("/:orderRef", h.SettledFor)
	}
}

// Settle runs one order group through the settlement pipeline. Rejected
// groups are a processed outcome, reported with 200 and a rejection block;
// only infrastructure failures surface as HTTP errors.
func (h *SettlementHandler) Settle(c *gin.Context) {
	var req appsettlement.SettleGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.Settle(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// SettleBatch processes several order groups in one run.
func (h *SettlementHandler) SettleBatch(c *gin.Context) {
	var req appsettlement.SettleBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.SettleBatch(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// SettledFor answers the already-settled query for one order reference.
func (h *SettlementHandler) SettledFor(c *gin.Context) {
	orderRef := c.Param("orderRef")

	resp, err := h.service.SettledFor(c.Request.Context(), orderRef)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
