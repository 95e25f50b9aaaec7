package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/gestion/settlement/internal/domain/settlement"
)

// ==================== Request DTOs ====================

// SettleGroupRequest is one order group submitted for settlement.
type SettleGroupRequest struct {
	Orders               []OrderInput    `json:"orders" binding:"required,min=1,dive"`
	Payments             []PaymentInput  `json:"payments" binding:"dive"`
	ShippingMode         string          `json:"shipping_mode" binding:"omitempty,oneof=pickup carrier_managed self_managed_flex"`
	CarrierCost          decimal.Decimal `json:"carrier_cost" binding:"dgte0"`
	DeclaredShippingCost decimal.Decimal `json:"declared_shipping_cost" binding:"dgte0"`
	CourierName          string          `json:"courier_name"`
	CustomerRef          string          `json:"customer_ref"`
}

// OrderInput is one marketplace order inside the group.
type OrderInput struct {
	Ref      string       `json:"ref" binding:"required"`
	Tracking string       `json:"tracking"`
	Entries  []EntryInput `json:"entries" binding:"required,min=1,dive"`
}

// EntryInput is one raw marketplace line. Monetary fields reject malformed
// input at decode time instead of defaulting to zero.
type EntryInput struct {
	SKU         string          `json:"sku"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity" binding:"required,min=1"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"dgte0"`
	Subtotal    decimal.Decimal `json:"subtotal" binding:"dgte0"`
}

// PaymentInput is one settled marketplace payment.
type PaymentInput struct {
	ID             string          `json:"id" binding:"required"`
	OrderRef       string          `json:"order_ref"`
	GrossAmount    decimal.Decimal `json:"gross_amount"`
	NetAmount      decimal.Decimal `json:"net_amount"`
	ShippingAmount decimal.Decimal `json:"shipping_amount"`
	Installments   int             `json:"installments"`
	Status         string          `json:"status"`
}

// SettleBatchRequest submits several independent groups in one run.
type SettleBatchRequest struct {
	Groups []SettleGroupRequest `json:"groups" binding:"required,min=1,dive"`
}

// ToOrderGroup maps the request onto the domain order group.
func (r SettleGroupRequest) ToOrderGroup() settlement.OrderGroup {
	orders := make([]settlement.Order, 0, len(r.Orders))
	for _, o := range r.Orders {
		entries := make([]settlement.RawEntry, 0, len(o.Entries))
		for _, e := range o.Entries {
			entries = append(entries, settlement.RawEntry{
				SKU:         e.SKU,
				Title:       e.Title,
				Description: e.Description,
				Quantity:    e.Quantity,
				UnitPrice:   e.UnitPrice,
				Subtotal:    e.Subtotal,
			})
		}
		orders = append(orders, settlement.Order{Ref: o.Ref, Tracking: o.Tracking, Entries: entries})
	}

	payments := make([]settlement.Payment, 0, len(r.Payments))
	for _, p := range r.Payments {
		payments = append(payments, settlement.Payment{
			ID:             p.ID,
			OrderRef:       p.OrderRef,
			GrossAmount:    p.GrossAmount,
			NetAmount:      p.NetAmount,
			ShippingAmount: p.ShippingAmount,
			Installments:   p.Installments,
			Status:         p.Status,
		})
	}

	mode := settlement.ShippingMode(r.ShippingMode)
	if mode == "" {
		mode = settlement.ShippingPickup
	}
	return settlement.OrderGroup{
		Orders:               orders,
		Payments:             payments,
		ShippingMode:         mode,
		CarrierCost:          r.CarrierCost,
		DeclaredShippingCost: r.DeclaredShippingCost,
		CourierName:          r.CourierName,
	}
}

// ==================== Response DTOs ====================

// LineItemResponse is one invoice line in API responses.
type LineItemResponse struct {
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// VerificationReport is the post-commit consistency recount.
type VerificationReport struct {
	ExpectedUnits    int      `json:"expected_units"`
	RecordedUnits    int      `json:"recorded_units"`
	ZeroCostLines    int      `json:"zero_cost_lines"`
	ExpectedPayments int      `json:"expected_payments"`
	RecordedPayments int      `json:"recorded_payments"`
	ReservedCodes    int      `json:"reserved_codes"`
	Divergences      []string `json:"divergences,omitempty"`
	Clean            bool     `json:"clean"`
}

// SettlementResponse is the outcome of one settlement attempt.
type SettlementResponse struct {
	AttemptID          string                      `json:"attempt_id"`
	State              string                      `json:"state"`
	ReferenceBasis     string                      `json:"reference_basis,omitempty"`
	ExpectedTotal      decimal.Decimal             `json:"expected_total"`
	ActualTotal        decimal.Decimal             `json:"actual_total"`
	ExceptionApplied   bool                        `json:"exception_applied,omitempty"`
	SaleDocNumber      int                         `json:"sale_doc_number,omitempty"`
	PurchaseDocNumbers []int                       `json:"purchase_doc_numbers,omitempty"`
	ReservedCodes      []string                    `json:"reserved_codes,omitempty"`
	Items              []LineItemResponse          `json:"items,omitempty"`
	Verification       *VerificationReport         `json:"verification,omitempty"`
	Rejection          *settlement.RejectionReport `json:"rejection,omitempty"`
}

// SettledSaleResponse answers the already-settled query.
type SettledSaleResponse struct {
	SaleDocNumber int             `json:"sale_doc_number"`
	OrderRefs     []string        `json:"order_refs"`
	Total         decimal.Decimal `json:"total"`
}

// SettleBatchResponse aggregates per-group outcomes of a batch run.
type SettleBatchResponse struct {
	Results   []SettlementResponse `json:"results"`
	Committed int                  `json:"committed"`
	Rejected  int                  `json:"rejected"`
}

func toLineItemResponses(items []settlement.LineItem) []LineItemResponse {
	out := make([]LineItemResponse, 0, len(items))
	for _, li := range items {
		out = append(out, LineItemResponse{
			SKU:       li.SKU,
			Name:      li.Name,
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice,
			Subtotal:  li.Subtotal,
		})
	}
	return out
}
