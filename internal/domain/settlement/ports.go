package settlement

import (
	"context"

	"github.com/shopspring/decimal"
)

// Notifier is the outbound side channel for reconciliation exceptions.
// The shipped implementation logs; delivery transports are external
// collaborators.
type Notifier interface {
	NotifyAmountShippingException(ctx context.Context, refs []string, expected, actual decimal.Decimal)
}

// LedgerTransaction is the durable outcome of a committed settlement.
// Immutable once written.
type LedgerTransaction struct {
	SaleDocNumber      int
	PurchaseDocNumbers []int
	ReservedCodes      []string
	LineItems          []LineItem
}

// RejectionReport explains why a group did not settle.
type RejectionReport struct {
	Reason        string          `json:"reason"`
	SKU           string          `json:"sku,omitempty"`
	ExpectedTotal decimal.Decimal `json:"expected_total,omitempty"`
	ActualTotal   decimal.Decimal `json:"actual_total,omitempty"`
}
