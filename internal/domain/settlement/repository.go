package settlement

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseDocument is one silent purchase written ahead of the sale so the
// shipping or service unit has stock and a unit code to reserve.
type PurchaseDocument struct {
	Number      int
	Supplier    string
	SKU         string
	Description string
	Quantity    int
	UnitCost    decimal.Decimal
}

// SaleLine is one line of the durable sale document. Codes carries the
// reserved unit codes backing the quantity.
type SaleLine struct {
	SKU       string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	UnitCost  decimal.Decimal
	Codes     []string
}

// SaleDocument is the durable sale written at commit time.
type SaleDocument struct {
	Number        int
	OrderRefs     []string
	CustomerRef   string
	PaymentMethod string
	Total         decimal.Decimal
	Lines         []SaleLine
}

// PaymentMovement links one settled marketplace payment to a committed
// sale document.
type PaymentMovement struct {
	SaleDocNumber int
	OrderRef      string
	PaymentID     string
	Date          time.Time
	Amount        decimal.Decimal
	SellerAccount string
}

// FlexShipment records the courier economics of a self-managed flex
// delivery: what the courier is owed and what the buyer was charged.
type FlexShipment struct {
	SaleDocNumber int
	Courier       string
	Cost          decimal.Decimal
	Charge        decimal.Decimal
}

// SettledSale is the read model answering "was this order already
// settled, and under which document".
type SettledSale struct {
	SaleDocNumber int
	OrderRefs     []string
	Total         decimal.Decimal
}

// CounterRepository mints document numbers from the legacy counter table.
// Increments are deliberately not part of the commit transaction: a minted
// number stays consumed even when the commit rolls back.
type CounterRepository interface {
	NextSaleNumber(ctx context.Context) (int, error)
	NextPurchaseNumber(ctx context.Context) (int, error)
}

// CodeRepository manages per-unit inventory codes. A code is free when it
// sits in deposit and has never been attached to a sale document.
type CodeRepository interface {
	// FreeCodes returns up to limit free codes for the SKU, oldest first.
	FreeCodes(ctx context.Context, sku string, limit int) ([]string, error)
	// Reserve attaches the codes to the sale document and takes them out
	// of deposit.
	Reserve(ctx context.Context, codes []string, saleDocNumber int) error
	// CountReserved counts codes attached to the sale document.
	CountReserved(ctx context.Context, saleDocNumber int) (int, error)
}

// LedgerRepository writes the durable settlement documents.
type LedgerRepository interface {
	// InsertPurchase writes the purchase document plus its unit code rows
	// and returns the minted free codes, ready for the sale to reserve.
	InsertPurchase(ctx context.Context, doc PurchaseDocument) ([]string, error)
	InsertSale(ctx context.Context, doc SaleDocument) error
	InsertPaymentMovements(ctx context.Context, movements []PaymentMovement) error
	InsertFlexShipment(ctx context.Context, shipment FlexShipment) error
	// SettledSaleFor finds the committed sale covering the order ref, or
	// shared.ErrNotFound.
	SettledSaleFor(ctx context.Context, orderRef string) (*SettledSale, error)
}

// VerificationRepository re-reads committed rows for the post-commit
// consistency report.
type VerificationRepository interface {
	SaleQuantityTotal(ctx context.Context, saleDocNumber int) (int, error)
	SaleQuantitiesBySKU(ctx context.Context, saleDocNumber int) (map[string]int, error)
	ZeroCostLineCount(ctx context.Context, saleDocNumber int) (int, error)
	PaymentMovementCount(ctx context.Context, saleDocNumber int) (int, error)
}
