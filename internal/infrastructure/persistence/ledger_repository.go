package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gestion/settlement/internal/domain/settlement"
	"github.com/gestion/settlement/internal/domain/shared"
	"github.com/gestion/settlement/internal/infrastructure/persistence/models"
)

const ledgerDateLayout = "2006-01-02"

// GormLedgerRepository writes the durable settlement documents to the
// legacy sale, purchase and payment tables.
type GormLedgerRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormLedgerRepository creates a new ledger repository.
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db, now: time.Now}
}

// InsertPurchase writes the purchase header, its single line and one fresh
// unit code per unit. The minted codes are returned in deposit state, ready
// for the sale to reserve.
func (r *GormLedgerRepository) InsertPurchase(ctx context.Context, doc settlement.PurchaseDocument) ([]string, error) {
	fecha := r.now().Format(ledgerDateLayout)
	total := doc.UnitCost.Mul(decimal.NewFromInt(int64(doc.Quantity)))

	header := models.Compra{
		Compra:    doc.Number,
		Proveedor: doc.Supplier,
		Total:     total,
		Fecha:     fecha,
	}
	if err := r.db.WithContext(ctx).Create(&header).Error; err != nil {
		return nil, fmt.Errorf("%w: inserting purchase %d: %v", shared.ErrInfrastructure, doc.Number, err)
	}

	line := models.ItComp{
		Remito:   doc.Number,
		Articulo: doc.SKU,
		Cant:     doc.Quantity,
		Costo:    doc.UnitCost,
		Precio:   doc.UnitCost,
	}
	if err := r.db.WithContext(ctx).Create(&line).Error; err != nil {
		return nil, fmt.Errorf("%w: inserting purchase line %d: %v", shared.ErrInfrastructure, doc.Number, err)
	}

	codes := make([]string, 0, doc.Quantity)
	rows := make([]models.Codigo, 0, doc.Quantity)
	for i := 1; i <= doc.Quantity; i++ {
		code := fmt.Sprintf("NC%d-%02d", doc.Number, i)
		codes = append(codes, code)
		rows = append(rows, models.Codigo{
			Codigo:   code,
			Articulo: doc.SKU,
			Deposito: "1",
		})
	}
	if len(rows) > 0 {
		if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
			return nil, fmt.Errorf("%w: minting codes for purchase %d: %v", shared.ErrInfrastructure, doc.Number, err)
		}
	}
	return codes, nil
}

// InsertSale writes the sale header and its lines, then re-reads the lines
// and refuses to leave a non-positive cost on the ledger.
func (r *GormLedgerRepository) InsertSale(ctx context.Context, doc settlement.SaleDocument) error {
	cliente := doc.CustomerRef
	if cliente == "" {
		cliente = strings.Join(doc.OrderRefs, ", ")
	}
	header := models.Venta{
		Remito:  doc.Number,
		Cliente: cliente,
		Total:   doc.Total,
		Fecha:   r.now().Format(ledgerDateLayout),
		Giros:   doc.Total,
	}
	if err := r.db.WithContext(ctx).Create(&header).Error; err != nil {
		return fmt.Errorf("%w: inserting sale %d: %v", shared.ErrInfrastructure, doc.Number, err)
	}

	lines := make([]models.ItVent, 0, len(doc.Lines))
	for _, l := range doc.Lines {
		lines = append(lines, models.ItVent{
			Remito:   doc.Number,
			Articulo: l.SKU,
			Cant:     l.Quantity,
			Costo:    l.UnitCost,
			Venta:    l.UnitPrice,
		})
	}
	if len(lines) > 0 {
		if err := r.db.WithContext(ctx).Create(&lines).Error; err != nil {
			return fmt.Errorf("%w: inserting sale lines %d: %v", shared.ErrInfrastructure, doc.Number, err)
		}
	}

	var zeroCost int64
	err := r.db.WithContext(ctx).
		Model(&models.ItVent{}).
		Where("remito = ? AND (costo IS NULL OR costo <= 0)", doc.Number).
		Count(&zeroCost).Error
	if err != nil {
		return fmt.Errorf("%w: re-reading sale lines %d: %v", shared.ErrInfrastructure, doc.Number, err)
	}
	if zeroCost > 0 {
		return fmt.Errorf("%w: sale %d has %d lines with non-positive cost", shared.ErrZeroCost, doc.Number, zeroCost)
	}
	return nil
}

// InsertPaymentMovements records one row per settled payment.
func (r *GormLedgerRepository) InsertPaymentMovements(ctx context.Context, movements []settlement.PaymentMovement) error {
	if len(movements) == 0 {
		return nil
	}
	rows := make([]models.MovimientoMP, 0, len(movements))
	for _, m := range movements {
		rows = append(rows, models.MovimientoMP{
			Orden:       m.OrderRef,
			Movimiento:  m.PaymentID,
			Fecha:       m.Date.Format(ledgerDateLayout),
			Importe:     m.Amount.InexactFloat64(),
			RemitoVenta: m.SaleDocNumber,
			UsuarioML:   m.SellerAccount,
		})
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("%w: inserting payment movements: %v", shared.ErrInfrastructure, err)
	}
	return nil
}

// InsertFlexShipment records the courier economics of a self-managed
// delivery.
func (r *GormLedgerRepository) InsertFlexShipment(ctx context.Context, shipment settlement.FlexShipment) error {
	row := models.EnvioFlex{
		Remito:       shipment.SaleDocNumber,
		Fecha:        r.now().Format(ledgerDateLayout),
		Motoquero:    shipment.Courier,
		CostoDeEnvio: shipment.Cost,
		CobroDeEnvio: shipment.Charge,
		Ganancia:     shipment.Charge.Sub(shipment.Cost),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("%w: inserting flex shipment for sale %d: %v", shared.ErrInfrastructure, shipment.SaleDocNumber, err)
	}
	return nil
}

// SettledSaleFor finds the committed sale covering the order ref through
// its payment movements, or shared.ErrNotFound.
func (r *GormLedgerRepository) SettledSaleFor(ctx context.Context, orderRef string) (*settlement.SettledSale, error) {
	var movement models.MovimientoMP
	err := r.db.WithContext(ctx).
		Where("Orden = ?", orderRef).
		Take(&movement).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no settled sale for order %s", shared.ErrNotFound, orderRef)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: looking up order %s: %v", shared.ErrInfrastructure, orderRef, err)
	}

	var refs []string
	err = r.db.WithContext(ctx).
		Raw("SELECT DISTINCT Orden FROM movimientos_mp WHERE remito_venta = ? ORDER BY Orden", movement.RemitoVenta).
		Scan(&refs).Error
	if err != nil {
		return nil, fmt.Errorf("%w: listing orders of sale %d: %v", shared.ErrInfrastructure, movement.RemitoVenta, err)
	}

	var header models.Venta
	err = r.db.WithContext(ctx).
		Where("remito = ?", movement.RemitoVenta).
		Take(&header).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: reading sale %d: %v", shared.ErrInfrastructure, movement.RemitoVenta, err)
	}

	return &settlement.SettledSale{
		SaleDocNumber: movement.RemitoVenta,
		OrderRefs:     refs,
		Total:         header.Total,
	}, nil
}

var _ settlement.LedgerRepository = (*GormLedgerRepository)(nil)
