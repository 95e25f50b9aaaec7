package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/gestion/settlement/internal/domain/settlement"
	"github.com/gestion/settlement/internal/domain/shared"
	"github.com/gestion/settlement/internal/infrastructure/persistence/models"
)

// GormVerificationRepository re-reads committed rows for the post-commit
// consistency report.
type GormVerificationRepository struct {
	db *gorm.DB
}

// NewGormVerificationRepository creates a new verification repository.
func NewGormVerificationRepository(db *gorm.DB) *GormVerificationRepository {
	return &GormVerificationRepository{db: db}
}

// SaleQuantityTotal sums the recorded units of the sale document.
func (r *GormVerificationRepository) SaleQuantityTotal(ctx context.Context, saleDocNumber int) (int, error) {
	var total int
	result := r.db.WithContext(ctx).
		Raw("SELECT COALESCE(SUM(cant), 0) FROM it_vent WHERE remito = ?", saleDocNumber).
		Scan(&total)
	if result.Error != nil {
		return 0, fmt.Errorf("%w: summing units of sale %d: %v", shared.ErrInfrastructure, saleDocNumber, result.Error)
	}
	return total, nil
}

// SaleQuantitiesBySKU returns the recorded units of the sale document
// grouped by SKU.
func (r *GormVerificationRepository) SaleQuantitiesBySKU(ctx context.Context, saleDocNumber int) (map[string]int, error) {
	var rows []struct {
		Articulo string
		Total    int
	}
	err := r.db.WithContext(ctx).
		Raw("SELECT articulo, COALESCE(SUM(cant), 0) AS total FROM it_vent WHERE remito = ? GROUP BY articulo", saleDocNumber).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: grouping units of sale %d: %v", shared.ErrInfrastructure, saleDocNumber, err)
	}
	quantities := make(map[string]int, len(rows))
	for _, row := range rows {
		quantities[row.Articulo] = row.Total
	}
	return quantities, nil
}

// ZeroCostLineCount counts committed sale lines with a non-positive cost.
func (r *GormVerificationRepository) ZeroCostLineCount(ctx context.Context, saleDocNumber int) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ItVent{}).
		Where("remito = ? AND (costo IS NULL OR costo <= 0)", saleDocNumber).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("%w: counting zero-cost lines of sale %d: %v", shared.ErrInfrastructure, saleDocNumber, err)
	}
	return int(count), nil
}

// PaymentMovementCount counts payment movements attached to the sale.
func (r *GormVerificationRepository) PaymentMovementCount(ctx context.Context, saleDocNumber int) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.MovimientoMP{}).
		Where("remito_venta = ?", saleDocNumber).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("%w: counting payment movements of sale %d: %v", shared.ErrInfrastructure, saleDocNumber, err)
	}
	return int(count), nil
}

var _ settlement.VerificationRepository = (*GormVerificationRepository)(nil)
