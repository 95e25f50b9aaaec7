package persistence

import (
	"context"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/gestion/settlement/internal/domain/settlement"
	"github.com/gestion/settlement/internal/domain/shared"
	"github.com/gestion/settlement/internal/infrastructure/persistence/models"
)

// freeCodeCondition matches codes sitting in deposit that were never
// attached to a sale. Legacy rows store deposito as ' 1', '1' or 1 and
// remito_ven as NULL, '' or '0' interchangeably.
const freeCodeCondition = "TRIM(deposito) = '1' AND (remito_ven IS NULL OR TRIM(remito_ven) IN ('', '0'))"

// GormCodeRepository manages per-unit inventory codes in the legacy
// codigos table.
type GormCodeRepository struct {
	db *gorm.DB
}

// NewGormCodeRepository creates a new unit-code repository.
func NewGormCodeRepository(db *gorm.DB) *GormCodeRepository {
	return &GormCodeRepository{db: db}
}

// FreeCodes returns up to limit free codes for the SKU, oldest first.
func (r *GormCodeRepository) FreeCodes(ctx context.Context, sku string, limit int) ([]string, error) {
	var codes []string
	err := r.db.WithContext(ctx).
		Model(&models.Codigo{}).
		Select("codigo").
		Where("articulo = ?", sku).
		Where(freeCodeCondition).
		Order("rowid").
		Limit(limit).
		Scan(&codes).Error
	if err != nil {
		return nil, fmt.Errorf("%w: listing free codes for %s: %v", shared.ErrInfrastructure, sku, err)
	}
	return codes, nil
}

// Reserve attaches the codes to the sale document and takes them out of
// deposit. Fails when any code was taken since it was listed.
func (r *GormCodeRepository) Reserve(ctx context.Context, codes []string, saleDocNumber int) error {
	if len(codes) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Codigo{}).
		Where("codigo IN ?", codes).
		Where(freeCodeCondition).
		Updates(map[string]interface{}{
			"remito_ven": strconv.Itoa(saleDocNumber),
			"deposito":   " ",
		})
	if result.Error != nil {
		return fmt.Errorf("%w: reserving codes for sale %d: %v", shared.ErrInfrastructure, saleDocNumber, result.Error)
	}
	if result.RowsAffected != int64(len(codes)) {
		return fmt.Errorf("%w: reserved %d of %d codes for sale %d",
			shared.ErrInsufficientCodes, result.RowsAffected, len(codes), saleDocNumber)
	}
	return nil
}

// CountReserved counts codes attached to the sale document.
func (r *GormCodeRepository) CountReserved(ctx context.Context, saleDocNumber int) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Codigo{}).
		Where("TRIM(remito_ven) = ?", strconv.Itoa(saleDocNumber)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("%w: counting reserved codes for sale %d: %v", shared.ErrInfrastructure, saleDocNumber, err)
	}
	return int(count), nil
}

var _ settlement.CodeRepository = (*GormCodeRepository)(nil)
