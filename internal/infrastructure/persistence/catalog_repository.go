package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gestion/settlement/internal/domain/catalog"
	"github.com/gestion/settlement/internal/domain/shared"
	"github.com/gestion/settlement/internal/infrastructure/persistence/models"
)

// GormCatalogRepository reads product reference data from the legacy
// articulos, it_comp and kits_armados tables.
type GormCatalogRepository struct {
	db *gorm.DB
}

// NewGormCatalogRepository creates a new catalog repository.
func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

// DescriptionFor returns articulos.descrip for the SKU, or "" when the SKU
// has no master row.
func (r *GormCatalogRepository) DescriptionFor(ctx context.Context, sku string) (string, error) {
	var descrip string
	result := r.db.WithContext(ctx).
		Model(&models.Articulo{}).
		Select("descrip").
		Where("codigo = ?", sku).
		Limit(1).
		Scan(&descrip)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("%w: reading description for %s: %v", shared.ErrInfrastructure, sku, result.Error)
	}
	return descrip, nil
}

// lastPositiveCostQuery walks purchase lines newest first. The join is LEFT
// because historical it_comp rows may reference purged headers; undated
// headers sort last, ties break on insertion order.
const lastPositiveCostQuery = `
SELECT ic.costo
FROM it_comp ic
LEFT JOIN compras c ON c.compra = ic.remito
WHERE ic.articulo = ? AND ic.costo > 0
ORDER BY COALESCE(c.fecha, '') DESC, ic.rowid DESC
LIMIT 1`

// LastPositiveCostFor returns the most recent purchase cost > 0 for the
// SKU, or zero when the SKU was never purchased at a positive cost.
func (r *GormCatalogRepository) LastPositiveCostFor(ctx context.Context, sku string) (decimal.Decimal, error) {
	var cost decimal.Decimal
	result := r.db.WithContext(ctx).Raw(lastPositiveCostQuery, sku).Scan(&cost)
	if result.Error != nil {
		return decimal.Zero, fmt.Errorf("%w: reading last cost for %s: %v", shared.ErrInfrastructure, sku, result.Error)
	}
	if result.RowsAffected == 0 {
		return decimal.Zero, nil
	}
	return cost, nil
}

// ComponentsOf returns the kit definition for a code, or nil when the code
// has no rows in kits_armados.
func (r *GormCatalogRepository) ComponentsOf(ctx context.Context, kitCode string) (*catalog.Kit, error) {
	var rows []models.KitComponente
	err := r.db.WithContext(ctx).
		Where("codigo = ?", kitCode).
		Order("rowid").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: reading kit %s: %v", shared.ErrInfrastructure, kitCode, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	kit := &catalog.Kit{
		Code:       kitCode,
		Components: make([]catalog.KitComponent, 0, len(rows)),
	}
	for _, row := range rows {
		kit.Components = append(kit.Components, catalog.KitComponent{
			SKU:              row.Componente,
			QuantityPerKit:   row.Cantidad,
			ParticipationPct: decimal.NewFromFloat(row.Participacion),
		})
	}
	return kit, nil
}

var (
	_ catalog.Lookup    = (*GormCatalogRepository)(nil)
	_ catalog.KitLookup = (*GormCatalogRepository)(nil)
)
