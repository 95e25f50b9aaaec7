package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/gestion/settlement/internal/domain/settlement"
	"github.com/gestion/settlement/internal/domain/shared"
)

// GormCounterRepository mints document numbers from the single-row paramet
// table. Each mint runs in its own short transaction, outside the commit
// scope, so a number stays consumed even when the commit rolls back.
type GormCounterRepository struct {
	db *gorm.DB
}

// NewGormCounterRepository creates a new counter repository.
func NewGormCounterRepository(db *gorm.DB) *GormCounterRepository {
	return &GormCounterRepository{db: db}
}

// NextSaleNumber increments and returns the sale document counter.
func (r *GormCounterRepository) NextSaleNumber(ctx context.Context) (int, error) {
	return r.next(ctx, "ventas")
}

// NextPurchaseNumber increments and returns the purchase document counter.
func (r *GormCounterRepository) NextPurchaseNumber(ctx context.Context) (int, error) {
	return r.next(ctx, "compras")
}

// next bumps one paramet column and reads it back. column is always one of
// the two fixed counter names, never caller input.
func (r *GormCounterRepository) next(ctx context.Context, column string) (int, error) {
	var minted int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		update := fmt.Sprintf("UPDATE paramet SET %s = %s + 1", column, column)
		if err := tx.Exec(update).Error; err != nil {
			return err
		}
		result := tx.Raw(fmt.Sprintf("SELECT %s FROM paramet LIMIT 1", column)).Scan(&minted)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("paramet has no counter row")
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: minting %s document number: %v", shared.ErrInfrastructure, column, err)
	}
	return minted, nil
}

var _ settlement.CounterRepository = (*GormCounterRepository)(nil)
