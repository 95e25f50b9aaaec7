package persistence

import (
	"context"

	"gorm.io/gorm"

	appsettlement "github.com/gestion/settlement/internal/application/settlement"
	"github.com/gestion/settlement/internal/domain/settlement"
)

// GormTransactionScope runs the commit path inside a single database
// transaction. Everything written through the repositories it hands out
// commits or rolls back together.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new transaction scope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appsettlement.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) Ledger() settlement.LedgerRepository {
	return NewGormLedgerRepository(r.tx)
}

func (r *gormTransactionalRepositories) Codes() settlement.CodeRepository {
	return NewGormCodeRepository(r.tx)
}

var (
	_ appsettlement.TransactionScope          = (*GormTransactionScope)(nil)
	_ appsettlement.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
