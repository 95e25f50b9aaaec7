package settlement

import (
	"context"

	"github.com/gestion/settlement/internal/domain/settlement"
)

// TransactionScope provides transactional access to the ledger repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and commit or roll
// back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the commit-path repositories
// within a transaction. All repositories returned share the same underlying
// database transaction.
//
// CounterRepository is deliberately absent: counter increments happen
// before the scope opens and survive a rollback.
type TransactionalRepositories interface {
	// Ledger returns the ledger repository scoped to the current transaction.
	Ledger() settlement.LedgerRepository
	// Codes returns the unit-code repository scoped to the current transaction.
	Codes() settlement.CodeRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. Useful for testing or when transaction support is not
// required.
type NoOpTransactionScope struct {
	ledger settlement.LedgerRepository
	codes  settlement.CodeRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given
// repositories.
func NewNoOpTransactionScope(ledger settlement.LedgerRepository, codes settlement.CodeRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{ledger: ledger, codes: codes}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Ledger returns the ledger repository.
func (s *NoOpTransactionScope) Ledger() settlement.LedgerRepository { return s.ledger }

// Codes returns the unit-code repository.
func (s *NoOpTransactionScope) Codes() settlement.CodeRepository { return s.codes }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
