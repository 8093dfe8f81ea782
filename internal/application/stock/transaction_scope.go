package stock

import (
	"context"

	"github.com/nursery/backend/internal/domain/stock"
)

// TransactionScope runs repository work atomically. If fn returns an error
// every write inside it is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes repositories bound to one transaction.
// A unit update and its ledger append always go through the same instance.
type TransactionalRepositories interface {
	UnitRepo() stock.UnitRepository
	EventRepo() stock.EventRepository
	HoldRepo() stock.HoldRepository
}

// NoOpTransactionScope runs fn against plain repositories without a
// transaction. Used by tests.
type NoOpTransactionScope struct {
	unitRepo  stock.UnitRepository
	eventRepo stock.EventRepository
	holdRepo  stock.HoldRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope
func NewNoOpTransactionScope(unitRepo stock.UnitRepository, eventRepo stock.EventRepository, holdRepo stock.HoldRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{unitRepo: unitRepo, eventRepo: eventRepo, holdRepo: holdRepo}
}

// Execute runs fn directly
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) UnitRepo() stock.UnitRepository   { return s.unitRepo }
func (s *NoOpTransactionScope) EventRepo() stock.EventRepository { return s.eventRepo }
func (s *NoOpTransactionScope) HoldRepo() stock.HoldRepository   { return s.holdRepo }

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)
