package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories are bound to one transaction. Reads through them bypass any
// cache and see the transaction's own writes.
type Repositories struct {
	Participants ParticipantRepository
	Products     ProductRepository
	Orders       OrderRepository
	Commissions  CommissionRepository
}

// TxRunner runs fn inside a single database transaction. Returning an error
// from fn rolls everything back.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

func NewTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

func (t *gormTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	if t.db == nil {
		return ErrDBNotReady
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, Repositories{
			Participants: NewParticipantRepository(tx),
			Products:     NewProductRepository(tx),
			Orders:       NewOrderRepository(tx),
			Commissions:  NewCommissionRepository(tx),
		})
	})
}
