package repositories

import (
	"context"

	"gorm.io/gorm"
)

// GORMStore is the relational Store. Every repository it hands out shares the same
// *gorm.DB, so inside Transaction they all run on one database transaction.
type GORMStore struct {
	db *gorm.DB
}

// NewGORMStore creates a new instance of GORMStore.
func NewGORMStore(db *gorm.DB) *GORMStore {
	return &GORMStore{db: db}
}

func (s *GORMStore) Orders() OrderRepository {
	return NewGORMOrderRepository(s.db)
}

func (s *GORMStore) Payments() PaymentRepository {
	return NewGORMPaymentRepository(s.db)
}

func (s *GORMStore) PaymentMethods() PaymentMethodRepository {
	return NewGORMPaymentMethodRepository(s.db)
}

// Transaction runs fn inside a database transaction.
func (s *GORMStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GORMStore{db: tx})
	})
}
