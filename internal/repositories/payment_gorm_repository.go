package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pesan/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMPaymentRepository is a GORM implementation of PaymentRepository.
type GORMPaymentRepository struct {
	db *gorm.DB
}

// NewGORMPaymentRepository creates a new instance of GORMPaymentRepository.
func NewGORMPaymentRepository(db *gorm.DB) *GORMPaymentRepository {
	return &GORMPaymentRepository{
		db: db,
	}
}

// Create inserts a payment. A second payment for the same order is ErrDuplicate.
func (r *GORMPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("payment for order %s: %w", payment.OrderID, ErrDuplicate)
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// Update rewrites every mutable column, clearing error fields when they are empty.
func (r *GORMPaymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	payment.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ?", payment.ID).
		Updates(map[string]any{
			"payment_method_id": payment.PaymentMethodID,
			"provider":          payment.Provider,
			"amount_cents":      payment.AmountCents,
			"currency":          payment.Currency,
			"status":            payment.Status,
			"settlement_ref":    payment.SettlementRef,
			"error_code":        payment.ErrorCode,
			"error_message":     payment.ErrorMessage,
			"updated_at":        payment.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update payment %s: %w", payment.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("payment with ID %s not found for update: %w", payment.ID, ErrNotFound)
	}
	return nil
}

// GetByID retrieves a payment by its ID.
func (r *GORMPaymentRepository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByOrderID retrieves the payment of an order.
func (r *GORMPaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	return r.first(ctx, "order_id = ?", orderID)
}

func (r *GORMPaymentRepository) first(ctx context.Context, query string, arg string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("payment (%s %s): %w", query, arg, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

// GORMPaymentMethodRepository is a GORM implementation of PaymentMethodRepository.
type GORMPaymentMethodRepository struct {
	db *gorm.DB
}

// NewGORMPaymentMethodRepository creates a new instance of GORMPaymentMethodRepository.
func NewGORMPaymentMethodRepository(db *gorm.DB) *GORMPaymentMethodRepository {
	return &GORMPaymentMethodRepository{
		db: db,
	}
}

// Create inserts a payment method.
func (r *GORMPaymentMethodRepository) Create(ctx context.Context, method *models.PaymentMethod) error {
	if method.ID == "" {
		method.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(method).Error; err != nil {
		return fmt.Errorf("failed to create payment method: %w", err)
	}
	return nil
}

// GetByID retrieves a payment method by its ID.
func (r *GORMPaymentMethodRepository) GetByID(ctx context.Context, id string) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	if err := r.db.WithContext(ctx).First(&method, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("payment method with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payment method by ID %s: %w", id, err)
	}
	return &method, nil
}
