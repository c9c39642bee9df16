package models

import "time"

// PaymentStatus is the outcome of a settlement attempt.
type PaymentStatus string

const (
	PaymentStatusRequiresAction PaymentStatus = "REQUIRES_ACTION"
	PaymentStatusSucceeded      PaymentStatus = "SUCCEEDED"
	PaymentStatusFailed         PaymentStatus = "FAILED"
	PaymentStatusCanceled       PaymentStatus = "CANCELED"
)

// Error codes recorded on FAILED payments.
const (
	PaymentErrInactiveMethod = "INACTIVE_PAYMENT_METHOD"
	PaymentErrProvider       = "PROVIDER_ERROR"
)

// Payment is the outcome of one settlement attempt for an order.
type Payment struct {
	ID              string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID         string        `json:"order_id" gorm:"type:varchar(36);not null;uniqueIndex"`
	PaymentMethodID string        `json:"payment_method_id" gorm:"type:varchar(36);not null"`
	Provider        string        `json:"provider" gorm:"type:varchar(32);not null"`
	AmountCents     int64         `json:"amount_cents" gorm:"not null"`
	Currency        string        `json:"currency" gorm:"type:varchar(3);not null"`
	Status          PaymentStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	SettlementRef   string        `json:"settlement_ref,omitempty" gorm:"type:varchar(64)"`
	ErrorCode       string        `json:"error_code,omitempty" gorm:"type:varchar(64)"`
	ErrorMessage    string        `json:"error_message,omitempty" gorm:"type:text"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// PaymentView is the JSON shape returned to API callers.
type PaymentView struct {
	Payment
	Amount string `json:"amount"`
}

func NewPaymentView(p Payment) PaymentView {
	return PaymentView{Payment: p, Amount: FormatMinor(p.AmountCents)}
}

// PaymentMethod is a stored payment instrument. Settlement only cares about Active.
type PaymentMethod struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"user_id" gorm:"type:varchar(64);index"`
	Label     string    `json:"label" gorm:"type:varchar(100)"`
	Brand     string    `json:"brand" gorm:"type:varchar(32)"`
	Active    bool      `json:"active"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
