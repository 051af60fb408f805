package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how the customer paid
type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodCash PaymentMethod = "cash"
)

// PaymentStatus is the state of a payment record
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Payment records one payment (or attempted payment) against an order.
// Card payments reference the gateway's payment-intent id; refunds
// accumulate in refund_amount and flip the status to refunded once the
// full amount has been returned.
type Payment struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	OrderID         uint            `gorm:"not null;index" json:"order_id"`
	Order           Order           `gorm:"foreignKey:OrderID" json:"-"`
	PaymentMethod   PaymentMethod   `gorm:"not null" json:"payment_method"`
	Amount          decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	TipAmount       decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"tip_amount"`
	RefundAmount    decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"refund_amount"`
	Status          PaymentStatus   `gorm:"not null;default:'pending'" json:"status"`
	PaymentIntentID *string         `gorm:"index" json:"payment_intent_id"`
	ProcessedAt     *time.Time      `json:"processed_at"`
	RefundedAt      *time.Time      `json:"refunded_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Payment model
func (Payment) TableName() string {
	return "payments"
}
