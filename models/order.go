package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order. Statuses only move
// forward through the transition graph; completed and cancelled are
// terminal.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// statusRank orders the forward chain pending -> confirmed -> preparing ->
// ready -> completed. Cancelled sits outside the chain.
var statusRank = map[OrderStatus]int{
	OrderStatusPending:   1,
	OrderStatusConfirmed: 2,
	OrderStatusPreparing: 3,
	OrderStatusReady:     4,
	OrderStatusCompleted: 5,
}

// ValidOrderStatuses returns every defined status, forward chain first
func ValidOrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending,
		OrderStatusConfirmed,
		OrderStatusPreparing,
		OrderStatusReady,
		OrderStatusCompleted,
		OrderStatusCancelled,
	}
}

// IsValid reports whether the status is one of the defined statuses
func (s OrderStatus) IsValid() bool {
	_, onChain := statusRank[s]
	return onChain || s == OrderStatusCancelled
}

// IsTerminal reports whether no further transitions are allowed
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Forward moves along the chain are allowed, including skips (an order can
// go straight from pending to completed). Cancellation is allowed from any
// non-terminal state. Re-completing a completed order is permitted as a
// no-op so callers can treat the operation as idempotent.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !s.IsValid() || !next.IsValid() {
		return false
	}
	if s == OrderStatusCancelled {
		return false
	}
	if next == OrderStatusCancelled {
		return !s.IsTerminal()
	}
	if s == OrderStatusCompleted {
		return next == OrderStatusCompleted
	}
	return statusRank[next] > statusRank[s]
}

// OrderType is how the order is fulfilled
type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine-in"
	OrderTypeTakeout  OrderType = "takeout"
	OrderTypeDelivery OrderType = "delivery"
)

// IsValid reports whether the order type is one of the defined types
func (t OrderType) IsValid() bool {
	switch t {
	case OrderTypeDineIn, OrderTypeTakeout, OrderTypeDelivery:
		return true
	default:
		return false
	}
}

// Order is the header record for a sale. total_amount == subtotal +
// tax_amount at creation time; discounts and tips arrive through later
// updates.
type Order struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	OrderNumber        string          `gorm:"uniqueIndex;not null" json:"order_number"`
	CustomerID         *uint           `gorm:"index" json:"customer_id"`
	Customer           *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	StaffID            uint            `gorm:"not null;index" json:"staff_id"`
	Staff              User            `gorm:"foreignKey:StaffID" json:"staff"`
	OrderType          OrderType       `gorm:"not null" json:"order_type"`
	Status             OrderStatus     `gorm:"not null;default:'pending'" json:"status"`
	Subtotal           decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	TaxAmount          decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"tax_amount"`
	DiscountAmount     decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"discount_amount"`
	TipAmount          decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"tip_amount"`
	TotalAmount        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	Notes              string          `json:"notes"`
	TableNumber        string          `json:"table_number"`
	EstimatedReadyTime *time.Time      `json:"estimated_ready_time"`
	CompletedAt        *time.Time      `json:"completed_at"`
	Items              []OrderItem     `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Payments           []Payment       `gorm:"foreignKey:OrderID" json:"payments,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// OrderItem is one priced line of an order.
// total_price == unit_price * quantity.
type OrderItem struct {
	ID                  uint                `gorm:"primaryKey" json:"id"`
	OrderID             uint                `gorm:"not null;index" json:"order_id"`
	MenuItemID          uint                `gorm:"not null;index" json:"menu_item_id"`
	MenuItem            MenuItem            `gorm:"foreignKey:MenuItemID" json:"menu_item"`
	Quantity            int                 `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice           decimal.Decimal     `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	TotalPrice          decimal.Decimal     `gorm:"type:decimal(10,2);not null" json:"total_price"`
	SpecialInstructions string              `json:"special_instructions"`
	Modifiers           []OrderItemModifier `gorm:"foreignKey:OrderItemID" json:"modifiers,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}

// OrderItemModifier links an order line to a modifier that was applied to it
type OrderItemModifier struct {
	ID          uint     `gorm:"primaryKey" json:"id"`
	OrderItemID uint     `gorm:"not null;index" json:"order_item_id"`
	ModifierID  uint     `gorm:"not null;index" json:"modifier_id"`
	Modifier    Modifier `gorm:"foreignKey:ModifierID" json:"modifier"`
}

// TableName specifies the table name for the OrderItemModifier model
func (OrderItemModifier) TableName() string {
	return "order_item_modifiers"
}

// OrderCounter backs the order-number allocator with one row per day
type OrderCounter struct {
	Day     string `gorm:"primaryKey;size:8"`
	Counter int64  `gorm:"not null;default:0"`
}

// TableName specifies the table name for the OrderCounter model
func (OrderCounter) TableName() string {
	return "order_counters"
}
