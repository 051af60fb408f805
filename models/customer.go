package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Customer is a loyalty-program member. Walk-in orders carry no customer
// reference at all, so every identifying field is optional.
type Customer struct {
	ID            uint                 `gorm:"primaryKey" json:"id"`
	Email         *string              `gorm:"uniqueIndex" json:"email"`
	Phone         *string              `gorm:"index" json:"phone"`
	FirstName     string               `json:"first_name"`
	LastName      string               `json:"last_name"`
	FullName      string               `gorm:"-" json:"full_name"`
	DateOfBirth   *time.Time           `json:"date_of_birth"`
	LoyaltyPoints int                  `gorm:"not null;default:0" json:"loyalty_points"`
	TotalSpent    decimal.Decimal      `gorm:"type:decimal(10,2);not null;default:0" json:"total_spent"`
	VisitCount    int                  `gorm:"not null;default:0" json:"visit_count"`
	LastVisit     *time.Time           `json:"last_visit"`
	Preferences   map[string]any       `gorm:"serializer:json" json:"preferences"`
	Orders        []Order              `gorm:"foreignKey:CustomerID" json:"orders,omitempty"`
	Transactions  []LoyaltyTransaction `gorm:"foreignKey:CustomerID" json:"loyalty_transactions,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	DeletedAt     gorm.DeletedAt       `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Customer model
func (Customer) TableName() string {
	return "customers"
}

// AfterFind populates the computed full name
func (c *Customer) AfterFind(tx *gorm.DB) error {
	c.FullName = strings.TrimSpace(c.FirstName + " " + c.LastName)
	return nil
}

// LoyaltyTransactionType classifies a loyalty-ledger entry
type LoyaltyTransactionType string

const (
	LoyaltyEarned   LoyaltyTransactionType = "earned"
	LoyaltyRedeemed LoyaltyTransactionType = "redeemed"
	LoyaltyExpired  LoyaltyTransactionType = "expired"
	LoyaltyAdjusted LoyaltyTransactionType = "adjusted"
)

// IsValid reports whether the transaction type is one of the defined types
func (t LoyaltyTransactionType) IsValid() bool {
	switch t {
	case LoyaltyEarned, LoyaltyRedeemed, LoyaltyExpired, LoyaltyAdjusted:
		return true
	default:
		return false
	}
}

// ValidLoyaltyTransactionTypes returns the defined loyalty transaction types
func ValidLoyaltyTransactionTypes() []LoyaltyTransactionType {
	return []LoyaltyTransactionType{LoyaltyEarned, LoyaltyRedeemed, LoyaltyExpired, LoyaltyAdjusted}
}

// LoyaltyTransaction is one entry in a customer's loyalty-point ledger.
// Points are signed: redemptions and expirations are stored negative.
type LoyaltyTransaction struct {
	ID              uint                   `gorm:"primaryKey" json:"id"`
	CustomerID      uint                   `gorm:"not null;index" json:"customer_id"`
	TransactionType LoyaltyTransactionType `gorm:"not null" json:"transaction_type"`
	Points          int                    `gorm:"not null" json:"points"`
	Description     string                 `json:"description"`
	CreatedAt       time.Time              `json:"created_at"`
}

// TableName specifies the table name for the LoyaltyTransaction model
func (LoyaltyTransaction) TableName() string {
	return "loyalty_transactions"
}
