package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Supplier provides inventory items
type Supplier struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"not null" json:"name"`
	ContactPerson string          `json:"contact_person"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	Address       string          `json:"address"`
	IsActive      bool            `gorm:"not null;default:true" json:"is_active"`
	Items         []InventoryItem `gorm:"foreignKey:SupplierID" json:"items,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Supplier model
func (Supplier) TableName() string {
	return "suppliers"
}

// InventoryItem tracks stock of an ingredient or supply. Stock levels use
// decimals because units of measure include fractional quantities (kg, l).
type InventoryItem struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	Name          string           `gorm:"not null" json:"name"`
	SKU           *string          `gorm:"uniqueIndex" json:"sku"`
	UnitOfMeasure string           `gorm:"not null" json:"unit_of_measure"`
	CurrentStock  decimal.Decimal  `gorm:"type:decimal(10,3);not null" json:"current_stock"`
	MinimumStock  decimal.Decimal  `gorm:"type:decimal(10,3);not null" json:"minimum_stock"`
	MaximumStock  *decimal.Decimal `gorm:"type:decimal(10,3)" json:"maximum_stock"`
	CostPerUnit   decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"cost_per_unit"`
	SupplierID    *uint            `gorm:"index" json:"supplier_id"`
	Supplier      *Supplier        `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	LastRestocked *time.Time       `json:"last_restocked"`
	TotalValue    decimal.Decimal  `gorm:"-" json:"total_value"`
	IsLowStock    bool             `gorm:"-" json:"is_low_stock"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	DeletedAt     gorm.DeletedAt   `gorm:"index" json:"-"`
}

// TableName specifies the table name for the InventoryItem model
func (InventoryItem) TableName() string {
	return "inventory_items"
}

// AfterFind populates the computed stock-valuation fields
func (i *InventoryItem) AfterFind(tx *gorm.DB) error {
	i.TotalValue = i.CurrentStock.Mul(i.CostPerUnit).Round(2)
	i.IsLowStock = i.CurrentStock.LessThanOrEqual(i.MinimumStock)
	return nil
}

// StockAdjustmentType classifies a stock adjustment
type StockAdjustmentType string

const (
	StockAdjustment StockAdjustmentType = "adjustment"
	StockRestock    StockAdjustmentType = "restock"
	StockWaste      StockAdjustmentType = "waste"
	StockSale       StockAdjustmentType = "sale"
)

// IsValid reports whether the adjustment type is one of the defined types
func (t StockAdjustmentType) IsValid() bool {
	switch t {
	case StockAdjustment, StockRestock, StockWaste, StockSale:
		return true
	default:
		return false
	}
}

// ValidStockAdjustmentTypes returns the defined stock adjustment types
func ValidStockAdjustmentTypes() []StockAdjustmentType {
	return []StockAdjustmentType{StockAdjustment, StockRestock, StockWaste, StockSale}
}
