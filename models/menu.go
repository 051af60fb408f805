package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MenuCategory groups menu items for display (Appetizers, Mains, ...)
type MenuCategory struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"not null" json:"name"`
	Description  string         `json:"description"`
	DisplayOrder int            `gorm:"not null;default:0" json:"display_order"`
	ImageS3Key   *string        `json:"-"`
	ImageURL     string         `gorm:"-" json:"image_url,omitempty"`
	IsActive     bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the MenuCategory model
func (MenuCategory) TableName() string {
	return "menu_categories"
}

// MenuItem is a sellable item on the menu. Price and cost are stored as
// fixed-point decimals; currency math never goes through floats.
type MenuItem struct {
	ID                  uint             `gorm:"primaryKey" json:"id"`
	CategoryID          uint             `gorm:"not null;index" json:"category_id"`
	Category            MenuCategory     `gorm:"foreignKey:CategoryID" json:"category"`
	Name                string           `gorm:"not null" json:"name"`
	Description         string           `json:"description"`
	Price               decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"price"`
	Cost                *decimal.Decimal `gorm:"type:decimal(10,2)" json:"cost"`
	PrepTimeMinutes     int              `gorm:"not null;default:0" json:"prep_time_minutes"`
	Calories            *int             `json:"calories"`
	IsAvailable         bool             `gorm:"not null;default:true" json:"is_available"`
	IsFeatured          bool             `gorm:"not null;default:false" json:"is_featured"`
	DietaryRestrictions []string         `gorm:"serializer:json" json:"dietary_restrictions"`
	Allergens           []string         `gorm:"serializer:json" json:"allergens"`
	ImageS3Key          *string          `json:"-"`
	ImageURL            string           `gorm:"-" json:"image_url,omitempty"`
	ModifierGroups      []ModifierGroup  `gorm:"many2many:item_modifier_groups" json:"modifier_groups,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
	DeletedAt           gorm.DeletedAt   `gorm:"index" json:"-"`
}

// TableName specifies the table name for the MenuItem model
func (MenuItem) TableName() string {
	return "menu_items"
}

// ModifierGroup bundles mutually related modifiers (e.g. "Cheese options")
// with selection constraints
type ModifierGroup struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Name          string     `gorm:"not null" json:"name"`
	IsRequired    bool       `gorm:"not null;default:false" json:"is_required"`
	MinSelections int        `gorm:"not null;default:0" json:"min_selections"`
	MaxSelections int        `gorm:"not null;default:1" json:"max_selections"`
	DisplayOrder  int        `gorm:"not null;default:0" json:"display_order"`
	Modifiers     []Modifier `gorm:"foreignKey:GroupID" json:"modifiers"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the ModifierGroup model
func (ModifierGroup) TableName() string {
	return "modifier_groups"
}

// Modifier is an optional add-on with a signed price adjustment
// (e.g. "extra cheese: +1.50")
type Modifier struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	GroupID         uint            `gorm:"not null;index" json:"group_id"`
	Name            string          `gorm:"not null" json:"name"`
	PriceAdjustment decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price_adjustment"`
	IsDefault       bool            `gorm:"not null;default:false" json:"is_default"`
	DisplayOrder    int             `gorm:"not null;default:0" json:"display_order"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Modifier model
func (Modifier) TableName() string {
	return "modifiers"
}
