package services

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/harborgrill/pos-backoffice-api/models"
)

// Catalog resolves menu items and modifiers during pricing. The GORM
// implementation is used in production; tests substitute a fake.
type Catalog interface {
	// MenuItemByID returns the menu item or gorm.ErrRecordNotFound
	MenuItemByID(id uint) (*models.MenuItem, error)

	// ModifiersByIDs returns the modifiers for the given ids. A missing id
	// is not an error here; the pricing engine checks the counts.
	ModifiersByIDs(ids []uint) ([]models.Modifier, error)
}

// OrderLineRequest is one requested line of a new order
type OrderLineRequest struct {
	MenuItemID          uint   `json:"menuItemId" binding:"required"`
	Quantity            int    `json:"quantity" binding:"required,gt=0"`
	Modifiers           []uint `json:"modifiers"`
	SpecialInstructions string `json:"specialInstructions"`
}

// PricedLine is a request line after pricing against the catalog
type PricedLine struct {
	MenuItemID          uint
	Quantity            int
	UnitPrice           decimal.Decimal
	TotalPrice          decimal.Decimal
	Modifiers           []uint
	SpecialInstructions string
}

// PricedOrder is the result of pricing a full set of lines
type PricedOrder struct {
	Lines     []PricedLine
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// PricingEngine computes order totals from a catalog snapshot. It has no
// side effects; persistence happens elsewhere.
type PricingEngine struct {
	catalog Catalog
}

// NewPricingEngine creates a pricing engine over the given catalog
func NewPricingEngine(catalog Catalog) *PricingEngine {
	return &PricingEngine{catalog: catalog}
}

// Price resolves every line against the catalog and computes unit prices,
// line totals, subtotal, tax, and total. Quantities must already be
// validated as positive. All arithmetic is decimal; the tax amount is
// rounded to the currency's two minor digits.
func (p *PricingEngine) Price(lines []OrderLineRequest, taxRate decimal.Decimal) (*PricedOrder, error) {
	priced := &PricedOrder{
		Lines:    make([]PricedLine, 0, len(lines)),
		Subtotal: decimal.Zero,
	}

	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, NewError("MISSING_FIELDS", http.StatusBadRequest,
				"Quantity must be a positive integer for menu item %d", line.MenuItemID)
		}

		item, err := p.catalog.MenuItemByID(line.MenuItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NewError("MENU_ITEM_NOT_FOUND", http.StatusBadRequest,
					"Menu item not found: %d", line.MenuItemID)
			}
			return nil, NewError("MENU_ITEM_NOT_FOUND", http.StatusBadRequest,
				"Menu item lookup failed: %d", line.MenuItemID)
		}

		if !item.IsAvailable {
			return nil, NewError("MENU_ITEM_NOT_AVAILABLE", http.StatusBadRequest,
				"Menu item is not available: %d", line.MenuItemID)
		}

		unitPrice := item.Price
		if len(line.Modifiers) > 0 {
			modifiers, err := p.catalog.ModifiersByIDs(line.Modifiers)
			if err != nil {
				return nil, NewError("MODIFIER_LOOKUP_FAILED", http.StatusInternalServerError,
					"Failed to fetch modifiers")
			}
			if len(modifiers) != len(uniqueIDs(line.Modifiers)) {
				return nil, NewError("MODIFIER_LOOKUP_FAILED", http.StatusInternalServerError,
					"One or more modifiers could not be resolved")
			}
			for _, mod := range modifiers {
				unitPrice = unitPrice.Add(mod.PriceAdjustment)
			}
		}

		totalPrice := unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		priced.Subtotal = priced.Subtotal.Add(totalPrice)
		priced.Lines = append(priced.Lines, PricedLine{
			MenuItemID:          line.MenuItemID,
			Quantity:            line.Quantity,
			UnitPrice:           unitPrice,
			TotalPrice:          totalPrice,
			Modifiers:           line.Modifiers,
			SpecialInstructions: line.SpecialInstructions,
		})
	}

	priced.TaxAmount = priced.Subtotal.Mul(taxRate).Round(2)
	priced.Total = priced.Subtotal.Add(priced.TaxAmount)
	return priced, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// GormCatalog implements Catalog over the database
type GormCatalog struct {
	db *gorm.DB
}

// NewGormCatalog creates a database-backed catalog
func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{db: db}
}

// MenuItemByID returns the menu item or gorm.ErrRecordNotFound
func (c *GormCatalog) MenuItemByID(id uint) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := c.db.First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// ModifiersByIDs returns the modifiers matching the given ids
func (c *GormCatalog) ModifiersByIDs(ids []uint) ([]models.Modifier, error) {
	var modifiers []models.Modifier
	if err := c.db.Where("id IN ?", ids).Find(&modifiers).Error; err != nil {
		return nil, err
	}
	return modifiers, nil
}
