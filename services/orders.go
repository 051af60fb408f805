package services

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/harborgrill/pos-backoffice-api/models"
)

// CreateOrderInput is the validated input for order creation
type CreateOrderInput struct {
	StaffID     uint
	CustomerID  *uint
	OrderType   models.OrderType
	Items       []OrderLineRequest
	Notes       string
	TableNumber string
	TaxRate     *decimal.Decimal
}

// OrderService orchestrates order creation and lifecycle transitions
type OrderService struct {
	db             *gorm.DB
	pricing        *PricingEngine
	allocator      OrderNumberAllocator
	defaultTaxRate decimal.Decimal
	now            func() time.Time
}

// NewOrderService creates an order service
func NewOrderService(db *gorm.DB, pricing *PricingEngine, allocator OrderNumberAllocator, defaultTaxRate decimal.Decimal) *OrderService {
	return &OrderService{
		db:             db,
		pricing:        pricing,
		allocator:      allocator,
		defaultTaxRate: defaultTaxRate,
		now:            time.Now,
	}
}

// Create runs the order creation pipeline: validate the request shape,
// price the lines against the catalog, allocate an order number, then
// persist the header, the line items, and the modifier links. The three
// persistence steps share one transaction, so a failed item write rolls
// the header back rather than leaving an orphan.
func (s *OrderService) Create(input CreateOrderInput) (*models.Order, error) {
	if input.OrderType == "" || len(input.Items) == 0 {
		return nil, NewError("MISSING_FIELDS", http.StatusBadRequest,
			"Order type and items are required")
	}
	if !input.OrderType.IsValid() {
		return nil, NewError("INVALID_ORDER_TYPE", http.StatusBadRequest,
			"Order type must be one of: dine-in, takeout, delivery")
	}
	for _, line := range input.Items {
		if line.Quantity <= 0 {
			return nil, NewError("MISSING_FIELDS", http.StatusBadRequest,
				"Quantity must be a positive integer for menu item %d", line.MenuItemID)
		}
	}

	taxRate := s.defaultTaxRate
	if input.TaxRate != nil {
		taxRate = *input.TaxRate
	}

	priced, err := s.pricing.Price(input.Items, taxRate)
	if err != nil {
		return nil, err
	}

	orderNumber, err := s.allocator.Allocate()
	if err != nil {
		return nil, NewError("ORDER_NUMBER_ERROR", http.StatusInternalServerError,
			"Failed to generate order number")
	}

	order := models.Order{
		OrderNumber: orderNumber,
		CustomerID:  input.CustomerID,
		StaffID:     input.StaffID,
		OrderType:   input.OrderType,
		Status:      models.OrderStatusPending,
		Subtotal:    priced.Subtotal,
		TaxAmount:   priced.TaxAmount,
		TotalAmount: priced.Total,
		Notes:       input.Notes,
		TableNumber: input.TableNumber,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return NewError("ORDER_CREATE_ERROR", http.StatusInternalServerError,
				"Failed to create order")
		}

		items := make([]models.OrderItem, 0, len(priced.Lines))
		for _, line := range priced.Lines {
			items = append(items, models.OrderItem{
				OrderID:             order.ID,
				MenuItemID:          line.MenuItemID,
				Quantity:            line.Quantity,
				UnitPrice:           line.UnitPrice,
				TotalPrice:          line.TotalPrice,
				SpecialInstructions: line.SpecialInstructions,
			})
		}
		if err := tx.Create(&items).Error; err != nil {
			return NewError("ORDER_ITEMS_ERROR", http.StatusInternalServerError,
				"Failed to create order items")
		}

		var links []models.OrderItemModifier
		for i, line := range priced.Lines {
			for _, modifierID := range line.Modifiers {
				links = append(links, models.OrderItemModifier{
					OrderItemID: items[i].ID,
					ModifierID:  modifierID,
				})
			}
		}
		if len(links) > 0 {
			if err := tx.Create(&links).Error; err != nil {
				return NewError("ORDER_ITEMS_ERROR", http.StatusInternalServerError,
					"Failed to attach order item modifiers")
			}
		}

		order.Items = items
		return nil
	})
	if err != nil {
		var svcErr *Error
		if errors.As(err, &svcErr) {
			return nil, svcErr
		}
		return nil, NewError("ORDER_CREATE_ERROR", http.StatusInternalServerError,
			"Failed to create order")
	}

	return &order, nil
}

// UpdateStatus transitions an order to a new status. Transitions only move
// forward through the lifecycle; completing an order stamps completed_at
// once, and re-completing a completed order is a no-op that keeps the
// original timestamp.
func (s *OrderService) UpdateStatus(orderID uint, status models.OrderStatus, estimatedReadyTime *time.Time) (*models.Order, error) {
	if !status.IsValid() {
		return nil, NewError("INVALID_STATUS", http.StatusBadRequest,
			"Status must be one of: %s", orderStatusList())
	}

	var order models.Order
	if err := s.db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewError("ORDER_NOT_FOUND", http.StatusNotFound, "Order not found")
		}
		return nil, NewError("UPDATE_ERROR", http.StatusInternalServerError,
			"Failed to update order status")
	}

	if !order.Status.CanTransitionTo(status) {
		return nil, NewError("INVALID_TRANSITION", http.StatusBadRequest,
			"Cannot transition order from %s to %s", order.Status, status)
	}

	updates := map[string]any{"status": status}
	if status == models.OrderStatusCompleted && order.CompletedAt == nil {
		updates["completed_at"] = s.now()
	}
	if estimatedReadyTime != nil {
		updates["estimated_ready_time"] = *estimatedReadyTime
	}

	if err := s.db.Model(&order).Updates(updates).Error; err != nil {
		return nil, NewError("UPDATE_ERROR", http.StatusInternalServerError,
			"Failed to update order status")
	}

	if err := s.db.First(&order, orderID).Error; err != nil {
		return nil, NewError("UPDATE_ERROR", http.StatusInternalServerError,
			"Failed to load updated order")
	}
	return &order, nil
}

// Cancel marks an order cancelled. Completed and already-cancelled orders
// cannot be cancelled.
func (s *OrderService) Cancel(orderID uint, reason string) (*models.Order, error) {
	var order models.Order
	if err := s.db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewError("ORDER_NOT_FOUND", http.StatusNotFound, "Order not found")
		}
		return nil, NewError("CANCEL_ERROR", http.StatusInternalServerError,
			"Failed to cancel order")
	}

	if order.Status.IsTerminal() {
		return nil, NewError("CANNOT_CANCEL", http.StatusBadRequest,
			"Cannot cancel completed or already cancelled order")
	}

	notes := "Cancelled"
	if reason != "" {
		notes = "Cancelled: " + reason
	}

	updates := map[string]any{
		"status": models.OrderStatusCancelled,
		"notes":  notes,
	}
	if err := s.db.Model(&order).Updates(updates).Error; err != nil {
		return nil, NewError("CANCEL_ERROR", http.StatusInternalServerError,
			"Failed to cancel order")
	}

	order.Status = models.OrderStatusCancelled
	order.Notes = notes
	return &order, nil
}

func orderStatusList() string {
	statuses := models.ValidOrderStatuses()
	names := make([]string, len(statuses))
	for i, status := range statuses {
		names[i] = string(status)
	}
	return strings.Join(names, ", ")
}
