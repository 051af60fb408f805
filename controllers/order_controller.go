package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/harborgrill/pos-backoffice-api/middleware"
	"github.com/harborgrill/pos-backoffice-api/models"
	"github.com/harborgrill/pos-backoffice-api/services"
)

// OrderController handles order creation and lifecycle endpoints
type OrderController struct {
	db     *gorm.DB
	orders *services.OrderService
	audit  *services.AuditService
}

// NewOrderController creates an order controller
func NewOrderController(db *gorm.DB, orders *services.OrderService, audit *services.AuditService) *OrderController {
	return &OrderController{db: db, orders: orders, audit: audit}
}

type createOrderRequest struct {
	CustomerID  *uint                       `json:"customerId"`
	OrderType   models.OrderType            `json:"orderType" binding:"required"`
	Items       []services.OrderLineRequest `json:"items" binding:"required"`
	Notes       string                      `json:"notes"`
	TableNumber string                      `json:"tableNumber"`
	TaxRate     *decimal.Decimal            `json:"taxRate"`
}

// Create prices and persists a new order
func (ctrl *OrderController) Create(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "MISSING_USER", "Authentication required")
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FIELDS",
			"Order type and items are required")
		return
	}

	order, err := ctrl.orders.Create(services.CreateOrderInput{
		StaffID:     user.ID,
		CustomerID:  req.CustomerID,
		OrderType:   req.OrderType,
		Items:       req.Items,
		Notes:       req.Notes,
		TableNumber: req.TableNumber,
		TaxRate:     req.TaxRate,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	ctrl.audit.Record(&user.ID, "order.create", "orders", itoa(order.ID), c.ClientIP(), c.Request.UserAgent())
	respondCreated(c, order)
}

// List returns orders with status/date/customer filters and pagination
func (ctrl *OrderController) List(c *gin.Context) {
	query := ctrl.db.Model(&models.Order{}).
		Preload("Customer").
		Preload("Staff").
		Preload("Items.MenuItem")

	if status := c.Query("status"); status != "" {
		if !models.OrderStatus(status).IsValid() {
			respondError(c, http.StatusBadRequest, "INVALID_STATUS",
				"Status must be one of: "+enumList(models.ValidOrderStatuses()))
			return
		}
		query = query.Where("status = ?", status)
	}
	if customerID := c.Query("customer"); customerID != "" {
		query = query.Where("customer_id = ?", customerID)
	}
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			query = query.Where("created_at >= ?", t)
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			query = query.Where("created_at < ?", t.AddDate(0, 0, 1))
		}
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var orders []models.Order
	// Fetch one extra row to compute hasMore without a count query
	err := query.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit + 1).
		Find(&orders).Error
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FETCH_ERROR", "Failed to fetch orders")
		return
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	respondOK(c, gin.H{
		"orders": orders,
		"pagination": gin.H{
			"page":    page,
			"limit":   limit,
			"hasMore": hasMore,
		},
	})
}

// Get returns a single order with full expansion
func (ctrl *OrderController) Get(c *gin.Context) {
	var order models.Order
	err := ctrl.db.Preload("Customer").
		Preload("Staff").
		Preload("Items.MenuItem").
		Preload("Items.Modifiers.Modifier").
		Preload("Payments").
		First(&order, c.Param("id")).Error
	if err != nil {
		respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		return
	}

	respondOK(c, order)
}

type updateStatusRequest struct {
	Status             models.OrderStatus `json:"status" binding:"required"`
	EstimatedReadyTime *time.Time         `json:"estimatedReadyTime"`
}

// UpdateStatus moves an order through its lifecycle
func (ctrl *OrderController) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_STATUS",
			"Status must be one of: "+enumList(models.ValidOrderStatuses()))
		return
	}

	order, err := ctrl.orders.UpdateStatus(uint(id), req.Status, req.EstimatedReadyTime)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if user, err := middleware.CurrentUser(c); err == nil {
		ctrl.audit.Record(&user.ID, "order.update_status", "orders", itoa(order.ID), c.ClientIP(), c.Request.UserAgent())
	}
	respondOK(c, order)
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

// Cancel cancels an order. Manager+.
func (ctrl *OrderController) Cancel(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		return
	}

	var req cancelOrderRequest
	_ = c.ShouldBindJSON(&req)

	order, err := ctrl.orders.Cancel(uint(id), req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if user, err := middleware.CurrentUser(c); err == nil {
		ctrl.audit.Record(&user.ID, "order.cancel", "orders", itoa(order.ID), c.ClientIP(), c.Request.UserAgent())
	}
	respondOK(c, order)
}
