package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/harborgrill/pos-backoffice-api/middleware"
	"github.com/harborgrill/pos-backoffice-api/models"
	"github.com/harborgrill/pos-backoffice-api/services"
)

// InventoryController handles stock items, adjustments, and suppliers
type InventoryController struct {
	db    *gorm.DB
	audit *services.AuditService
}

// NewInventoryController creates an inventory controller
func NewInventoryController(db *gorm.DB, audit *services.AuditService) *InventoryController {
	return &InventoryController{db: db, audit: audit}
}

// List returns inventory items, optionally filtered to low stock
func (ctrl *InventoryController) List(c *gin.Context) {
	query := ctrl.db.Preload("Supplier")

	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR sku LIKE ?", like, like)
	}
	if c.Query("lowStock") == "true" {
		query = query.Where("current_stock <= minimum_stock")
	}

	var items []models.InventoryItem
	if err := query.Order("name ASC").Find(&items).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "FETCH_ERROR", "Failed to fetch inventory")
		return
	}

	respondOK(c, items)
}

// Get returns a single inventory item
func (ctrl *InventoryController) Get(c *gin.Context) {
	var item models.InventoryItem
	if err := ctrl.db.Preload("Supplier").First(&item, c.Param("id")).Error; err != nil {
		respondError(c, http.StatusNotFound, "ITEM_NOT_FOUND", "Inventory item not found")
		return
	}
	respondOK(c, item)
}

type createInventoryRequest struct {
	Name          string           `json:"name" binding:"required"`
	SKU           *string          `json:"sku"`
	UnitOfMeasure string           `json:"unitOfMeasure" binding:"required"`
	CurrentStock  decimal.Decimal  `json:"currentStock"`
	MinimumStock  decimal.Decimal  `json:"minimumStock"`
	MaximumStock  *decimal.Decimal `json:"maximumStock"`
	CostPerUnit   decimal.Decimal  `json:"costPerUnit"`
	SupplierID    *uint            `json:"supplierId"`
}

// Create adds an inventory item. Manager+.
func (ctrl *InventoryController) Create(c *gin.Context) {
	var req createInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FIELDS",
			"Name and unit of measure are required")
		return
	}

	if req.CurrentStock.IsNegative() || req.MinimumStock.IsNegative() {
		respondError(c, http.StatusBadRequest, "NEGATIVE_STOCK",
			"Stock levels cannot be negative")
		return
	}

	if req.SKU != nil {
		var existing models.InventoryItem
		if err := ctrl.db.Where("sku = ?", *req.SKU).First(&existing).Error; err == nil {
			respondError(c, http.StatusConflict, "SKU_EXISTS",
				"An inventory item with this SKU already exists")
			return
		}
	}

	if req.SupplierID != nil {
		var supplier models.Supplier
		if err := ctrl.db.First(&supplier, *req.SupplierID).Error; err != nil {
			respondError(c, http.StatusBadRequest, "SUPPLIER_NOT_FOUND", "Supplier not found")
			return
		}
	}

	item := models.InventoryItem{
		Name:          req.Name,
		SKU:           req.SKU,
		UnitOfMeasure: req.UnitOfMeasure,
		CurrentStock:  req.CurrentStock,
		MinimumStock:  req.MinimumStock,
		MaximumStock:  req.MaximumStock,
		CostPerUnit:   req.CostPerUnit,
		SupplierID:    req.SupplierID,
	}
	if err := ctrl.db.Create(&item).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "CREATE_ERROR", "Failed to create inventory item")
		return
	}

	if user, err := middleware.CurrentUser(c); err == nil {
		ctrl.audit.Record(&user.ID, "inventory.create", "inventory_items", itoa(item.ID), c.ClientIP(), c.Request.UserAgent())
	}
	respondCreated(c, item)
}

type updateInventoryRequest struct {
	Name          *string          `json:"name"`
	SKU           *string          `json:"sku"`
	UnitOfMeasure *string          `json:"unitOfMeasure"`
	MinimumStock  *decimal.Decimal `json:"minimumStock"`
	MaximumStock  *decimal.Decimal `json:"maximumStock"`
	CostPerUnit   *decimal.Decimal `json:"costPerUnit"`
	SupplierID    *uint            `json:"supplierId"`
}

// Update partially updates an inventory item. Stock levels change through
// Adjust, not here. Manager+.
func (ctrl *InventoryController) Update(c *gin.Context) {
	var item models.InventoryItem
	if err := ctrl.db.First(&item, c.Param("id")).Error; err != nil {
		respondError(c, http.StatusNotFound, "ITEM_NOT_FOUND", "Inventory item not found")
		return
	}

	var req updateInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.SKU != nil {
		var existing models.InventoryItem
		if err := ctrl.db.Where("sku = ? AND id != ?", *req.SKU, item.ID).First(&existing).Error; err == nil {
			respondError(c, http.StatusConflict, "SKU_EXISTS",
				"An inventory item with this SKU already exists")
			return
		}
		updates["sku"] = *req.SKU
	}
	if req.UnitOfMeasure != nil {
		updates["unit_of_measure"] = *req.UnitOfMeasure
	}
	if req.MinimumStock != nil {
		if req.MinimumStock.IsNegative() {
			respondError(c, http.StatusBadRequest, "NEGATIVE_STOCK",
				"Minimum stock cannot be negative")
			return
		}
		updates["minimum_stock"] = *req.MinimumStock
	}
	if req.MaximumStock != nil {
		updates["maximum_stock"] = *req.MaximumStock
	}
	if req.CostPerUnit != nil {
		updates["cost_per_unit"] = *req.CostPerUnit
	}
	if req.SupplierID != nil {
		var supplier models.Supplier
		if err := ctrl.db.First(&supplier, *req.SupplierID).Error; err != nil {
			respondError(c, http.StatusBadRequest, "SUPPLIER_NOT_FOUND", "Supplier not found")
			return
		}
		updates["supplier_id"] = *req.SupplierID
	}

	if len(updates) == 0 {
		respondError(c, http.StatusBadRequest, "MISSING_FIELDS", "No fields to update")
		return
	}

	if err := ctrl.db.Model(&item).Updates(updates).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "UPDATE_ERROR", "Failed to update inventory item")
		return
	}

	ctrl.db.Preload("Supplier").First(&item, item.ID)
	respondOK(c, item)
}

// Delete soft-deletes an inventory item. Manager+.
func (ctrl *InventoryController) Delete(c *gin.Context) {
	var item models.InventoryItem
	if err := ctrl.db.First(&item, c.Param("id")).Error; err != nil {
		respondError(c, http.StatusNotFound, "ITEM_NOT_FOUND", "Inventory item not found")
		return
	}

	if err := ctrl.db.Delete(&item).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DELETE_ERROR", "Failed to delete inventory item")
		return
	}

	if user, err := middleware.CurrentUser(c); err == nil {
		ctrl.audit.Record(&user.ID, "inventory.delete", "inventory_items", itoa(item.ID), c.ClientIP(), c.Request.UserAgent())
	}
	respondOK(c, gin.H{"message": "Inventory item deleted successfully"})
}

type adjustStockRequest struct {
	AdjustmentType models.StockAdjustmentType `json:"adjustmentType" binding:"required"`
	Quantity       decimal.Decimal            `json:"quantity" binding:"required"`
	Notes          string                     `json:"notes"`
}

// Adjust changes an item's stock level. Restocks add; waste and sales
// subtract; plain adjustments carry their own sign. Stock never goes
// negative.
func (ctrl *InventoryController) Adjust(c *gin.Context) {
	var item models.InventoryItem
	if err := ctrl.db.First(&item, c.Param("id")).Error; err != nil {
		respondError(c, http.StatusNotFound, "ITEM_NOT_FOUND", "Inventory item not found")
		return
	}

	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FIELDS",
			"Adjustment type and quantity are required")
		return
	}

	if !req.AdjustmentType.IsValid() {
		respondError(c, http.StatusBadRequest, "INVALID_ADJUSTMENT_TYPE",
			"Adjustment type must be one of: "+enumList(models.ValidStockAdjustmentTypes()))
		return
	}

	delta := req.Quantity
	switch req.AdjustmentType {
	case models.StockWaste, models.StockSale:
		delta = req.Quantity.Neg()
	}

	newStock := item.CurrentStock.Add(delta)
	if newStock.IsNegative() {
		respondError(c, http.StatusBadRequest, "NEGATIVE_STOCK",
			"Adjustment would make stock negative")
		return
	}

	updates := map[string]any{"current_stock": newStock}
	if req.AdjustmentType == models.StockRestock {
		updates["last_restocked"] = time.Now()
	}

	if err := ctrl.db.Model(&item).Updates(updates).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "UPDATE_ERROR", "Failed to adjust stock")
		return
	}

	if user, err := middleware.CurrentUser(c); err == nil {
		ctrl.audit.Record(&user.ID, "inventory.adjust", "inventory_items", itoa(item.ID), c.ClientIP(), c.Request.UserAgent())
	}

	ctrl.db.Preload("Supplier").First(&item, item.ID)
	respondOK(c, gin.H{
		"item":     item,
		"newStock": newStock,
	})
}

// Alerts returns low-stock items with a severity per item
func (ctrl *InventoryController) Alerts(c *gin.Context) {
	var items []models.InventoryItem
	err := ctrl.db.Where("current_stock <= minimum_stock").
		Order("current_stock ASC").
		Find(&items).Error
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FETCH_ERROR", "Failed to fetch alerts")
		return
	}

	alerts := make([]gin.H, 0, len(items))
	for _, item := range items {
		severity := "warning"
		if item.CurrentStock.IsZero() {
			severity = "critical"
		}
		alerts = append(alerts, gin.H{
			"item":     item,
			"severity": severity,
		})
	}

	respondOK(c, alerts)
}

type createSupplierRequest struct {
	Name          string `json:"name" binding:"required"`
	ContactPerson string `json:"contactPerson"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
}

// CreateSupplier registers a supplier. Manager+.
func (ctrl *InventoryController) CreateSupplier(c *gin.Context) {
	var req createSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FIELDS", "Supplier name is required")
		return
	}

	supplier := models.Supplier{
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		IsActive:      true,
	}
	if err := ctrl.db.Create(&supplier).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "CREATE_ERROR", "Failed to create supplier")
		return
	}

	respondCreated(c, supplier)
}

// ListSuppliers returns active suppliers with their item counts
func (ctrl *InventoryController) ListSuppliers(c *gin.Context) {
	var suppliers []models.Supplier
	if err := ctrl.db.Where("is_active = ?", true).Order("name ASC").Find(&suppliers).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "FETCH_ERROR", "Failed to fetch suppliers")
		return
	}

	result := make([]gin.H, 0, len(suppliers))
	for _, supplier := range suppliers {
		var count int64
		ctrl.db.Model(&models.InventoryItem{}).Where("supplier_id = ?", supplier.ID).Count(&count)
		result = append(result, gin.H{
			"supplier":  supplier,
			"itemCount": count,
		})
	}

	respondOK(c, result)
}
