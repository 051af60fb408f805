package controllers

import (
	"net/http"
	"net/mail"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/harborgrill/pos-backoffice-api/middleware"
	"github.com/harborgrill/pos-backoffice-api/models"
	"github.com/harborgrill/pos-backoffice-api/services"
)

// CustomerController handles loyalty-program members
type CustomerController struct {
	db    *gorm.DB
	audit *services.AuditService
}

// NewCustomerController creates a customer controller
func NewCustomerController(db *gorm.DB, audit *services.AuditService) *CustomerController {
	return &CustomerController{db: db, audit: audit}
}

// List returns customers with search and pagination
func (ctrl *CustomerController) List(c *gin.Context) {
	query := ctrl.db.Model(&models.Customer{})

	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("first_name LIKE ? OR last_name LIKE ? OR email LIKE ? OR phone LIKE ?",
			like, like, like, like)
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var customers []models.Customer
	err := query.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit + 1).
		Find(&customers).Error
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FETCH_ERROR", "Failed to fetch customers")
		return
	}

	hasMore := len(customers) > limit
	if hasMore {
		customers = customers[:limit]
	}

	respondOK(c, gin.H{
		"customers": customers,
		"pagination": gin.H{
			"page":    page,
			"limit":   limit,
			"hasMore": hasMore,
		},
	})
}

// Get returns a customer with recent orders and the loyalty ledger
func (ctrl *CustomerController) Get(c *gin.Context) {
	var customer models.Customer
	err := ctrl.db.Preload("Orders", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at DESC").Limit(10)
	}).Preload("Transactions", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at DESC").Limit(20)
	}).First(&customer, c.Param("id")).Error
	if err != nil {
		respondError(c, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "Customer not found")
		return
	}

	respondOK(c, customer)
}

type createCustomerRequest struct {
	FirstName   string         `json:"firstName" binding:"required"`
	LastName    string         `json:"lastName"`
	Email       *string        `json:"email"`
	Phone       *string        `json:"phone"`
	Preferences map[string]any `json:"preferences"`
}

// Create registers a new customer. Email and phone are optional but must
// not collide with an existing customer.
func (ctrl *CustomerController) Create(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FIELDS", "First name is required")
		return
	}

	if req.Email != nil {
		if _, err := mail.ParseAddress(*req.Email); err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_EMAIL", "Invalid email address")
			return
		}
		var existing models.Customer
		if err := ctrl.db.Where("email = ?", *req.Email).First(&existing).Error; err == nil {
			respondError(c, http.StatusConflict, "CUSTOMER_EXISTS",
				"A customer with this email already exists")
			return
		}
	}
	if req.Phone != nil {
		var existing models.Customer
		if err := ctrl.db.Where("phone = ?", *req.Phone).First(&existing).Error; err == nil {
			respondError(c, http.StatusConflict, "CUSTOMER_EXISTS",
				"A customer with this phone number already exists")
			return
		}
	}

	customer := models.Customer{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		Preferences: req.Preferences,
	}
	if err := ctrl.db.Create(&customer).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "CREATE_ERROR", "Failed to create customer")
		return
	}

	if user, err := middleware.CurrentUser(c); err == nil {
		ctrl.audit.Record(&user.ID, "customer.create", "customers", itoa(customer.ID), c.ClientIP(), c.Request.UserAgent())
	}
	respondCreated(c, customer)
}

type updateCustomerRequest struct {
	FirstName   *string        `json:"firstName"`
	LastName    *string        `json:"lastName"`
	Email       *string        `json:"email"`
	Phone       *string        `json:"phone"`
	Preferences map[string]any `json:"preferences"`
}

// Update partially updates a customer
func (ctrl *CustomerController) Update(c *gin.Context) {
	var customer models.Customer
	if err := ctrl.db.First(&customer, c.Param("id")).Error; err != nil {
		respondError(c, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "Customer not found")
		return
	}

	var req updateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	updates := map[string]any{}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.Email != nil {
		if _, err := mail.ParseAddress(*req.Email); err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_EMAIL", "Invalid email address")
			return
		}
		var existing models.Customer
		if err := ctrl.db.Where("email = ? AND id != ?", *req.Email, customer.ID).First(&existing).Error; err == nil {
			respondError(c, http.StatusConflict, "CUSTOMER_EXISTS",
				"A customer with this email already exists")
			return
		}
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		var existing models.Customer
		if err := ctrl.db.Where("phone = ? AND id != ?", *req.Phone, customer.ID).First(&existing).Error; err == nil {
			respondError(c, http.StatusConflict, "CUSTOMER_EXISTS",
				"A customer with this phone number already exists")
			return
		}
		updates["phone"] = *req.Phone
	}
	if req.Preferences != nil {
		updates["preferences"] = req.Preferences
	}

	if len(updates) == 0 {
		respondError(c, http.StatusBadRequest, "MISSING_FIELDS", "No fields to update")
		return
	}

	if err := ctrl.db.Model(&customer).Updates(updates).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "UPDATE_ERROR", "Failed to update customer")
		return
	}

	ctrl.db.First(&customer, customer.ID)
	respondOK(c, customer)
}

// Delete soft-deletes a customer without order history
func (ctrl *CustomerController) Delete(c *gin.Context) {
	var customer models.Customer
	if err := ctrl.db.First(&customer, c.Param("id")).Error; err != nil {
		respondError(c, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "Customer not found")
		return
	}

	var orderCount int64
	ctrl.db.Model(&models.Order{}).Where("customer_id = ?", customer.ID).Count(&orderCount)
	if orderCount > 0 {
		respondError(c, http.StatusConflict, "HAS_ORDERS",
			"Cannot delete a customer with order history")
		return
	}

	if err := ctrl.db.Delete(&customer).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DELETE_ERROR", "Failed to delete customer")
		return
	}

	if user, err := middleware.CurrentUser(c); err == nil {
		ctrl.audit.Record(&user.ID, "customer.delete", "customers", itoa(customer.ID), c.ClientIP(), c.Request.UserAgent())
	}
	respondOK(c, gin.H{"message": "Customer deleted successfully"})
}

type loyaltyRequest struct {
	TransactionType models.LoyaltyTransactionType `json:"transactionType" binding:"required"`
	Points          int                           `json:"points" binding:"required,gt=0"`
	Description     string                        `json:"description"`
}

// AdjustLoyalty writes a loyalty-ledger entry and updates the customer's
// balance in one transaction. Redemptions and expirations subtract;
// balances never go negative.
func (ctrl *CustomerController) AdjustLoyalty(c *gin.Context) {
	var customer models.Customer
	if err := ctrl.db.First(&customer, c.Param("id")).Error; err != nil {
		respondError(c, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "Customer not found")
		return
	}

	var req loyaltyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FIELDS",
			"Transaction type and a positive points value are required")
		return
	}

	if !req.TransactionType.IsValid() {
		respondError(c, http.StatusBadRequest, "INVALID_TRANSACTION_TYPE",
			"Transaction type must be one of: "+enumList(models.ValidLoyaltyTransactionTypes()))
		return
	}

	delta := req.Points
	if req.TransactionType == models.LoyaltyRedeemed || req.TransactionType == models.LoyaltyExpired {
		delta = -req.Points
	}

	newBalance := customer.LoyaltyPoints + delta
	if newBalance < 0 {
		respondError(c, http.StatusBadRequest, "INSUFFICIENT_POINTS",
			"Customer does not have enough loyalty points")
		return
	}

	entry := models.LoyaltyTransaction{
		CustomerID:      customer.ID,
		TransactionType: req.TransactionType,
		Points:          delta,
		Description:     req.Description,
	}

	err := ctrl.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return tx.Model(&models.Customer{}).
			Where("id = ?", customer.ID).
			Update("loyalty_points", newBalance).Error
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "LOYALTY_ERROR",
			"Failed to record loyalty transaction")
		return
	}

	if user, err := middleware.CurrentUser(c); err == nil {
		ctrl.audit.Record(&user.ID, "customer.adjust_loyalty", "customers", itoa(customer.ID), c.ClientIP(), c.Request.UserAgent())
	}

	respondOK(c, gin.H{
		"transaction": entry,
		"newBalance":  newBalance,
	})
}
