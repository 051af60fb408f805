package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/harborgrill/pos-backoffice-api/middleware"
	"github.com/harborgrill/pos-backoffice-api/models"
	"github.com/harborgrill/pos-backoffice-api/services"
	"github.com/harborgrill/pos-backoffice-api/utils"
)

// MenuController handles categories, items, and modifiers
type MenuController struct {
	db     *gorm.DB
	images services.ImageService
	audit  *services.AuditService
}

// NewMenuController creates a menu controller
func NewMenuController(db *gorm.DB, images services.ImageService, audit *services.AuditService) *MenuController {
	return &MenuController{db: db, images: images, audit: audit}
}

func (ctrl *MenuController) resolveItemImage(item *models.MenuItem) {
	if item.ImageS3Key == nil {
		return
	}
	url, err := ctrl.images.GetImageURL(*item.ImageS3Key)
	if err == nil {
		item.ImageURL = url
	}
}

func (ctrl *MenuController) resolveCategoryImage(category *models.MenuCategory) {
	if category.ImageS3Key == nil {
		return
	}
	url, err := ctrl.images.GetImageURL(*category.ImageS3Key)
	if err == nil {
		category.ImageURL = url
	}
}

// ListCategories returns active categories ordered for display
func (ctrl *MenuController) ListCategories(c *gin.Context) {
	var categories []models.MenuCategory
	if err := ctrl.db.Where("is_active = ?", true).Order("display_order ASC").Find(&categories).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "FETCH_ERROR", "Failed to fetch categories")
		return
	}

	for i := range categories {
		ctrl.resolveCategoryImage(&categories[i])
	}
	respondOK(c, categories)
}

type createCategoryRequest struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	DisplayOrder int    `json:"displayOrder"`
}

// CreateCategory adds a menu category. Manager+.
func (ctrl *MenuController) CreateCategory(c *gin.Context) {
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FIELDS", "Category name is required")
		return
	}

	category := models.MenuCategory{
		Name:         req.Name,
		Description:  req.Description,
		DisplayOrder: req.DisplayOrder,
		IsActive:     true,
	}
	if err := ctrl.db.Create(&category).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "CREATE_ERROR", "Failed to create category")
		return
	}

	if user, err := middleware.CurrentUser(c); err == nil {
		ctrl.audit.Record(&user.ID, "menu.create_category", "menu_categories", itoa(category.ID), c.ClientIP(), c.Request.UserAgent())
	}
	respondCreated(c, category)
}

// ListItems returns menu items, optionally filtered by category,
// availability, and a name/description search term
func (ctrl *MenuController) ListItems(c *gin.Context) {
	query := ctrl.db.Preload("Category").
		Preload("ModifierGroups", func(db *gorm.DB) *gorm.DB {
			return db.Order("modifier_groups.display_order ASC")
		}).
		Preload("ModifierGroups.Modifiers", func(db *gorm.DB) *gorm.DB {
			return db.Order("modifiers.display_order ASC")
		})

	if categoryID := c.Query("category"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	if available := c.Query("available"); available != "" {
		query = query.Where("is_available = ?", available == "true")
	}
	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}

	var items []models.MenuItem
	if err := query.Order("name ASC").Find(&items).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "FETCH_ERROR", "Failed to fetch menu items")
		return
	}

	for i := range items {
		ctrl.resolveItemImage(&items[i])
	}
	respondOK(c, items)
}

// GetItem returns a single menu item with its modifier groups
func (ctrl *MenuController) GetItem(c *gin.Context) {
	var item models.MenuItem
	err := ctrl.db.Preload("Category").
		Preload("ModifierGroups.Modifiers").
		First(&item, c.Param("id")).Error
	if err != nil {
		respondError(c, http.StatusNotFound, "MENU_ITEM_NOT_FOUND", "Menu item not found")
		return
	}

	ctrl.resolveItemImage(&item)
	respondOK(c, item)
}

type createItemRequest struct {
	CategoryID          uint             `json:"categoryId" binding:"required"`
	Name                string           `json:"name" binding:"required"`
	Description         string           `json:"description"`
	Price               decimal.Decimal  `json:"price" binding:"required"`
	Cost                *decimal.Decimal `json:"cost"`
	PrepTimeMinutes     int              `json:"prepTimeMinutes"`
	Calories            *int             `json:"calories"`
	DietaryRestrictions []string         `json:"dietaryRestrictions"`
	Allergens           []string         `json:"allergens"`
	ModifierGroupIDs    []uint           `json:"modifierGroupIds"`
}

// CreateItem adds a menu item and links its modifier groups. Manager+.
func (ctrl *MenuController) CreateItem(c *gin.Context) {
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FIELDS",
			"Category, name and price are required")
		return
	}

	if req.Price.IsNegative() {
		respondError(c, http.StatusBadRequest, "INVALID_PRICE", "Price cannot be negative")
		return
	}

	var category models.MenuCategory
	if err := ctrl.db.First(&category, req.CategoryID).Error; err != nil {
		respondError(c, http.StatusBadRequest, "CATEGORY_NOT_FOUND", "Category not found")
		return
	}

	item := models.MenuItem{
		CategoryID:          req.CategoryID,
		Name:                req.Name,
		Description:         req.Description,
		Price:               req.Price,
		Cost:                req.Cost,
		PrepTimeMinutes:     req.PrepTimeMinutes,
		Calories:            req.Calories,
		IsAvailable:         true,
		DietaryRestrictions: req.DietaryRestrictions,
		Allergens:           req.Allergens,
	}

	err := ctrl.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
		if len(req.ModifierGroupIDs) > 0 {
			var groups []models.ModifierGroup
			if err := tx.Find(&groups, req.ModifierGroupIDs).Error; err != nil {
				return err
			}
			if err := tx.Model(&item).Association("ModifierGroups").Append(&groups); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "CREATE_ERROR", "Failed to create menu item")
		return
	}

	if user, err := middleware.CurrentUser(c); err == nil {
		ctrl.audit.Record(&user.ID, "menu.create_item", "menu_items", itoa(item.ID), c.ClientIP(), c.Request.UserAgent())
	}
	respondCreated(c, item)
}

type updateItemRequest struct {
	Name                *string          `json:"name"`
	Description         *string          `json:"description"`
	Price               *decimal.Decimal `json:"price"`
	Cost                *decimal.Decimal `json:"cost"`
	CategoryID          *uint            `json:"categoryId"`
	PrepTimeMinutes     *int             `json:"prepTimeMinutes"`
	Calories            *int             `json:"calories"`
	IsAvailable         *bool            `json:"isAvailable"`
	IsFeatured          *bool            `json:"isFeatured"`
	DietaryRestrictions []string         `json:"dietaryRestrictions"`
	Allergens           []string         `json:"allergens"`
}

// UpdateItem partially updates a menu item. Manager+.
func (ctrl *MenuController) UpdateItem(c *gin.Context) {
	var item models.MenuItem
	if err := ctrl.db.First(&item, c.Param("id")).Error; err != nil {
		respondError(c, http.StatusNotFound, "MENU_ITEM_NOT_FOUND", "Menu item not found")
		return
	}

	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			respondError(c, http.StatusBadRequest, "INVALID_PRICE", "Price cannot be negative")
			return
		}
		updates["price"] = *req.Price
	}
	if req.Cost != nil {
		updates["cost"] = *req.Cost
	}
	if req.CategoryID != nil {
		var category models.MenuCategory
		if err := ctrl.db.First(&category, *req.CategoryID).Error; err != nil {
			respondError(c, http.StatusBadRequest, "CATEGORY_NOT_FOUND", "Category not found")
			return
		}
		updates["category_id"] = *req.CategoryID
	}
	if req.PrepTimeMinutes != nil {
		updates["prep_time_minutes"] = *req.PrepTimeMinutes
	}
	if req.Calories != nil {
		updates["calories"] = *req.Calories
	}
	if req.IsAvailable != nil {
		updates["is_available"] = *req.IsAvailable
	}
	if req.IsFeatured != nil {
		updates["is_featured"] = *req.IsFeatured
	}
	if req.DietaryRestrictions != nil {
		updates["dietary_restrictions"] = req.DietaryRestrictions
	}
	if req.Allergens != nil {
		updates["allergens"] = req.Allergens
	}

	if len(updates) == 0 {
		respondError(c, http.StatusBadRequest, "MISSING_FIELDS", "No fields to update")
		return
	}

	if err := ctrl.db.Model(&item).Updates(updates).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "UPDATE_ERROR", "Failed to update menu item")
		return
	}

	ctrl.db.Preload("Category").First(&item, item.ID)
	if user, err := middleware.CurrentUser(c); err == nil {
		ctrl.audit.Record(&user.ID, "menu.update_item", "menu_items", itoa(item.ID), c.ClientIP(), c.Request.UserAgent())
	}
	respondOK(c, item)
}

// DeleteItem soft-deletes a menu item. Manager+.
func (ctrl *MenuController) DeleteItem(c *gin.Context) {
	var item models.MenuItem
	if err := ctrl.db.First(&item, c.Param("id")).Error; err != nil {
		respondError(c, http.StatusNotFound, "MENU_ITEM_NOT_FOUND", "Menu item not found")
		return
	}

	if err := ctrl.db.Delete(&item).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DELETE_ERROR", "Failed to delete menu item")
		return
	}

	if user, err := middleware.CurrentUser(c); err == nil {
		ctrl.audit.Record(&user.ID, "menu.delete_item", "menu_items", itoa(item.ID), c.ClientIP(), c.Request.UserAgent())
	}
	respondOK(c, gin.H{"message": "Menu item deleted successfully"})
}

// ListModifierGroups returns all modifier groups with their modifiers
func (ctrl *MenuController) ListModifierGroups(c *gin.Context) {
	var groups []models.ModifierGroup
	err := ctrl.db.Preload("Modifiers", func(db *gorm.DB) *gorm.DB {
		return db.Order("modifiers.display_order ASC")
	}).Order("display_order ASC").Find(&groups).Error
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FETCH_ERROR", "Failed to fetch modifier groups")
		return
	}
	respondOK(c, groups)
}

// UploadItemImage stores a menu item image in S3 and links it to the item.
// Manager+.
func (ctrl *MenuController) UploadItemImage(c *gin.Context) {
	var item models.MenuItem
	if err := ctrl.db.First(&item, c.Param("id")).Error; err != nil {
		respondError(c, http.StatusNotFound, "MENU_ITEM_NOT_FOUND", "Menu item not found")
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "Image file is required")
		return
	}

	s3Key, err := ctrl.images.UploadImage(fileHeader)
	if err != nil {
		var uploadErr *utils.FileUploadError
		if errors.As(err, &uploadErr) {
			respondError(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message)
			return
		}
		respondError(c, http.StatusInternalServerError, "UPLOAD_ERROR", "Failed to upload image")
		return
	}

	// Replace any previous image
	if item.ImageS3Key != nil && *item.ImageS3Key != s3Key {
		if err := ctrl.images.DeleteImage(*item.ImageS3Key); err != nil {
			respondError(c, http.StatusInternalServerError, "UPLOAD_ERROR", "Failed to replace image")
			return
		}
	}

	if err := ctrl.db.Model(&item).Update("image_s3_key", s3Key).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "UPLOAD_ERROR", "Failed to save image reference")
		return
	}

	url, _ := ctrl.images.GetImageURL(s3Key)
	if user, err := middleware.CurrentUser(c); err == nil {
		ctrl.audit.Record(&user.ID, "menu.upload_image", "menu_items", itoa(item.ID), c.ClientIP(), c.Request.UserAgent())
	}
	respondOK(c, gin.H{"imageUrl": url})
}
