package controllers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborgrill/pos-backoffice-api/middleware"
	"github.com/harborgrill/pos-backoffice-api/models"
)

func newMenuRouter(env *testEnv) *gin.Engine {
	ctrl := NewMenuController(env.db, env.images, env.audit)

	router := gin.New()
	menu := router.Group("/api/menu")
	menu.GET("/categories", ctrl.ListCategories)
	menu.GET("/items", ctrl.ListItems)
	menu.GET("/items/:id", ctrl.GetItem)
	menu.GET("/modifier-groups", ctrl.ListModifierGroups)

	manage := menu.Group("", env.requireAuth(), middleware.RequirePermission(models.RoleManager))
	manage.POST("/categories", ctrl.CreateCategory)
	manage.POST("/items", ctrl.CreateItem)
	manage.PUT("/items/:id", ctrl.UpdateItem)
	manage.DELETE("/items/:id", ctrl.DeleteItem)
	manage.POST("/items/:id/image", ctrl.UploadItemImage)
	return router
}

func TestListCategories(t *testing.T) {
	env := newTestEnv(t)
	router := newMenuRouter(env)

	require.NoError(t, env.db.Create(&[]models.MenuCategory{
		{Name: "Desserts", DisplayOrder: 3, IsActive: true},
		{Name: "Starters", DisplayOrder: 1, IsActive: true},
		{Name: "Retired", DisplayOrder: 2, IsActive: false},
	}).Error)

	w, response := performRequest(t, router, http.MethodGet, "/api/menu/categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	categories := response["data"].([]any)
	require.Len(t, categories, 2)
	assert.Equal(t, "Starters", categories[0].(map[string]any)["name"])
	assert.Equal(t, "Desserts", categories[1].(map[string]any)["name"])
}

func TestCreateCategoryRequiresManager(t *testing.T) {
	env := newTestEnv(t)
	router := newMenuRouter(env)
	_, staffToken := env.createUser(t, "staff@harborgrill.test", models.RoleStaff)
	_, managerToken := env.createUser(t, "manager@harborgrill.test", models.RoleManager)

	w, response := performRequest(t, router, http.MethodPost, "/api/menu/categories", staffToken, map[string]any{
		"name": "Sides",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "INSUFFICIENT_PERMISSIONS", errorCode(t, response))

	w, response = performRequest(t, router, http.MethodPost, "/api/menu/categories", managerToken, map[string]any{
		"name":         "Sides",
		"displayOrder": 4,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	data := dataOf(t, response)
	assert.Equal(t, "Sides", data["name"])
	assert.Equal(t, true, data["is_active"])
}

func TestCreateItem(t *testing.T) {
	env := newTestEnv(t)
	router := newMenuRouter(env)
	_, token := env.createUser(t, "manager@harborgrill.test", models.RoleManager)

	category := models.MenuCategory{Name: "Mains", IsActive: true}
	require.NoError(t, env.db.Create(&category).Error)
	group := models.ModifierGroup{Name: "Toppings"}
	require.NoError(t, env.db.Create(&group).Error)

	tests := []struct {
		name     string
		body     map[string]any
		wantCode int
		wantErr  string
	}{
		{
			name: "created with modifier group",
			body: map[string]any{
				"categoryId":       category.ID,
				"name":             "Fish Tacos",
				"price":            "13.75",
				"cost":             "4.20",
				"modifierGroupIds": []uint{group.ID},
			},
			wantCode: http.StatusCreated,
		},
		{
			name: "negative price",
			body: map[string]any{
				"categoryId": category.ID,
				"name":       "Antimatter",
				"price":      "-1.00",
			},
			wantCode: http.StatusBadRequest,
			wantErr:  "INVALID_PRICE",
		},
		{
			name: "unknown category",
			body: map[string]any{
				"categoryId": 9999,
				"name":       "Orphan",
				"price":      "5.00",
			},
			wantCode: http.StatusBadRequest,
			wantErr:  "CATEGORY_NOT_FOUND",
		},
		{
			name:     "missing fields",
			body:     map[string]any{"name": "No price"},
			wantCode: http.StatusBadRequest,
			wantErr:  "MISSING_FIELDS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, response := performRequest(t, router, http.MethodPost, "/api/menu/items", token, tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, errorCode(t, response))
				return
			}

			data := dataOf(t, response)
			assert.Equal(t, "Fish Tacos", data["name"])
			requireDecimalEqual(t, "13.75", data["price"])

			var count int64
			env.db.Table("item_modifier_groups").Count(&count)
			assert.Equal(t, int64(1), count)
		})
	}
}

func TestListItemsFilters(t *testing.T) {
	env := newTestEnv(t)
	router := newMenuRouter(env)
	item, _ := env.seedMenu(t)

	other := models.MenuItem{
		CategoryID:  item.CategoryID,
		Name:        "Clam Chowder",
		Price:       decimal.RequireFromString("6.50"),
		IsAvailable: false,
	}
	require.NoError(t, env.db.Create(&other).Error)

	w, response := performRequest(t, router, http.MethodGet, "/api/menu/items", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, response["data"].([]any), 2)

	w, response = performRequest(t, router, http.MethodGet, "/api/menu/items?available=true", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := response["data"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, item.Name, items[0].(map[string]any)["name"])

	w, response = performRequest(t, router, http.MethodGet, "/api/menu/items?search=chowder", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items = response["data"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Clam Chowder", items[0].(map[string]any)["name"])
}

func TestGetItemWithModifiers(t *testing.T) {
	env := newTestEnv(t)
	router := newMenuRouter(env)
	item, _ := env.seedMenu(t)

	w, response := performRequest(t, router, http.MethodGet, "/api/menu/items/"+itoa(item.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := dataOf(t, response)
	assert.Equal(t, item.Name, data["name"])
	groups := data["modifier_groups"].([]any)
	require.Len(t, groups, 1)
	modifiers := groups[0].(map[string]any)["modifiers"].([]any)
	require.Len(t, modifiers, 1)
	assert.Equal(t, "Extra Cheese", modifiers[0].(map[string]any)["name"])

	w, response = performRequest(t, router, http.MethodGet, "/api/menu/items/9999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "MENU_ITEM_NOT_FOUND", errorCode(t, response))
}

func TestUpdateItem(t *testing.T) {
	env := newTestEnv(t)
	router := newMenuRouter(env)
	_, token := env.createUser(t, "manager@harborgrill.test", models.RoleManager)
	item, _ := env.seedMenu(t)
	path := "/api/menu/items/" + itoa(item.ID)

	// Partial update leaves other fields alone
	w, response := performRequest(t, router, http.MethodPut, path, token, map[string]any{
		"price":       "11.25",
		"isAvailable": false,
	})
	require.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, response)
	requireDecimalEqual(t, "11.25", data["price"])
	assert.Equal(t, false, data["is_available"])
	assert.Equal(t, item.Name, data["name"])

	// Negative price rejected
	w, response = performRequest(t, router, http.MethodPut, path, token, map[string]any{
		"price": "-2.00",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_PRICE", errorCode(t, response))

	// Empty body rejected
	w, response = performRequest(t, router, http.MethodPut, path, token, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_FIELDS", errorCode(t, response))
}

func TestDeleteItemSoftDeletes(t *testing.T) {
	env := newTestEnv(t)
	router := newMenuRouter(env)
	_, token := env.createUser(t, "manager@harborgrill.test", models.RoleManager)
	item, _ := env.seedMenu(t)

	w, _ := performRequest(t, router, http.MethodDelete, "/api/menu/items/"+itoa(item.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Gone from normal queries, still present unscoped
	var count int64
	env.db.Model(&models.MenuItem{}).Count(&count)
	assert.Equal(t, int64(0), count)
	env.db.Unscoped().Model(&models.MenuItem{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

// uploadImageRequest builds a multipart request carrying an image file.
func uploadImageRequest(t *testing.T, router *gin.Engine, path, token, filename string, content []byte) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w, decodeBody(t, w)
}

func TestUploadItemImage(t *testing.T) {
	env := newTestEnv(t)
	router := newMenuRouter(env)
	_, token := env.createUser(t, "manager@harborgrill.test", models.RoleManager)
	item, _ := env.seedMenu(t)
	path := "/api/menu/items/" + itoa(item.ID) + "/image"

	w, response := uploadImageRequest(t, router, path, token, "burger.png", []byte("png-bytes"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, dataOf(t, response)["imageUrl"])

	var updated models.MenuItem
	require.NoError(t, env.db.First(&updated, item.ID).Error)
	require.NotNil(t, updated.ImageS3Key)
	assert.Contains(t, *updated.ImageS3Key, "menu-images/")
}

func TestUploadItemImageRejectsBadFiles(t *testing.T) {
	env := newTestEnv(t)
	router := newMenuRouter(env)
	_, token := env.createUser(t, "manager@harborgrill.test", models.RoleManager)
	item, _ := env.seedMenu(t)
	path := "/api/menu/items/" + itoa(item.ID) + "/image"

	// Wrong extension
	w, response := uploadImageRequest(t, router, path, token, "menu.pdf", []byte("not an image"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FILE_FORMAT", errorCode(t, response))

	// Over the size cap
	huge := bytes.Repeat([]byte("x"), 5*1024*1024+1)
	w, response = uploadImageRequest(t, router, path, token, "huge.jpg", huge)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "FILE_TOO_LARGE", errorCode(t, response))

	// No file at all
	req, err := http.NewRequest(http.MethodPost, path, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_FILE", errorCode(t, decodeBody(t, w)))
}
