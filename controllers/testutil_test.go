package controllers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/harborgrill/pos-backoffice-api/middleware"
	"github.com/harborgrill/pos-backoffice-api/models"
	"github.com/harborgrill/pos-backoffice-api/services"
)

const testPassword = "Sup3r$ecret"

// testEnv bundles the in-memory database and services controller tests
// need
type testEnv struct {
	db        *gorm.DB
	passwords *services.PasswordService
	tokens    *services.TokenService
	twoFactor *services.TwoFactorService
	audit     *services.AuditService
	gateway   *services.MockPaymentGateway
	images    services.ImageService
	orders    *services.OrderService
}

func newTestEnv(t *testing.T) *testEnv {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	pricing := services.NewPricingEngine(services.NewGormCatalog(db))
	allocator := services.NewSequenceAllocator(db)

	return &testEnv{
		db:        db,
		passwords: services.NewPasswordService(bcrypt.MinCost),
		tokens:    services.NewTokenService("test-access", "test-refresh", 15*time.Minute, 7*24*time.Hour, "test"),
		twoFactor: services.NewTwoFactorService("test"),
		audit:     services.NewSyncAuditService(db),
		gateway:   services.NewMockPaymentGateway(),
		images:    services.NewImageService(services.NewMockS3Service()),
		orders:    services.NewOrderService(db, pricing, allocator, decimal.RequireFromString("0.08")),
	}
}

func (env *testEnv) requireAuth() gin.HandlerFunc {
	return middleware.RequireAuth(env.db, env.tokens)
}

// createUser inserts a user and returns it with a valid access token
func (env *testEnv) createUser(t *testing.T, email string, role models.Role) (models.User, string) {
	hash, err := env.passwords.Hash(testPassword)
	require.NoError(t, err)

	user := models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, env.db.Create(&user).Error)

	token, err := env.tokens.IssueAccessToken(user.ID)
	require.NoError(t, err)
	return user, token
}

func (env *testEnv) seedMenu(t *testing.T) (models.MenuItem, models.Modifier) {
	category := models.MenuCategory{Name: "Mains", IsActive: true}
	require.NoError(t, env.db.Create(&category).Error)

	item := models.MenuItem{
		CategoryID:  category.ID,
		Name:        "Burger",
		Price:       decimal.RequireFromString("10.00"),
		IsAvailable: true,
	}
	require.NoError(t, env.db.Create(&item).Error)

	group := models.ModifierGroup{Name: "Extras"}
	require.NoError(t, env.db.Create(&group).Error)

	modifier := models.Modifier{
		GroupID:         group.ID,
		Name:            "Extra Cheese",
		PriceAdjustment: decimal.RequireFromString("1.50"),
	}
	require.NoError(t, env.db.Create(&modifier).Error)
	require.NoError(t, env.db.Model(&item).Association("ModifierGroups").Append(&group))

	return item, modifier
}

// performRequest runs a JSON request through the router and parses the
// envelope
func performRequest(t *testing.T, router *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	}
	return w, response
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func errorCode(t *testing.T, response map[string]any) string {
	errObj, ok := response["error"].(map[string]any)
	require.True(t, ok, "response has no error object: %v", response)
	code, _ := errObj["code"].(string)
	return code
}

func errorMessage(t *testing.T, response map[string]any) string {
	errObj, ok := response["error"].(map[string]any)
	require.True(t, ok, "response has no error object: %v", response)
	message, _ := errObj["message"].(string)
	return message
}

func dataOf(t *testing.T, response map[string]any) map[string]any {
	data, ok := response["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", response)
	return data
}

func requireDecimalEqual(t *testing.T, expected string, got any) {
	str, ok := got.(string)
	require.True(t, ok, "expected decimal string, got %T (%v)", got, got)
	want := decimal.RequireFromString(expected)
	have := decimal.RequireFromString(str)
	require.True(t, want.Equal(have), "expected %s, got %s", want, have)
}
