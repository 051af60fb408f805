package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	appConfig "github.com/harborgrill/pos-backoffice-api/config"
	"github.com/harborgrill/pos-backoffice-api/controllers"
	"github.com/harborgrill/pos-backoffice-api/middleware"
	"github.com/harborgrill/pos-backoffice-api/models"
	"github.com/harborgrill/pos-backoffice-api/services"
)

var startTime = time.Now()

func main() {
	log.Println("Starting POS back-office API server...")

	cfg, err := appConfig.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := appConfig.ConnectDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	var imageService services.ImageService
	if cfg.AWSS3Bucket != "" {
		s3Service, err := services.NewS3Service(cfg.AWSRegion, cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, cfg.AWSS3Bucket)
		if err != nil {
			log.Fatalf("Failed to initialize S3: %v", err)
		}
		imageService = services.NewImageService(s3Service)
	} else {
		log.Println("AWS_S3_BUCKET not set, using in-memory image storage")
		imageService = services.NewImageService(services.NewMockS3Service())
	}

	var gateway services.PaymentGateway
	if cfg.StripeSecretKey != "" {
		gateway = services.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	} else {
		log.Println("STRIPE_SECRET_KEY not set, using mock payment gateway")
		gateway = services.NewMockPaymentGateway()
	}

	router := setupRouter(cfg, db, imageService, gateway)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server is running on http://localhost:%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Forced shutdown: %v", err)
	}
	log.Println("Server exited")
}

// setupRouter wires services, controllers, and routes
func setupRouter(cfg *appConfig.Config, db *gorm.DB, imageService services.ImageService, gateway services.PaymentGateway) *gin.Engine {
	passwords := services.NewPasswordService(cfg.BcryptCost)
	tokens := services.NewTokenService(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, cfg.AppName)
	twoFactor := services.NewTwoFactorService(cfg.AppName)
	audit := services.NewAuditService(db)
	pricing := services.NewPricingEngine(services.NewGormCatalog(db))
	allocator := services.NewSequenceAllocator(db)
	orderService := services.NewOrderService(db, pricing, allocator, cfg.DefaultTaxRate)

	authController := controllers.NewAuthController(db, passwords, tokens, twoFactor, audit)
	userController := controllers.NewUserController(db, passwords, audit)
	menuController := controllers.NewMenuController(db, imageService, audit)
	orderController := controllers.NewOrderController(db, orderService, audit)
	customerController := controllers.NewCustomerController(db, audit)
	inventoryController := controllers.NewInventoryController(db, audit)
	paymentController := controllers.NewPaymentController(db, gateway, orderService, audit)
	reportController := controllers.NewReportController(db)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(middleware.RequestID())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	globalLimiter := middleware.NewRateLimiter(
		float64(cfg.RateLimitMax)/cfg.RateLimitWindow.Seconds(), cfg.RateLimitMax)
	authLimiter := middleware.NewRateLimiter(
		float64(cfg.AuthRateLimitMax)/cfg.RateLimitWindow.Seconds(), cfg.AuthRateLimitMax)
	router.Use(globalLimiter.Middleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"status":      "ok",
			"uptime":      time.Since(startTime).String(),
			"environment": cfg.GoEnv,
		})
	})

	api := router.Group("/api")
	api.GET("/database/status", databaseStatus(db))

	requireAuth := middleware.RequireAuth(db, tokens)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authLimiter.Middleware(), authController.Register)
		auth.POST("/login", authLimiter.Middleware(), authController.Login)
		auth.POST("/refresh", authController.Refresh)
		auth.POST("/logout", authController.Logout)
		auth.GET("/me", requireAuth, authController.Me)
		auth.POST("/setup-2fa", requireAuth, authController.SetupTwoFactor)
		auth.POST("/verify-2fa", requireAuth, authController.VerifyTwoFactor)
		auth.POST("/disable-2fa", requireAuth, authController.DisableTwoFactor)
		auth.POST("/change-password", requireAuth, authController.ChangePassword)
	}

	users := api.Group("/users", requireAuth)
	{
		users.GET("", middleware.RequirePermission(models.RoleAdmin), userController.List)
		users.GET("/:id", userController.Get)
		users.PUT("/:id", userController.Update)
		users.DELETE("/:id", middleware.RequirePermission(models.RoleAdmin), userController.Delete)
		users.GET("/:id/activity", userController.Activity)
		users.POST("/:id/reset-password", middleware.RequirePermission(models.RoleAdmin), userController.ResetPassword)
	}

	menu := api.Group("/menu")
	{
		menu.GET("/categories", menuController.ListCategories)
		menu.GET("/items", menuController.ListItems)
		menu.GET("/items/:id", menuController.GetItem)
		menu.GET("/modifier-groups", menuController.ListModifierGroups)

		manage := menu.Group("", requireAuth, middleware.RequirePermission(models.RoleManager))
		{
			manage.POST("/categories", menuController.CreateCategory)
			manage.POST("/items", menuController.CreateItem)
			manage.PUT("/items/:id", menuController.UpdateItem)
			manage.DELETE("/items/:id", menuController.DeleteItem)
			manage.POST("/items/:id/image", menuController.UploadItemImage)
		}
	}

	orders := api.Group("/orders", requireAuth)
	{
		orders.POST("", orderController.Create)
		orders.GET("", orderController.List)
		orders.GET("/:id", orderController.Get)
		orders.PATCH("/:id/status", orderController.UpdateStatus)
		orders.DELETE("/:id", middleware.RequirePermission(models.RoleManager), orderController.Cancel)
	}

	customers := api.Group("/customers", requireAuth)
	{
		customers.GET("", customerController.List)
		customers.GET("/:id", customerController.Get)
		customers.POST("", customerController.Create)
		customers.PUT("/:id", customerController.Update)
		customers.DELETE("/:id", middleware.RequirePermission(models.RoleManager), customerController.Delete)
		customers.POST("/:id/loyalty", customerController.AdjustLoyalty)
	}

	inventory := api.Group("/inventory", requireAuth, middleware.RequirePermission(models.RoleManager))
	{
		inventory.GET("", inventoryController.List)
		inventory.GET("/alerts", inventoryController.Alerts)
		inventory.GET("/suppliers", inventoryController.ListSuppliers)
		inventory.POST("/suppliers", inventoryController.CreateSupplier)
		inventory.GET("/:id", inventoryController.Get)
		inventory.POST("", inventoryController.Create)
		inventory.PUT("/:id", inventoryController.Update)
		inventory.DELETE("/:id", inventoryController.Delete)
		inventory.POST("/:id/adjust", inventoryController.Adjust)
	}

	payments := api.Group("/payments")
	{
		payments.POST("/webhook", paymentController.Webhook)

		authed := payments.Group("", requireAuth)
		{
			authed.POST("/intent", paymentController.CreateIntent)
			authed.POST("/confirm", paymentController.Confirm)
			authed.POST("/cash", paymentController.Cash)
			authed.POST("/:id/refund", middleware.RequirePermission(models.RoleManager), paymentController.Refund)
			authed.GET("/order/:orderId", paymentController.History)
		}
	}

	reports := api.Group("/reports", requireAuth)
	{
		reports.GET("/sales", middleware.RequirePermission(models.RoleManager), reportController.Sales)
		reports.GET("/inventory", middleware.RequirePermission(models.RoleManager), reportController.Inventory)
		reports.GET("/customers", middleware.RequirePermission(models.RoleManager), reportController.Customers)
		reports.GET("/financial", middleware.RequirePermission(models.RoleAdmin), reportController.Financial)
	}

	return router
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_ERROR",
					"message": "Failed to get database instance",
				},
			})
			return
		}

		if err := sqlDB.Ping(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_CONNECTION_ERROR",
					"message": "Database connection failed",
				},
			})
			return
		}

		var tables []string
		if err := db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public'").Scan(&tables).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_QUERY_ERROR",
					"message": "Failed to query tables",
				},
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Database connected",
			"tables":  tables,
		})
	}
}
