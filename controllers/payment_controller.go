package controllers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/harborgrill/pos-backoffice-api/middleware"
	"github.com/harborgrill/pos-backoffice-api/models"
	"github.com/harborgrill/pos-backoffice-api/services"
)

// PaymentController handles card and cash payments, refunds, and gateway
// webhooks
type PaymentController struct {
	db      *gorm.DB
	gateway services.PaymentGateway
	orders  *services.OrderService
	audit   *services.AuditService
}

// NewPaymentController creates a payment controller
func NewPaymentController(db *gorm.DB, gateway services.PaymentGateway, orders *services.OrderService, audit *services.AuditService) *PaymentController {
	return &PaymentController{db: db, gateway: gateway, orders: orders, audit: audit}
}

type createIntentRequest struct {
	OrderID uint            `json:"orderId" binding:"required"`
	Amount  decimal.Decimal `json:"amount" binding:"required"`
}

// CreateIntent registers a card payment with the gateway. The amount must
// match the order total exactly.
func (ctrl *PaymentController) CreateIntent(c *gin.Context) {
	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FIELDS",
			"Order id and amount are required")
		return
	}

	var order models.Order
	if err := ctrl.db.First(&order, req.OrderID).Error; err != nil {
		respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		return
	}

	if order.Status.IsTerminal() {
		respondError(c, http.StatusBadRequest, "ORDER_ALREADY_CLOSED",
			"Order is already completed or cancelled")
		return
	}

	if !req.Amount.Equal(order.TotalAmount) {
		respondError(c, http.StatusBadRequest, "AMOUNT_MISMATCH",
			"Payment amount does not match order total")
		return
	}

	intent, err := ctrl.gateway.CreateIntent(req.Amount, "usd", map[string]string{
		"order_id":     itoa(order.ID),
		"order_number": order.OrderNumber,
	})
	if err != nil {
		respondError(c, http.StatusBadGateway, "GATEWAY_ERROR",
			"Failed to create payment intent")
		return
	}

	payment := models.Payment{
		OrderID:         order.ID,
		PaymentMethod:   models.PaymentMethodCard,
		Amount:          req.Amount,
		Status:          models.PaymentStatusPending,
		PaymentIntentID: &intent.ID,
	}
	if err := ctrl.db.Create(&payment).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "PAYMENT_ERROR",
			"Failed to record payment")
		return
	}

	respondCreated(c, gin.H{
		"payment":      payment,
		"clientSecret": intent.ClientSecret,
	})
}

type confirmPaymentRequest struct {
	PaymentIntentID string          `json:"paymentIntentId" binding:"required"`
	TipAmount       decimal.Decimal `json:"tipAmount"`
}

// Confirm completes a card payment once the gateway reports success and
// closes out the order
func (ctrl *PaymentController) Confirm(c *gin.Context) {
	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FIELDS",
			"Payment intent id is required")
		return
	}

	var payment models.Payment
	if err := ctrl.db.Where("payment_intent_id = ?", req.PaymentIntentID).First(&payment).Error; err != nil {
		respondError(c, http.StatusNotFound, "PAYMENT_NOT_FOUND", "Payment not found")
		return
	}

	intent, err := ctrl.gateway.RetrieveIntent(req.PaymentIntentID)
	if err != nil {
		respondError(c, http.StatusBadGateway, "GATEWAY_ERROR",
			"Failed to verify payment intent")
		return
	}
	if intent.Status != "succeeded" {
		respondError(c, http.StatusBadRequest, "PAYMENT_NOT_SUCCEEDED",
			"Payment has not been completed by the gateway")
		return
	}

	if req.TipAmount.IsNegative() {
		respondError(c, http.StatusBadRequest, "INVALID_TIP", "Tip cannot be negative")
		return
	}

	now := time.Now()
	updates := map[string]any{
		"status":       models.PaymentStatusCompleted,
		"tip_amount":   req.TipAmount,
		"processed_at": now,
	}
	if err := ctrl.db.Model(&payment).Updates(updates).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "PAYMENT_ERROR",
			"Failed to complete payment")
		return
	}

	if !req.TipAmount.IsZero() {
		ctrl.db.Model(&models.Order{}).Where("id = ?", payment.OrderID).
			Updates(map[string]any{
				"tip_amount":   req.TipAmount,
				"total_amount": gorm.Expr("total_amount + ?", req.TipAmount),
			})
	}

	order, err := ctrl.orders.UpdateStatus(payment.OrderID, models.OrderStatusCompleted, nil)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if user, err := middleware.CurrentUser(c); err == nil {
		ctrl.audit.Record(&user.ID, "payment.confirm", "payments", itoa(payment.ID), c.ClientIP(), c.Request.UserAgent())
	}

	ctrl.db.First(&payment, payment.ID)
	respondOK(c, gin.H{
		"payment": payment,
		"order":   order,
	})
}

type cashPaymentRequest struct {
	OrderID        uint            `json:"orderId" binding:"required"`
	AmountReceived decimal.Decimal `json:"amountReceived" binding:"required"`
	TipAmount      decimal.Decimal `json:"tipAmount"`
}

// Cash records a cash payment, computes change, and completes the order
func (ctrl *PaymentController) Cash(c *gin.Context) {
	var req cashPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FIELDS",
			"Order id and amount received are required")
		return
	}

	var order models.Order
	if err := ctrl.db.First(&order, req.OrderID).Error; err != nil {
		respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		return
	}

	if order.Status.IsTerminal() {
		respondError(c, http.StatusBadRequest, "ORDER_ALREADY_CLOSED",
			"Order is already completed or cancelled")
		return
	}

	due := order.TotalAmount.Add(req.TipAmount)
	if req.AmountReceived.LessThan(due) {
		shortage := due.Sub(req.AmountReceived)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":     "INSUFFICIENT_AMOUNT",
				"message":  "Amount received is less than the amount due",
				"shortage": shortage,
			},
		})
		return
	}
	change := req.AmountReceived.Sub(due)

	now := time.Now()
	payment := models.Payment{
		OrderID:       order.ID,
		PaymentMethod: models.PaymentMethodCash,
		Amount:        order.TotalAmount,
		TipAmount:     req.TipAmount,
		Status:        models.PaymentStatusCompleted,
		ProcessedAt:   &now,
	}
	if err := ctrl.db.Create(&payment).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "PAYMENT_ERROR",
			"Failed to record payment")
		return
	}

	if !req.TipAmount.IsZero() {
		ctrl.db.Model(&order).Updates(map[string]any{
			"tip_amount":   req.TipAmount,
			"total_amount": gorm.Expr("total_amount + ?", req.TipAmount),
		})
	}

	completed, err := ctrl.orders.UpdateStatus(order.ID, models.OrderStatusCompleted, nil)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if user, err := middleware.CurrentUser(c); err == nil {
		ctrl.audit.Record(&user.ID, "payment.cash", "payments", itoa(payment.ID), c.ClientIP(), c.Request.UserAgent())
	}

	respondCreated(c, gin.H{
		"payment": payment,
		"order":   completed,
		"change":  change,
	})
}

type refundRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Reason string          `json:"reason"`
}

// Refund returns part or all of a completed payment. Cumulative refunds
// never exceed the amount paid. Manager+.
func (ctrl *PaymentController) Refund(c *gin.Context) {
	var payment models.Payment
	if err := ctrl.db.First(&payment, c.Param("id")).Error; err != nil {
		respondError(c, http.StatusNotFound, "PAYMENT_NOT_FOUND", "Payment not found")
		return
	}

	if payment.Status != models.PaymentStatusCompleted && payment.Status != models.PaymentStatusRefunded {
		respondError(c, http.StatusBadRequest, "PAYMENT_NOT_COMPLETED",
			"Only completed payments can be refunded")
		return
	}

	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FIELDS", "Refund amount is required")
		return
	}

	if !req.Amount.IsPositive() {
		respondError(c, http.StatusBadRequest, "INVALID_AMOUNT", "Refund amount must be positive")
		return
	}

	paid := payment.Amount.Add(payment.TipAmount)
	newTotal := payment.RefundAmount.Add(req.Amount)
	if newTotal.GreaterThan(paid) {
		respondError(c, http.StatusBadRequest, "REFUND_EXCEEDS_AMOUNT",
			"Refund would exceed the amount paid")
		return
	}

	if payment.PaymentMethod == models.PaymentMethodCard {
		if payment.PaymentIntentID == nil {
			respondError(c, http.StatusInternalServerError, "REFUND_ERROR",
				"Card payment has no gateway reference")
			return
		}
		if _, err := ctrl.gateway.Refund(*payment.PaymentIntentID, req.Amount); err != nil {
			respondError(c, http.StatusBadGateway, "GATEWAY_ERROR",
				"Gateway refused the refund")
			return
		}
	}

	now := time.Now()
	updates := map[string]any{
		"refund_amount": newTotal,
		"refunded_at":   now,
	}
	if newTotal.Equal(paid) {
		updates["status"] = models.PaymentStatusRefunded
	}
	if err := ctrl.db.Model(&payment).Updates(updates).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "REFUND_ERROR",
			"Failed to record refund")
		return
	}

	if user, err := middleware.CurrentUser(c); err == nil {
		ctrl.audit.Record(&user.ID, "payment.refund", "payments", itoa(payment.ID), c.ClientIP(), c.Request.UserAgent())
	}

	ctrl.db.First(&payment, payment.ID)
	respondOK(c, payment)
}

// History returns every payment recorded against an order
func (ctrl *PaymentController) History(c *gin.Context) {
	var order models.Order
	if err := ctrl.db.First(&order, c.Param("orderId")).Error; err != nil {
		respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		return
	}

	var payments []models.Payment
	if err := ctrl.db.Where("order_id = ?", order.ID).Order("created_at ASC").Find(&payments).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "FETCH_ERROR", "Failed to fetch payments")
		return
	}

	respondOK(c, payments)
}

// Webhook handles signed gateway events and flips the matching payment row
func (ctrl *PaymentController) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", "Failed to read webhook payload")
		return
	}

	event, err := ctrl.gateway.VerifyWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_SIGNATURE",
			"Webhook signature verification failed")
		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		now := time.Now()
		ctrl.db.Model(&models.Payment{}).
			Where("payment_intent_id = ? AND status = ?", event.PaymentIntentID, models.PaymentStatusPending).
			Updates(map[string]any{
				"status":       models.PaymentStatusCompleted,
				"processed_at": now,
			})
	case "payment_intent.payment_failed":
		ctrl.db.Model(&models.Payment{}).
			Where("payment_intent_id = ? AND status = ?", event.PaymentIntentID, models.PaymentStatusPending).
			Update("status", models.PaymentStatusFailed)
	}

	respondOK(c, gin.H{"received": true})
}
