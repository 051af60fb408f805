package services

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// MockPaymentGateway is an in-memory implementation of PaymentGateway for
// testing
type MockPaymentGateway struct {
	intents map[string]*PaymentIntent
	refunds map[string]decimal.Decimal // intent id to total refunded
	nextID  int
	mu      sync.Mutex

	// FailNext makes the next call return an error, then resets
	FailNext bool
}

// NewMockPaymentGateway creates a new mock payment gateway
func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{
		intents: make(map[string]*PaymentIntent),
		refunds: make(map[string]decimal.Decimal),
	}
}

func (m *MockPaymentGateway) failNext() bool {
	if m.FailNext {
		m.FailNext = false
		return true
	}
	return false
}

// CreateIntent simulates registering a payment with the processor
func (m *MockPaymentGateway) CreateIntent(amount decimal.Decimal, currency string, metadata map[string]string) (*PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNext() {
		return nil, fmt.Errorf("mock gateway: create intent failed")
	}

	m.nextID++
	intent := &PaymentIntent{
		ID:           fmt.Sprintf("pi_mock_%d", m.nextID),
		ClientSecret: fmt.Sprintf("pi_mock_%d_secret", m.nextID),
		Status:       "requires_payment_method",
		Amount:       amount,
	}
	m.intents[intent.ID] = intent
	return intent, nil
}

// RetrieveIntent returns the stored intent
func (m *MockPaymentGateway) RetrieveIntent(id string) (*PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNext() {
		return nil, fmt.Errorf("mock gateway: retrieve intent failed")
	}

	intent, ok := m.intents[id]
	if !ok {
		return nil, fmt.Errorf("mock gateway: no such intent %s", id)
	}
	return intent, nil
}

// MarkSucceeded flips a stored intent to succeeded, simulating the
// cardholder completing payment
func (m *MockPaymentGateway) MarkSucceeded(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if intent, ok := m.intents[id]; ok {
		intent.Status = "succeeded"
	}
}

// Refund simulates refunding part or all of a captured payment
func (m *MockPaymentGateway) Refund(paymentIntentID string, amount decimal.Decimal) (*GatewayRefund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNext() {
		return nil, fmt.Errorf("mock gateway: refund failed")
	}

	if _, ok := m.intents[paymentIntentID]; !ok {
		return nil, fmt.Errorf("mock gateway: no such intent %s", paymentIntentID)
	}

	m.refunds[paymentIntentID] = m.refunds[paymentIntentID].Add(amount)
	return &GatewayRefund{
		ID:     fmt.Sprintf("re_mock_%s", paymentIntentID),
		Status: "succeeded",
		Amount: amount,
	}, nil
}

// TotalRefunded returns the amount refunded against an intent
func (m *MockPaymentGateway) TotalRefunded(paymentIntentID string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refunds[paymentIntentID]
}

// VerifyWebhook accepts any payload whose signature is "valid" and parses
// the payload as "<event_type> <intent_id>"
func (m *MockPaymentGateway) VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if signature != "valid" {
		return nil, fmt.Errorf("mock gateway: invalid signature")
	}

	var eventType, intentID string
	if _, err := fmt.Sscanf(string(payload), "%s %s", &eventType, &intentID); err != nil {
		return nil, fmt.Errorf("mock gateway: malformed payload")
	}
	return &WebhookEvent{Type: eventType, PaymentIntentID: intentID}, nil
}
