package services

import (
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"
	"github.com/stripe/stripe-go/v82/webhook"
)

// PaymentIntent is the gateway-neutral view of a card payment in flight
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       decimal.Decimal
}

// GatewayRefund is the gateway-neutral view of a processed refund
type GatewayRefund struct {
	ID     string
	Status string
	Amount decimal.Decimal
}

// WebhookEvent is a verified event delivered by the payment provider
type WebhookEvent struct {
	Type            string
	PaymentIntentID string
}

// PaymentGateway abstracts the card processor so controllers can be tested
// without hitting the network
type PaymentGateway interface {
	// CreateIntent registers a payment of the given amount with the
	// processor and returns the client secret the terminal needs
	CreateIntent(amount decimal.Decimal, currency string, metadata map[string]string) (*PaymentIntent, error)

	// RetrieveIntent fetches the current processor-side state of an intent
	RetrieveIntent(id string) (*PaymentIntent, error)

	// Refund returns part or all of a captured payment
	Refund(paymentIntentID string, amount decimal.Decimal) (*GatewayRefund, error)

	// VerifyWebhook checks the signature on a webhook delivery and parses
	// the event
	VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

// StripeGateway implements PaymentGateway against the Stripe API
type StripeGateway struct {
	webhookSecret string
}

// NewStripeGateway configures the Stripe client and returns a gateway
func NewStripeGateway(apiKey, webhookSecret string) *StripeGateway {
	stripe.Key = apiKey
	return &StripeGateway{webhookSecret: webhookSecret}
}

// centsFactor converts between decimal currency amounts and the integer
// minor units Stripe expects
var centsFactor = decimal.NewFromInt(100)

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(centsFactor).Round(0).IntPart()
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(centsFactor)
}

// CreateIntent registers a payment intent with Stripe
func (g *StripeGateway) CreateIntent(amount decimal.Decimal, currency string, metadata map[string]string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toCents(amount)),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, err
	}
	return &PaymentIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       string(intent.Status),
		Amount:       fromCents(intent.Amount),
	}, nil
}

// RetrieveIntent fetches an intent from Stripe
func (g *StripeGateway) RetrieveIntent(id string) (*PaymentIntent, error) {
	intent, err := paymentintent.Get(id, nil)
	if err != nil {
		return nil, err
	}
	return &PaymentIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       string(intent.Status),
		Amount:       fromCents(intent.Amount),
	}, nil
}

// Refund returns part or all of a captured payment through Stripe
func (g *StripeGateway) Refund(paymentIntentID string, amount decimal.Decimal) (*GatewayRefund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
		Amount:        stripe.Int64(toCents(amount)),
	}
	r, err := refund.New(params)
	if err != nil {
		return nil, err
	}
	return &GatewayRefund{
		ID:     r.ID,
		Status: string(r.Status),
		Amount: fromCents(r.Amount),
	}, nil
}

// VerifyWebhook validates the Stripe-Signature header and extracts the
// payment intent id from the event payload
func (g *StripeGateway) VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, err
	}

	var intentID string
	if id, ok := event.Data.Object["id"].(string); ok {
		intentID = id
	}
	return &WebhookEvent{
		Type:            string(event.Type),
		PaymentIntentID: intentID,
	}, nil
}
