package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
)

// Stripe maps intents onto PaymentIntents. Stripe has no client-side
// signature, so verification asks Stripe for the intent and requires it to
// have succeeded with the charge the client reported.
type Stripe struct {
	publishableKey string
}

func NewStripe(secretKey, publishableKey string) *Stripe {
	stripe.Key = secretKey
	return &Stripe{publishableKey: publishableKey}
}

func (s *Stripe) Name() string      { return "stripe" }
func (s *Stripe) PublicKey() string { return s.publishableKey }

func (s *Stripe) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{"receipt": receipt},
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create payment intent: %w", err)
	}
	return pi.ID, nil
}

// VerifySignature checks the intent succeeded with the reported charge.
// Without an expected amount it cannot catch an underpayment; ConfirmReceipt
// goes through VerifyPayment instead.
func (s *Stripe) VerifySignature(ctx context.Context, resp GatewayResponse) (bool, error) {
	pi, err := s.fetch(ctx, resp.GatewayOrderID)
	if err != nil {
		return false, err
	}
	return intentMatches(pi, resp, 0, ""), nil
}

func (s *Stripe) VerifyPayment(ctx context.Context, resp GatewayResponse, amountMinor int64, currency string) (bool, error) {
	pi, err := s.fetch(ctx, resp.GatewayOrderID)
	if err != nil {
		return false, err
	}
	return intentMatches(pi, resp, amountMinor, currency), nil
}

func (s *Stripe) fetch(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pi, err := paymentintent.Get(id, nil)
	if err != nil {
		return nil, fmt.Errorf("stripe get payment intent: %w", err)
	}
	return pi, nil
}

// intentMatches wants a succeeded intent whose latest charge is the one the
// client reported. amountMinor and currency are checked when set.
func intentMatches(pi *stripe.PaymentIntent, resp GatewayResponse, amountMinor int64, currency string) bool {
	if pi == nil || pi.Status != stripe.PaymentIntentStatusSucceeded {
		return false
	}
	if pi.LatestCharge == nil || pi.LatestCharge.ID == "" || pi.LatestCharge.ID != resp.PaymentID {
		return false
	}
	if amountMinor > 0 && pi.Amount != amountMinor {
		return false
	}
	if currency != "" && !strings.EqualFold(string(pi.Currency), currency) {
		return false
	}
	return true
}
