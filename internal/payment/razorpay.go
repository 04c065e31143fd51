package payment

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

type Razorpay struct {
	client *razorpay.Client
	keyID  string
	secret string
}

func NewRazorpay(keyID, secret string) *Razorpay {
	return &Razorpay{
		client: razorpay.NewClient(keyID, secret),
		keyID:  keyID,
		secret: secret,
	}
}

func (r *Razorpay) Name() string      { return "razorpay" }
func (r *Razorpay) PublicKey() string { return r.keyID }

// CreateOrder creates a Razorpay order. The SDK is not context aware, so a
// cancelled ctx is only honoured before the call starts.
func (r *Razorpay) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	body, err := r.client.Order.Create(map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
	}, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay create order: %w", err)
	}
	id, ok := body["id"].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("razorpay create order: response without id")
	}
	return id, nil
}

func (r *Razorpay) VerifySignature(_ context.Context, resp GatewayResponse) (bool, error) {
	params := map[string]interface{}{
		"razorpay_order_id":   resp.GatewayOrderID,
		"razorpay_payment_id": resp.PaymentID,
	}
	return utils.VerifyPaymentSignature(params, resp.Signature, r.secret), nil
}
