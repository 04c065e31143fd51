package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Gateway is one payment provider. Amounts cross this boundary in minor
// units. Errors mean the provider could not be reached or refused the call;
// VerifySignature returns false, nil for a response that is not genuine.
type Gateway interface {
	Name() string
	PublicKey() string
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (string, error)
	VerifySignature(ctx context.Context, resp GatewayResponse) (bool, error)
}

// AmountVerifier is implemented by gateways that can also check what was
// actually paid. ConfirmReceipt prefers it over VerifySignature.
type AmountVerifier interface {
	VerifyPayment(ctx context.Context, resp GatewayResponse, amountMinor int64, currency string) (bool, error)
}

// Sign computes the checkout signature used by Razorpay and the sandbox:
// hex(HMAC-SHA256(secret, order_id + "|" + payment_id)).
func Sign(secret, gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
