package payment

import (
	"context"
	"crypto/hmac"
	"strings"

	"github.com/google/uuid"
)

// Sandbox is an offline gateway for local runs and tests. It signs the same
// way Razorpay does, so verification goes through the real code path.
type Sandbox struct {
	secret string
}

func NewSandbox(secret string) *Sandbox {
	return &Sandbox{secret: secret}
}

func (s *Sandbox) Name() string      { return "sandbox" }
func (s *Sandbox) PublicKey() string { return "sandbox_key" }

func (s *Sandbox) CreateOrder(_ context.Context, _ int64, _, _ string) (string, error) {
	return "order_sbx_" + compactID(), nil
}

func (s *Sandbox) VerifySignature(_ context.Context, resp GatewayResponse) (bool, error) {
	want := Sign(s.secret, resp.GatewayOrderID, resp.PaymentID)
	return hmac.Equal([]byte(want), []byte(resp.Signature)), nil
}

// Approve simulates the payer completing payment for gatewayOrderID.
func (s *Sandbox) Approve(gatewayOrderID string) GatewayResponse {
	paymentID := "pay_sbx_" + compactID()
	return GatewayResponse{
		PaymentID:      paymentID,
		GatewayOrderID: gatewayOrderID,
		Signature:      Sign(s.secret, gatewayOrderID, paymentID),
	}
}

func compactID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
}
