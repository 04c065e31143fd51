package payment

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	createFn func(ctx context.Context, amountMinor int64, currency, receipt string) (string, error)
	verifyFn func(ctx context.Context, resp GatewayResponse) (bool, error)
}

func (f *fakeGateway) Name() string      { return "fake" }
func (f *fakeGateway) PublicKey() string { return "pk_fake" }

func (f *fakeGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (string, error) {
	return f.createFn(ctx, amountMinor, currency, receipt)
}

func (f *fakeGateway) VerifySignature(ctx context.Context, resp GatewayResponse) (bool, error) {
	return f.verifyFn(ctx, resp)
}

func testLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestAdapter_CreatePaymentIntent(t *testing.T) {
	var gotMinor int64
	var gotReceipt string
	gw := &fakeGateway{createFn: func(_ context.Context, amountMinor int64, _, receipt string) (string, error) {
		gotMinor = amountMinor
		gotReceipt = receipt
		return "order_abc", nil
	}}
	a := NewAdapter(gw, 0, testLogger())

	intent, err := a.CreatePaymentIntent(context.Background(), 210, "INR")
	require.NoError(t, err)
	assert.Equal(t, int64(21000), gotMinor)
	assert.LessOrEqual(t, len(gotReceipt), 40)
	assert.Equal(t, "order_abc", intent.GatewayOrderID)
	assert.Equal(t, int64(210), intent.Amount)
	assert.Equal(t, "pk_fake", intent.PublicKey)
}

func TestAdapter_CreatePaymentIntent_Errors(t *testing.T) {
	gw := &fakeGateway{createFn: func(context.Context, int64, string, string) (string, error) {
		return "", errors.New("connection reset")
	}}
	a := NewAdapter(gw, 0, testLogger())

	_, err := a.CreatePaymentIntent(context.Background(), 100, "INR")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.True(t, IsTransient(err))

	_, err = a.CreatePaymentIntent(context.Background(), 0, "INR")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.False(t, IsTransient(err))
}

func TestAdapter_DistinctIntents(t *testing.T) {
	sb := NewSandbox("s3cret")
	a := NewAdapter(sb, 0, testLogger())

	i1, err := a.CreatePaymentIntent(context.Background(), 100, "INR")
	require.NoError(t, err)
	i2, err := a.CreatePaymentIntent(context.Background(), 100, "INR")
	require.NoError(t, err)
	assert.NotEqual(t, i1.GatewayOrderID, i2.GatewayOrderID)
}

func TestAdapter_ConfirmReceipt(t *testing.T) {
	sb := NewSandbox("s3cret")
	a := NewAdapter(sb, 0, testLogger())
	ctx := context.Background()

	intent, err := a.CreatePaymentIntent(ctx, 210, "INR")
	require.NoError(t, err)
	resp := sb.Approve(intent.GatewayOrderID)

	receipt, err := a.ConfirmReceipt(ctx, intent, resp)
	require.NoError(t, err)
	assert.True(t, receipt.Verified())
	assert.Equal(t, StatusSuccess, receipt.Status)
	assert.Equal(t, int64(210), receipt.Amount)
	assert.Equal(t, resp.PaymentID, receipt.GatewayPaymentID)

	tampered := resp
	tampered.Signature = resp.Signature + "00"
	_, err = a.ConfirmReceipt(ctx, intent, tampered)
	assert.ErrorIs(t, err, ErrUnverified)

	other, err := a.CreatePaymentIntent(ctx, 10, "INR")
	require.NoError(t, err)
	_, err = a.ConfirmReceipt(ctx, intent, sb.Approve(other.GatewayOrderID))
	assert.ErrorIs(t, err, ErrOrderMismatch)
}

func TestAdapter_VerifyTransportError(t *testing.T) {
	gw := &fakeGateway{verifyFn: func(context.Context, GatewayResponse) (bool, error) {
		return false, errors.New("timeout")
	}}
	a := NewAdapter(gw, 0, testLogger())

	ok, err := a.VerifyReceipt(context.Background(), "pay", "order", "sig")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestRazorpay_VerifySignature(t *testing.T) {
	rp := NewRazorpay("rzp_test_key", "rzp_secret")
	ctx := context.Background()

	resp := GatewayResponse{
		PaymentID:      "pay_29QQoUBi66xm2f",
		GatewayOrderID: "order_9A33XWu170gUtm",
		Signature:      Sign("rzp_secret", "order_9A33XWu170gUtm", "pay_29QQoUBi66xm2f"),
	}
	ok, err := rp.VerifySignature(ctx, resp)
	require.NoError(t, err)
	assert.True(t, ok)

	resp.Signature = Sign("wrong_secret", resp.GatewayOrderID, resp.PaymentID)
	ok, err = rp.VerifySignature(ctx, resp)
	require.NoError(t, err)
	assert.False(t, ok)
}

type amountGateway struct {
	fakeGateway
	gotMinor    int64
	gotCurrency string
	paidMinor   int64
}

func (g *amountGateway) VerifyPayment(_ context.Context, _ GatewayResponse, amountMinor int64, currency string) (bool, error) {
	g.gotMinor, g.gotCurrency = amountMinor, currency
	return g.paidMinor == amountMinor, nil
}

func TestAdapter_ConfirmReceiptChecksAmount(t *testing.T) {
	gw := &amountGateway{
		fakeGateway: fakeGateway{createFn: func(context.Context, int64, string, string) (string, error) {
			return "pi_1", nil
		}},
		paidMinor: 21000,
	}
	a := NewAdapter(gw, 0, testLogger())
	ctx := context.Background()

	intent, err := a.CreatePaymentIntent(ctx, 210, "INR")
	require.NoError(t, err)
	receipt, err := a.ConfirmReceipt(ctx, intent, GatewayResponse{PaymentID: "ch_1", GatewayOrderID: "pi_1"})
	require.NoError(t, err)
	assert.True(t, receipt.Verified())
	assert.Equal(t, int64(21000), gw.gotMinor)
	assert.Equal(t, "INR", gw.gotCurrency)

	gw.paidMinor = 100
	_, err = a.ConfirmReceipt(ctx, intent, GatewayResponse{PaymentID: "ch_1", GatewayOrderID: "pi_1"})
	assert.ErrorIs(t, err, ErrUnverified)
}
