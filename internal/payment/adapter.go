package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Adapter is the only place the rest of the service talks to a gateway.
// It does not retry; callers decide.
type Adapter struct {
	gw     Gateway
	ttl    time.Duration
	now    func() time.Time
	logger *log.Logger
}

// NewAdapter wraps gw. ttl is how long a payer has to finish a challenge
// before it fails with ReasonTimeout; zero disables the timeout.
func NewAdapter(gw Gateway, ttl time.Duration, logger *log.Logger) *Adapter {
	return &Adapter{gw: gw, ttl: ttl, now: time.Now, logger: logger}
}

func (a *Adapter) Provider() string { return a.gw.Name() }

func (a *Adapter) CreatePaymentIntent(ctx context.Context, amount int64, currency string) (Intent, error) {
	if amount <= 0 {
		return Intent{}, ErrInvalidAmount
	}
	receipt := "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	id, err := a.gw.CreateOrder(ctx, toMinor(amount), currency, receipt)
	if err != nil {
		return Intent{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	a.logger.Printf("payment intent created provider=%s gateway_order=%s amount=%d %s", a.gw.Name(), id, amount, currency)
	return Intent{
		GatewayOrderID: id,
		Amount:         amount,
		Currency:       currency,
		Provider:       a.gw.Name(),
		PublicKey:      a.gw.PublicKey(),
		CreatedAt:      a.now().UTC(),
	}, nil
}

func (a *Adapter) InitiateChallenge(intent Intent, payer Payer) *Challenge {
	return newChallenge(intent, payer, a.ttl)
}

func (a *Adapter) VerifyReceipt(ctx context.Context, paymentID, gatewayOrderID, signature string) (bool, error) {
	ok, err := a.gw.VerifySignature(ctx, GatewayResponse{
		PaymentID:      paymentID,
		GatewayOrderID: gatewayOrderID,
		Signature:      signature,
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return ok, nil
}

// ConfirmReceipt verifies resp against intent and mints a verified receipt.
// The intent's own order id is used for the check so a response signed for
// a different order cannot be replayed here.
func (a *Adapter) ConfirmReceipt(ctx context.Context, intent Intent, resp GatewayResponse) (Receipt, error) {
	if resp.GatewayOrderID != intent.GatewayOrderID {
		return Receipt{}, ErrOrderMismatch
	}
	var (
		ok  bool
		err error
	)
	if av, has := a.gw.(AmountVerifier); has {
		ok, err = av.VerifyPayment(ctx, GatewayResponse{
			PaymentID:      resp.PaymentID,
			GatewayOrderID: intent.GatewayOrderID,
			Signature:      resp.Signature,
		}, toMinor(intent.Amount), intent.Currency)
		if err != nil {
			err = fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}
	} else {
		ok, err = a.VerifyReceipt(ctx, resp.PaymentID, intent.GatewayOrderID, resp.Signature)
	}
	if err != nil {
		return Receipt{}, err
	}
	if !ok {
		a.logger.Printf("payment verification failed gateway_order=%s payment=%s", intent.GatewayOrderID, resp.PaymentID)
		return Receipt{}, ErrUnverified
	}
	return Receipt{
		GatewayOrderID:   intent.GatewayOrderID,
		GatewayPaymentID: resp.PaymentID,
		Signature:        resp.Signature,
		Amount:           intent.Amount,
		Currency:         intent.Currency,
		Status:           StatusSuccess,
		Timestamp:        a.now().UTC(),
		verified:         true,
	}, nil
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrGatewayUnavailable)
}
