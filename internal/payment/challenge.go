package payment

import (
	"sync"
	"time"
)

// Challenge is an in-flight payment prompt. It resolves exactly once: the
// first of Succeed, Fail, Cancel or the timeout wins and later calls get
// ErrChallengeResolved.
type Challenge struct {
	Intent Intent
	Payer  Payer

	once    sync.Once
	done    chan struct{}
	outcome Outcome

	mu    sync.Mutex
	timer *time.Timer
}

func newChallenge(intent Intent, payer Payer, ttl time.Duration) *Challenge {
	c := &Challenge{Intent: intent, Payer: payer, done: make(chan struct{})}
	if ttl > 0 {
		c.mu.Lock()
		c.timer = time.AfterFunc(ttl, func() {
			_ = c.Fail(ReasonTimeout, "payment window expired")
		})
		c.mu.Unlock()
	}
	return c
}

func (c *Challenge) Succeed(resp GatewayResponse) error {
	if resp.PaymentID == "" {
		return ErrIncompleteResponse
	}
	if resp.GatewayOrderID != c.Intent.GatewayOrderID {
		return ErrOrderMismatch
	}
	return c.resolve(Outcome{Response: &resp})
}

func (c *Challenge) Fail(reason FailureReason, detail string) error {
	return c.resolve(Outcome{Failure: &Failure{Reason: reason, Detail: detail}})
}

// Cancel records that the payer dismissed the prompt.
func (c *Challenge) Cancel() error {
	return c.Fail(ReasonUserCancelled, "payment cancelled by user")
}

// Done is closed once the challenge has an outcome.
func (c *Challenge) Done() <-chan struct{} { return c.done }

func (c *Challenge) Outcome() (Outcome, bool) {
	select {
	case <-c.done:
		return c.outcome, true
	default:
		return Outcome{}, false
	}
}

func (c *Challenge) resolve(o Outcome) error {
	err := ErrChallengeResolved
	c.once.Do(func() {
		c.outcome = o
		err = nil

		c.mu.Lock()
		if c.timer != nil {
			c.timer.Stop()
		}
		c.mu.Unlock()

		close(c.done)
	})
	return err
}
