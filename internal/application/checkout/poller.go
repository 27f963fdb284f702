package checkout

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/paygate-checkout/internal/application"
	domcheckout "github.com/Zhima-Mochi/paygate-checkout/internal/domain/checkout"
	"github.com/Zhima-Mochi/paygate-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/paygate-checkout/internal/observability"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
)

const useCasePoll = "checkout.poll_payment"

// OutcomeKind classifies how a poll run ended.
type OutcomeKind string

const (
	OutcomeSucceeded   OutcomeKind = "success"
	OutcomeFailed      OutcomeKind = "failed"
	OutcomeTimedOut    OutcomeKind = "timeout"
	OutcomeFetchFailed OutcomeKind = "fetch_failed"
	OutcomeCanceled    OutcomeKind = "canceled"
)

// Outcome is the result of one poll run. Payment is the last status fetched.
type Outcome struct {
	Kind     OutcomeKind
	Payment  *payment.Payment
	Attempts int
	Err      error
}

// Poller fetches a payment's status until it settles or the attempt budget
// runs out. Fetches are strictly sequential: the next wait starts only after
// the previous response has been handled.
type Poller struct {
	gateway     payment.Gateway
	clock       clockwork.Clock
	interval    time.Duration
	maxAttempts int
	in          application.Instruments
}

func NewPoller(gateway payment.Gateway, clock clockwork.Clock, tel observability.Observability) *Poller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Poller{
		gateway:     gateway,
		clock:       clock,
		interval:    domcheckout.PollInterval,
		maxAttempts: domcheckout.MaxPollAttempts,
		in:          application.NewInstruments(tel, checkoutService),
	}
}

// Run issues the first fetch immediately. A fetch error ends the run; it is
// not retried.
func (p *Poller) Run(ctx context.Context, paymentID string) (out Outcome) {
	ctx, run := p.in.Begin(ctx, useCasePoll, "PollPayment",
		attribute.String("payment.id", paymentID),
		attribute.Int("poll.max_attempts", p.maxAttempts),
	)
	defer func() {
		run.With(
			observability.F("payment_id", paymentID),
			observability.F("attempts", out.Attempts),
			observability.F("poll_outcome", string(out.Kind)),
		)
		run.SetAttributes(attribute.Int("poll.attempts", out.Attempts))
		switch out.Kind {
		case OutcomeFetchFailed:
			run.Fail("STATUS_FETCH_FAILED")
		case OutcomeTimedOut:
			run.Fail("POLL_TIMEOUT")
		case OutcomeCanceled:
			run.Cancel()
		case OutcomeFailed:
			run.SetStatus("PAYMENT_FAILED")
		}
		run.Done(out.Err)
	}()

	for {
		if err := ctx.Err(); err != nil {
			return Outcome{Kind: OutcomeCanceled, Attempts: out.Attempts, Err: err}
		}

		pay, err := p.gateway.PaymentStatus(ctx, paymentID)
		out.Attempts++
		if err != nil {
			if ctx.Err() != nil {
				return Outcome{Kind: OutcomeCanceled, Attempts: out.Attempts, Err: ctx.Err()}
			}
			return Outcome{Kind: OutcomeFetchFailed, Attempts: out.Attempts, Err: err}
		}
		out.Payment = pay

		switch pay.Status {
		case payment.StatusSuccess:
			out.Kind = OutcomeSucceeded
			return out
		case payment.StatusFailed:
			out.Kind = OutcomeFailed
			return out
		}

		if out.Attempts >= p.maxAttempts {
			out.Kind = OutcomeTimedOut
			return out
		}

		timer := p.clock.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			out.Kind, out.Err = OutcomeCanceled, ctx.Err()
			return out
		case <-timer.Chan():
		}
	}
}
