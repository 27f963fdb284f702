package checkout

import (
	"context"

	domcheckout "github.com/Zhima-Mochi/paygate-checkout/internal/domain/checkout"
	domoutbox "github.com/Zhima-Mochi/paygate-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/paygate-checkout/internal/observability"
	"github.com/Zhima-Mochi/paygate-checkout/internal/observability/logctx"
)

const workerService = "checkout-worker"

// Worker consumes checkout events off the bus: it logs every transition and
// records the transition and poll attempt metrics.
type Worker struct {
	log          observability.Logger
	transitions  observability.Counter   // checkout_transitions_total{from,to}
	pollAttempts observability.Histogram // checkout_poll_attempts{outcome}
}

func NewWorker(tel observability.Observability) *Worker {
	tel = observability.OrNop(tel)
	return &Worker{
		log:          tel.Logger().With(observability.F("service", workerService)),
		transitions:  tel.Metrics().Counter(observability.MCheckoutTransitions),
		pollAttempts: tel.Metrics().Histogram(observability.MCheckoutPollAttempts),
	}
}

// Start subscribes the worker's handlers, each wrapped by mw in order.
func (w *Worker) Start(sub domoutbox.Subscriber, mw ...func(domoutbox.Handler) domoutbox.Handler) {
	if sub == nil {
		return
	}
	wrap := func(h domoutbox.Handler) domoutbox.Handler {
		for i := len(mw) - 1; i >= 0; i-- {
			h = mw[i](h)
		}
		return h
	}
	sub.Subscribe(domcheckout.StateChangedEvent{}.EventName(), wrap(w.handleStateChanged))
	sub.Subscribe(domcheckout.PaymentSettledEvent{}.EventName(), wrap(w.handlePaymentSettled))
	sub.Subscribe(domcheckout.PaymentSubmittedEvent{}.EventName(), wrap(w.handlePaymentSubmitted))
}

func (w *Worker) handleStateChanged(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domcheckout.StateChangedEvent)
	if !ok {
		return nil
	}

	w.transitions.Add(1,
		observability.L("from", string(evt.From)),
		observability.L("to", string(evt.To)),
	)

	fields := []observability.Field{
		observability.F("checkout_id", evt.CheckoutID),
		observability.F("from", string(evt.From)),
		observability.F("to", string(evt.To)),
	}
	if evt.OrderID != "" {
		fields = append(fields, observability.F("order_id", evt.OrderID))
	}
	if evt.PaymentID != "" {
		fields = append(fields, observability.F("payment_id", evt.PaymentID))
	}
	logger := logctx.FromOr(ctx, w.log)
	if evt.To == domcheckout.StateError {
		logger.Warn("checkout_state_changed", append(fields, observability.F("message", evt.Message))...)
		return nil
	}
	logger.Info("checkout_state_changed", fields...)
	return nil
}

func (w *Worker) handlePaymentSubmitted(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domcheckout.PaymentSubmittedEvent)
	if !ok {
		return nil
	}
	logctx.FromOr(ctx, w.log).Info("checkout_payment_submitted",
		observability.F("checkout_id", evt.CheckoutID),
		observability.F("order_id", evt.OrderID),
		observability.F("payment_id", evt.PaymentID),
		observability.F("method", evt.Method),
	)
	return nil
}

func (w *Worker) handlePaymentSettled(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domcheckout.PaymentSettledEvent)
	if !ok {
		return nil
	}

	if evt.Attempts > 0 {
		w.pollAttempts.Observe(float64(evt.Attempts), observability.L("outcome", evt.Outcome))
	}
	logctx.FromOr(ctx, w.log).Info("checkout_payment_settled",
		observability.F("checkout_id", evt.CheckoutID),
		observability.F("payment_id", evt.PaymentID),
		observability.F("outcome", evt.Outcome),
		observability.F("attempts", evt.Attempts),
	)
	return nil
}
