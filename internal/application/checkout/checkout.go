package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Zhima-Mochi/paygate-checkout/internal/application"
	domcheckout "github.com/Zhima-Mochi/paygate-checkout/internal/domain/checkout"
	domoutbox "github.com/Zhima-Mochi/paygate-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/paygate-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/paygate-checkout/internal/observability"
	"github.com/Zhima-Mochi/paygate-checkout/internal/observability/logctx"
	"github.com/Zhima-Mochi/paygate-checkout/internal/pkg/money"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	checkoutService = "checkout"
	useCaseLoad     = "checkout.load_order"
	useCaseSubmit   = "checkout.submit_payment"
	publishTimeout  = 300 * time.Millisecond
)

var (
	ErrSubmitNotAllowed = errors.New("checkout: submit is only allowed from the form")
	ErrRetryUnavailable = domcheckout.ErrRetryUnavailable
	ErrFieldRequired    = domcheckout.ErrFieldRequired
	ErrClosed           = errors.New("checkout: closed")
	ErrOrderIDRequired  = errors.New("checkout: order id is required")
)

// Dependencies are the ports a Checkout drives. Clock, Publisher and
// Telemetry are optional.
type Dependencies struct {
	Orders    OrderLookup
	Payments  PaymentGateway
	Clock     clockwork.Clock
	Publisher domoutbox.Publisher
	Telemetry observability.Observability
}

// Snapshot is a point-in-time copy of the view.
type Snapshot struct {
	CheckoutID    string
	State         domcheckout.State
	OrderID       string
	Amount        int64
	Currency      string
	AmountDisplay string
	Method        payment.Method
	PaymentID     string
	Message       string
	RetryOffered  bool
}

// Checkout drives one payer's attempt from order load to a terminal view.
// At most one submission (and its poll) is in flight at a time.
type Checkout struct {
	id        string
	orders    OrderLookup
	payments  PaymentGateway
	poller    *Poller
	publisher domoutbox.Publisher
	in        application.Instruments

	// pubMu keeps events in transition order.
	pubMu sync.Mutex

	mu      sync.Mutex
	view    domcheckout.View
	changed chan struct{}
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(id string, deps Dependencies) *Checkout {
	ctx, cancel := context.WithCancel(context.Background())
	return &Checkout{
		id:        id,
		orders:    deps.Orders,
		payments:  deps.Payments,
		poller:    NewPoller(deps.Payments, deps.Clock, deps.Telemetry),
		publisher: deps.Publisher,
		in:        application.NewInstruments(deps.Telemetry, checkoutService),
		view:      domcheckout.NewView(),
		changed:   make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (c *Checkout) ID() string { return c.id }

// Load fetches the order and shows the form. Failures leave the view in the
// error state with a display message; the underlying error is also returned.
func (c *Checkout) Load(ctx context.Context, orderID string) (err error) {
	ctx = logctx.WithFields(ctx, c.in.Log(), observability.F("checkout_id", c.id))
	ctx, run := c.in.Begin(ctx, useCaseLoad, "LoadOrder",
		attribute.String("checkout.id", c.id),
		attribute.String("order.id", orderID),
	)
	defer func() { run.Done(err) }()

	if orderID == "" {
		run.Fail("ORDER_ID_REQUIRED")
		if terr := c.apply(ctx, func(v *domcheckout.View) error {
			return v.Fail(domcheckout.MsgOrderIDRequired)
		}); terr != nil {
			return terr
		}
		return ErrOrderIDRequired
	}
	if err := c.loading(); err != nil {
		run.Fail("LOAD_NOT_ALLOWED")
		return err
	}

	// Close also abandons a pending order fetch.
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	unregister := context.AfterFunc(c.ctx, stop)
	defer unregister()

	o, lerr := c.orders.GetOrder(ctx, orderID)
	if lerr != nil {
		if c.ctx.Err() != nil {
			run.Cancel()
			return ErrClosed
		}
		run.Fail("ORDER_LOAD_FAILED")
		if terr := c.apply(ctx, func(v *domcheckout.View) error {
			return v.Fail(domcheckout.MsgOrderLoadFailed)
		}); terr != nil {
			return terr
		}
		return fmt.Errorf("checkout: load order: %w", lerr)
	}

	if err := c.apply(ctx, func(v *domcheckout.View) error { return v.OrderLoaded(o) }); err != nil {
		run.Fail("STATE_TRANSITION_FAILED")
		return err
	}
	run.SetAttributes(attribute.Int64("order.amount", o.Amount))
	c.publish(ctx, domcheckout.OrderLoadedEvent{
		CheckoutID: c.id,
		OrderID:    o.ID,
		Amount:     o.Amount,
		OccurredAt: time.Now().UTC(),
	})
	return nil
}

func (c *Checkout) loading() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.view.State != domcheckout.StateLoading {
		return domcheckout.ErrInvalidTransition
	}
	return nil
}

// SelectMethod records the chosen method while the form is shown.
func (c *Checkout) SelectMethod(m payment.Method) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return c.view.SelectMethod(m)
}

// Submit validates the form and moves to processing before returning. The
// payment request and the status poll then run in the background. Any call
// outside the form state is rejected with ErrSubmitNotAllowed.
func (c *Checkout) Submit(ctx context.Context, form domcheckout.Form) error {
	var sub payment.Submission
	err := c.apply(ctx, func(v *domcheckout.View) error {
		if v.State != domcheckout.StateForm {
			return ErrSubmitNotAllowed
		}
		if form.Method == "" {
			form.Method = v.Method
		}
		if err := form.Validate(); err != nil {
			return err
		}
		if err := v.Processing(form); err != nil {
			return err
		}
		sub = v.Form.Submission(v.Order.ID)
		c.wg.Add(1)
		return nil
	})
	if err != nil {
		return err
	}

	// The attempt outlives the caller's request but keeps its trace and logger.
	bg := trace.ContextWithSpanContext(c.ctx, trace.SpanContextFromContext(ctx))
	bg = logctx.With(bg, logctx.FromOr(ctx, c.in.Log()).With(observability.F("checkout_id", c.id)))
	go c.run(bg, sub)
	return nil
}

func (c *Checkout) run(ctx context.Context, sub payment.Submission) {
	defer c.wg.Done()

	paymentID, ok := c.submit(ctx, sub)
	if !ok {
		return
	}

	ctx = logctx.WithFields(ctx, c.in.Log(), observability.F("payment_id", paymentID))
	out := c.poller.Run(ctx, paymentID)

	var transition func(v *domcheckout.View) error
	switch out.Kind {
	case OutcomeSucceeded:
		transition = (*domcheckout.View).Succeeded
	case OutcomeFailed:
		msg := domcheckout.MsgPaymentFailed
		if out.Payment != nil && out.Payment.ErrorDescription != "" {
			msg = out.Payment.ErrorDescription
		}
		transition = func(v *domcheckout.View) error { return v.Fail(msg) }
	case OutcomeTimedOut:
		transition = func(v *domcheckout.View) error { return v.Fail(domcheckout.MsgPollTimeout) }
	case OutcomeFetchFailed:
		transition = func(v *domcheckout.View) error { return v.Fail(domcheckout.MsgStatusCheckFailed) }
	}
	if transition != nil {
		_ = c.apply(ctx, transition)
	}

	c.publish(ctx, domcheckout.PaymentSettledEvent{
		CheckoutID: c.id,
		PaymentID:  paymentID,
		Outcome:    string(out.Kind),
		Attempts:   out.Attempts,
		OccurredAt: time.Now().UTC(),
	})
}

// submit posts the payment. It reports false when the attempt ended here.
func (c *Checkout) submit(ctx context.Context, sub payment.Submission) (id string, ok bool) {
	var err error
	ctx, run := c.in.Begin(ctx, useCaseSubmit, "SubmitPayment",
		attribute.String("checkout.id", c.id),
		attribute.String("order.id", sub.OrderID),
		attribute.String("payment.method", string(sub.Method)),
	)
	defer func() { run.Done(err) }()

	var p *payment.Payment
	p, err = c.payments.CreatePayment(ctx, sub)
	if err != nil {
		if ctx.Err() != nil {
			run.Cancel()
			return "", false
		}
		run.Fail("PAYMENT_CREATE_FAILED")
		msg := domcheckout.MsgPaymentFailed
		var d describer
		if errors.As(err, &d) && d.Description() != "" {
			msg = d.Description()
		}
		_ = c.apply(ctx, func(v *domcheckout.View) error { return v.Fail(msg) })
		return "", false
	}

	if terr := c.apply(ctx, func(v *domcheckout.View) error { return v.Submitted(p.ID) }); terr != nil {
		run.Cancel()
		return "", false
	}
	run.With(observability.F("payment_id", p.ID))
	run.SetAttributes(attribute.String("payment.id", p.ID))
	c.publish(ctx, domcheckout.PaymentSubmittedEvent{
		CheckoutID: c.id,
		OrderID:    sub.OrderID,
		PaymentID:  p.ID,
		Method:     string(sub.Method),
		OccurredAt: time.Now().UTC(),
	})
	return p.ID, true
}

// Retry returns an error view to an empty form.
func (c *Checkout) Retry(ctx context.Context) error {
	return c.apply(ctx, (*domcheckout.View).Retry)
}

// Snapshot copies the current view.
func (c *Checkout) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Checkout) snapshotLocked() Snapshot {
	v := c.view
	s := Snapshot{
		CheckoutID:   c.id,
		State:        v.State,
		Method:       v.Method,
		PaymentID:    v.PaymentID,
		Message:      v.DisplayMessage(),
		RetryOffered: v.RetryOffered(),
	}
	if v.Order != nil {
		s.OrderID = v.Order.ID
		s.Amount = v.Order.Amount
		s.Currency = v.Order.Currency
		s.AmountDisplay = money.Format(v.Order.Amount)
	}
	return s
}

// Wait blocks until the view is terminal, the checkout is closed or ctx ends.
func (c *Checkout) Wait(ctx context.Context) (Snapshot, error) {
	for {
		c.mu.Lock()
		snap := c.snapshotLocked()
		closed, changed := c.closed, c.changed
		c.mu.Unlock()

		if snap.State.Terminal() {
			return snap, nil
		}
		if closed {
			return snap, ErrClosed
		}

		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-changed:
		}
	}
}

// Close cancels any in-flight request or poll and waits for it to exit. No
// status fetch is issued after Close returns. Close is idempotent.
func (c *Checkout) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.notifyLocked()
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// apply runs fn against the view under the lock and emits a state change
// event when the state moved.
func (c *Checkout) apply(ctx context.Context, fn func(v *domcheckout.View) error) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	from := c.view.State
	if err := fn(&c.view); err != nil {
		c.mu.Unlock()
		return err
	}
	if from == c.view.State {
		c.mu.Unlock()
		return nil
	}
	evt := domcheckout.NewStateChangedEvent(c.id, from, c.view)
	c.notifyLocked()

	c.pubMu.Lock()
	c.mu.Unlock()
	defer c.pubMu.Unlock()

	logctx.FromOr(ctx, c.in.Log()).Debug("checkout_transition",
		observability.F("from", string(from)),
		observability.F("to", string(evt.To)),
	)
	c.publishLocked(ctx, evt)
	return nil
}

func (c *Checkout) notifyLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}

func (c *Checkout) publish(ctx context.Context, e domoutbox.Event) {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	c.publishLocked(ctx, e)
}

// publishLocked is best effort; a failed publish never changes the view.
func (c *Checkout) publishLocked(ctx context.Context, e domoutbox.Event) {
	if c.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := c.publisher.Publish(ctx, e); err != nil {
		logctx.FromOr(ctx, c.in.Log()).Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("checkout_id", c.id),
			observability.F("error", err.Error()),
		)
	}
}
