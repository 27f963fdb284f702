package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domcheckout "github.com/Zhima-Mochi/paygate-checkout/internal/domain/checkout"
	"github.com/Zhima-Mochi/paygate-checkout/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/paygate-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/paygate-checkout/internal/domain/payment"

	"github.com/jonboulle/clockwork"
)

type fakeOrders struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeOrders) GetOrder(_ context.Context, id string) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return order.New(id, 123456, "INR", order.StatusCreated)
}

func (f *fakeOrders) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeGateway struct {
	mu          sync.Mutex
	createCalls int
	statusCalls int
	lastSub     payment.Submission

	// release, when set, holds CreatePayment until closed.
	release   chan struct{}
	createErr error
	status    func(call int) (*payment.Payment, error)
}

func (f *fakeGateway) CreatePayment(ctx context.Context, sub payment.Submission) (*payment.Payment, error) {
	f.mu.Lock()
	f.createCalls++
	f.lastSub = sub
	release, err := f.release, f.createErr
	f.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return payment.New("pay_1", payment.StatusPending)
}

func (f *fakeGateway) PaymentStatus(_ context.Context, id string) (*payment.Payment, error) {
	f.mu.Lock()
	f.statusCalls++
	call := f.statusCalls
	f.mu.Unlock()

	if f.status == nil {
		return payment.New(id, payment.StatusPending)
	}
	return f.status(call)
}

func (f *fakeGateway) Counts() (create, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls, f.statusCalls
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Transitions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		if sc, ok := e.(domcheckout.StateChangedEvent); ok {
			out = append(out, string(sc.From)+">"+string(sc.To))
		}
	}
	return out
}

type apiError struct{ desc string }

func (e *apiError) Error() string       { return "gateway: 400: " + e.desc }
func (e *apiError) Description() string { return e.desc }

type fixture struct {
	c      *Checkout
	clock  clockwork.FakeClock
	orders *fakeOrders
	gw     *fakeGateway
	pub    *recordingPublisher
}

func newFixture(t *testing.T, gw *fakeGateway) *fixture {
	t.Helper()

	f := &fixture{
		clock:  clockwork.NewFakeClock(),
		orders: &fakeOrders{},
		gw:     gw,
		pub:    &recordingPublisher{},
	}
	f.c = New("chk_1", Dependencies{
		Orders:    f.orders,
		Payments:  gw,
		Clock:     f.clock,
		Publisher: f.pub,
	})
	t.Cleanup(f.c.Close)
	return f
}

func (f *fixture) load(t *testing.T) {
	t.Helper()
	if err := f.c.Load(context.Background(), "order_1"); err != nil {
		t.Fatalf("load: %v", err)
	}
}

// advance lets n poll waits elapse, one at a time.
func (f *fixture) advance(n int) {
	for i := 0; i < n; i++ {
		f.clock.BlockUntil(1)
		f.clock.Advance(domcheckout.PollInterval)
	}
}

func (f *fixture) wait(t *testing.T) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := f.c.Wait(ctx)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	return snap
}

var upiForm = domcheckout.Form{Method: payment.MethodUPI, VPA: "payer@bank"}

func TestLoadWithoutOrderIDSkipsNetwork(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeGateway{})
	if err := f.c.Load(context.Background(), ""); !errors.Is(err, ErrOrderIDRequired) {
		t.Fatalf("expected ErrOrderIDRequired, got %v", err)
	}

	snap := f.c.Snapshot()
	if snap.State != domcheckout.StateError || snap.Message != "Order ID is required" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.RetryOffered {
		t.Fatal("retry must not be offered without an order")
	}
	if f.orders.Calls() != 0 {
		t.Fatalf("expected no order fetch, got %d", f.orders.Calls())
	}
}

func TestLoadFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeGateway{})
	f.orders.err = errors.New("gateway: 404")

	if err := f.c.Load(context.Background(), "order_1"); err == nil {
		t.Fatal("expected load error")
	}
	snap := f.c.Snapshot()
	if snap.State != domcheckout.StateError || snap.Message != "Failed to load order details" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestLoadShowsFormWithFormattedAmount(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeGateway{})
	f.load(t)

	snap := f.c.Snapshot()
	if snap.State != domcheckout.StateForm {
		t.Fatalf("expected form, got %q", snap.State)
	}
	if snap.AmountDisplay != "₹1234.56" || snap.Amount != 123456 {
		t.Fatalf("unexpected amount %d %q", snap.Amount, snap.AmountDisplay)
	}
	if err := f.c.Load(context.Background(), "order_1"); !errors.Is(err, domcheckout.ErrInvalidTransition) {
		t.Fatalf("expected second load to be rejected, got %v", err)
	}
}

func TestSubmitMovesToProcessingBeforeResponse(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	gw := &fakeGateway{
		release: release,
		status: func(int) (*payment.Payment, error) {
			return payment.New("pay_1", payment.StatusSuccess)
		},
	}
	f := newFixture(t, gw)
	f.load(t)

	if err := f.c.Submit(context.Background(), upiForm); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := f.c.Snapshot().State; got != domcheckout.StateProcessing {
		t.Fatalf("expected processing before the response, got %q", got)
	}

	close(release)
	snap := f.wait(t)
	if snap.State != domcheckout.StateSuccess || snap.PaymentID != "pay_1" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if gw.lastSub.VPA != "payer@bank" || gw.lastSub.Card != nil {
		t.Fatalf("unexpected submission %+v", gw.lastSub)
	}

	want := []string{"loading>form", "form>processing", "processing>success"}
	got := f.pub.Transitions()
	if len(got) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected transitions %v, got %v", want, got)
		}
	}
}

func TestSubmitRejectsMissingFields(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeGateway{})
	f.load(t)

	err := f.c.Submit(context.Background(), domcheckout.Form{Method: payment.MethodUPI})
	if !errors.Is(err, ErrFieldRequired) {
		t.Fatalf("expected ErrFieldRequired, got %v", err)
	}
	if got := f.c.Snapshot().State; got != domcheckout.StateForm {
		t.Fatalf("expected state unchanged, got %q", got)
	}
	if create, _ := f.gw.Counts(); create != 0 {
		t.Fatalf("expected no request, got %d", create)
	}
}

func TestSubmitUsesSelectedMethod(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{status: func(int) (*payment.Payment, error) {
		return payment.New("pay_1", payment.StatusSuccess)
	}}
	f := newFixture(t, gw)
	f.load(t)

	if err := f.c.SelectMethod(payment.MethodCard); err != nil {
		t.Fatalf("select: %v", err)
	}
	form := domcheckout.Form{CardNumber: "4111111111111111", Expiry: "12/25", CVV: "123", HolderName: "A Payer"}
	if err := f.c.Submit(context.Background(), form); err != nil {
		t.Fatalf("submit: %v", err)
	}
	f.wait(t)

	card := gw.lastSub.Card
	if card == nil || card.ExpiryMonth != "12" || card.ExpiryYear == nil || *card.ExpiryYear != "25" {
		t.Fatalf("unexpected card submission %+v", card)
	}
}

func TestSubmitIsIdempotentWhileProcessing(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	gw := &fakeGateway{
		release: release,
		status: func(int) (*payment.Payment, error) {
			return payment.New("pay_1", payment.StatusSuccess)
		},
	}
	f := newFixture(t, gw)
	f.load(t)

	if err := f.c.Submit(context.Background(), upiForm); err != nil {
		t.Fatalf("submit: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.c.Submit(context.Background(), upiForm)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if !errors.Is(err, ErrSubmitNotAllowed) {
			t.Fatalf("expected ErrSubmitNotAllowed, got %v", err)
		}
	}

	close(release)
	f.wait(t)
	if create, _ := gw.Counts(); create != 1 {
		t.Fatalf("expected exactly one submission, got %d", create)
	}
}

func TestSubmitFailureMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "server_description", err: &apiError{desc: "Invalid VPA"}, want: "Invalid VPA"},
		{name: "server_without_description", err: &apiError{}, want: "Payment failed"},
		{name: "transport", err: errors.New("dial tcp: connection refused"), want: "Payment failed"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, &fakeGateway{createErr: tt.err})
			f.load(t)
			if err := f.c.Submit(context.Background(), upiForm); err != nil {
				t.Fatalf("submit: %v", err)
			}

			snap := f.wait(t)
			if snap.State != domcheckout.StateError || snap.Message != tt.want {
				t.Fatalf("expected error %q, got %+v", tt.want, snap)
			}
			if _, status := f.gw.Counts(); status != 0 {
				t.Fatalf("expected no poll, got %d", status)
			}
		})
	}
}

func TestPollSucceedsOnThirtiethAttempt(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{status: func(call int) (*payment.Payment, error) {
		if call == 30 {
			return payment.New("pay_1", payment.StatusSuccess)
		}
		return payment.New("pay_1", payment.StatusPending)
	}}
	f := newFixture(t, gw)
	f.load(t)
	start := f.clock.Now()

	if err := f.c.Submit(context.Background(), upiForm); err != nil {
		t.Fatalf("submit: %v", err)
	}
	f.advance(29)

	snap := f.wait(t)
	if snap.State != domcheckout.StateSuccess {
		t.Fatalf("expected success, got %+v", snap)
	}
	if _, status := gw.Counts(); status != 30 {
		t.Fatalf("expected 30 status fetches, got %d", status)
	}
	if elapsed := f.clock.Since(start); elapsed < 29*domcheckout.PollInterval {
		t.Fatalf("expected fetches spaced by the poll interval, elapsed %s", elapsed)
	}
}

func TestPollTimesOutAfterThirtyAttempts(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	f := newFixture(t, gw)
	f.load(t)

	if err := f.c.Submit(context.Background(), upiForm); err != nil {
		t.Fatalf("submit: %v", err)
	}
	f.advance(29)

	snap := f.wait(t)
	if snap.State != domcheckout.StateError || snap.Message != "Payment processing timeout" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	f.clock.Advance(10 * domcheckout.PollInterval)
	if _, status := gw.Counts(); status != 30 {
		t.Fatalf("expected exactly 30 status fetches, got %d", status)
	}
}

func TestPollFailedUsesServerDescription(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{status: func(call int) (*payment.Payment, error) {
		if call == 3 {
			p, _ := payment.New("pay_1", payment.StatusFailed)
			p.ErrorDescription = "insufficient funds"
			return p, nil
		}
		return payment.New("pay_1", payment.StatusProcessing)
	}}
	f := newFixture(t, gw)
	f.load(t)

	if err := f.c.Submit(context.Background(), upiForm); err != nil {
		t.Fatalf("submit: %v", err)
	}
	f.advance(2)

	snap := f.wait(t)
	if snap.State != domcheckout.StateError || snap.Message != "insufficient funds" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if _, status := gw.Counts(); status != 3 {
		t.Fatalf("expected 3 status fetches, got %d", status)
	}
}

func TestPollFetchFailureIsNotRetried(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{status: func(call int) (*payment.Payment, error) {
		if call == 2 {
			return nil, errors.New("gateway: 502")
		}
		return payment.New("pay_1", payment.StatusPending)
	}}
	f := newFixture(t, gw)
	f.load(t)

	if err := f.c.Submit(context.Background(), upiForm); err != nil {
		t.Fatalf("submit: %v", err)
	}
	f.advance(1)

	snap := f.wait(t)
	if snap.State != domcheckout.StateError || snap.Message != "Failed to check payment status" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if _, status := gw.Counts(); status != 2 {
		t.Fatalf("expected 2 status fetches, got %d", status)
	}
}

func TestUppercaseStatusStaysNonTerminal(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{status: func(call int) (*payment.Payment, error) {
		if call == 1 {
			return payment.New("pay_1", payment.Status("SUCCESS"))
		}
		return payment.New("pay_1", payment.StatusSuccess)
	}}
	f := newFixture(t, gw)
	f.load(t)

	if err := f.c.Submit(context.Background(), upiForm); err != nil {
		t.Fatalf("submit: %v", err)
	}
	f.advance(1)

	if snap := f.wait(t); snap.State != domcheckout.StateSuccess {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if _, status := gw.Counts(); status != 2 {
		t.Fatalf("expected the uppercase status to keep polling, got %d fetches", status)
	}
}

func TestRetryClearsAndReturnsToForm(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeGateway{createErr: &apiError{desc: "Invalid VPA"}})
	f.load(t)

	if err := f.c.Retry(context.Background()); !errors.Is(err, ErrRetryUnavailable) {
		t.Fatalf("expected ErrRetryUnavailable from form, got %v", err)
	}
	if err := f.c.Submit(context.Background(), upiForm); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if snap := f.wait(t); !snap.RetryOffered {
		t.Fatalf("expected retry offered, got %+v", snap)
	}

	if err := f.c.Retry(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	snap := f.c.Snapshot()
	if snap.State != domcheckout.StateForm || snap.Message != "" || snap.Method != "" || snap.PaymentID != "" {
		t.Fatalf("unexpected snapshot after retry %+v", snap)
	}
	if snap.OrderID != "order_1" {
		t.Fatalf("expected order kept, got %q", snap.OrderID)
	}
}

func TestCloseStopsPolling(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	f := newFixture(t, gw)
	f.load(t)

	if err := f.c.Submit(context.Background(), upiForm); err != nil {
		t.Fatalf("submit: %v", err)
	}
	f.clock.BlockUntil(1)
	f.c.Close()

	f.clock.Advance(5 * domcheckout.PollInterval)
	if _, status := gw.Counts(); status != 1 {
		t.Fatalf("expected no fetch after close, got %d", status)
	}
	if got := f.c.Snapshot().State; got != domcheckout.StateProcessing {
		t.Fatalf("expected view frozen at processing, got %q", got)
	}
	if err := f.c.Submit(context.Background(), upiForm); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := f.c.Wait(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected Wait to report ErrClosed, got %v", err)
	}
}

func TestCloseAbandonsPendingSubmission(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{release: make(chan struct{})}
	f := newFixture(t, gw)
	f.load(t)

	if err := f.c.Submit(context.Background(), upiForm); err != nil {
		t.Fatalf("submit: %v", err)
	}

	done := make(chan struct{})
	go func() {
		f.c.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("close did not return while the submission was pending")
	}
	if _, status := gw.Counts(); status != 0 {
		t.Fatalf("expected no poll after close, got %d", status)
	}
}
