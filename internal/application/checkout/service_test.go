package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	domcheckout "github.com/Zhima-Mochi/paygate-checkout/internal/domain/checkout"
	"github.com/Zhima-Mochi/paygate-checkout/internal/domain/payment"

	"github.com/jonboulle/clockwork"
)

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("chk_%d", s.n)
}

type mapRegistry struct {
	mu    sync.Mutex
	items map[string]*Checkout
}

func (r *mapRegistry) Add(c *Checkout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[c.ID()]; ok {
		return ErrDuplicate
	}
	r.items[c.ID()] = c
	return nil
}

func (r *mapRegistry) Get(id string) (*Checkout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (r *mapRegistry) Remove(id string) (*Checkout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(r.items, id)
	return c, nil
}

func (r *mapRegistry) All() []*Checkout {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Checkout, 0, len(r.items))
	for _, c := range r.items {
		out = append(out, c)
	}
	return out
}

func TestServiceLifecycle(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{status: func(int) (*payment.Payment, error) {
		return payment.New("pay_1", payment.StatusSuccess)
	}}
	reg := &mapRegistry{items: map[string]*Checkout{}}
	svc := NewService(Dependencies{
		Orders:   &fakeOrders{},
		Payments: gw,
		Clock:    clockwork.NewFakeClock(),
	}, &seqIDs{}, reg)
	t.Cleanup(svc.Shutdown)

	ctx := context.Background()
	snap, err := svc.Start(ctx, "order_1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap.CheckoutID != "chk_1" || snap.State != domcheckout.StateForm {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	if _, err := svc.Submit(ctx, snap.CheckoutID, upiForm); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.Submit(ctx, snap.CheckoutID, upiForm); !errors.Is(err, ErrSubmitNotAllowed) {
		t.Fatalf("expected ErrSubmitNotAllowed, got %v", err)
	}

	c, _ := reg.Get(snap.CheckoutID)
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if final, err := c.Wait(wctx); err != nil || final.State != domcheckout.StateSuccess {
		t.Fatalf("expected success, got %+v (%v)", final, err)
	}

	if _, err := svc.Retry(ctx, snap.CheckoutID); !errors.Is(err, ErrRetryUnavailable) {
		t.Fatalf("expected ErrRetryUnavailable, got %v", err)
	}
	if err := svc.Close(ctx, snap.CheckoutID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := svc.Get(ctx, snap.CheckoutID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after close, got %v", err)
	}
}

func TestServiceStartKeepsFailedLoad(t *testing.T) {
	t.Parallel()

	reg := &mapRegistry{items: map[string]*Checkout{}}
	svc := NewService(Dependencies{Orders: &fakeOrders{}, Payments: &fakeGateway{}}, &seqIDs{}, reg)
	t.Cleanup(svc.Shutdown)

	snap, err := svc.Start(context.Background(), "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap.State != domcheckout.StateError || snap.Message != domcheckout.MsgOrderIDRequired {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if got, err := svc.Get(context.Background(), snap.CheckoutID); err != nil || got.State != domcheckout.StateError {
		t.Fatalf("expected error view to be readable, got %+v (%v)", got, err)
	}
}

func TestPayUseCase(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{status: func(int) (*payment.Payment, error) {
		return payment.New("pay_1", payment.StatusSuccess)
	}}
	uc := NewPayUseCase(Dependencies{Orders: &fakeOrders{}, Payments: gw}, &seqIDs{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := uc.Execute(ctx, PayInput{OrderID: "order_1", Form: upiForm})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if snap.State != domcheckout.StateSuccess || snap.PaymentID != "pay_1" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	if _, err := uc.Execute(ctx, PayInput{OrderID: "order_1"}); !errors.Is(err, ErrFieldRequired) {
		t.Fatalf("expected ErrFieldRequired, got %v", err)
	}
}
