package memory

import (
	"fmt"
	"sort"
	"sync"

	appcheckout "github.com/Zhima-Mochi/paygate-checkout/internal/application/checkout"
)

var _ appcheckout.Registry = (*CheckoutRegistry)(nil)

// CheckoutRegistry keeps live checkouts in memory. Nothing survives a restart.
type CheckoutRegistry struct {
	mu        sync.RWMutex
	checkouts map[string]*appcheckout.Checkout
}

func NewCheckoutRegistry() *CheckoutRegistry {
	return &CheckoutRegistry{
		checkouts: make(map[string]*appcheckout.Checkout),
	}
}

func (r *CheckoutRegistry) Add(c *appcheckout.Checkout) error {
	if c == nil || c.ID() == "" {
		return fmt.Errorf("checkout registry: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.checkouts[c.ID()]; exists {
		return appcheckout.ErrDuplicate
	}
	r.checkouts[c.ID()] = c
	return nil
}

func (r *CheckoutRegistry) Get(id string) (*appcheckout.Checkout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.checkouts[id]
	if !ok {
		return nil, appcheckout.ErrNotFound
	}
	return c, nil
}

func (r *CheckoutRegistry) Remove(id string) (*appcheckout.Checkout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.checkouts[id]
	if !ok {
		return nil, appcheckout.ErrNotFound
	}
	delete(r.checkouts, id)
	return c, nil
}

// All returns the live checkouts ordered by id.
func (r *CheckoutRegistry) All() []*appcheckout.Checkout {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*appcheckout.Checkout, 0, len(r.checkouts))
	for _, c := range r.checkouts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (r *CheckoutRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.checkouts)
}
