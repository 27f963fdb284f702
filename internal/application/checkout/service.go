package checkout

import (
	"context"
	"fmt"

	domcheckout "github.com/Zhima-Mochi/paygate-checkout/internal/domain/checkout"
	"github.com/Zhima-Mochi/paygate-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/paygate-checkout/internal/observability"
)

// Service manages many concurrent checkouts by id.
type Service struct {
	deps     Dependencies
	ids      IDGenerator
	registry Registry
	log      observability.Logger
}

func NewService(deps Dependencies, ids IDGenerator, registry Registry) *Service {
	return &Service{
		deps:     deps,
		ids:      ids,
		registry: registry,
		log:      observability.OrNop(deps.Telemetry).Logger().With(observability.F("service", checkoutService)),
	}
}

// Start opens a checkout for orderID and loads the order. The checkout is
// registered even when loading fails, so its error view can be read back.
func (s *Service) Start(ctx context.Context, orderID string) (Snapshot, error) {
	c := New(s.ids.NewID(), s.deps)
	if err := s.registry.Add(c); err != nil {
		c.Close()
		return Snapshot{}, fmt.Errorf("checkout: register: %w", err)
	}
	// Load failures live in the view.
	_ = c.Load(ctx, orderID)
	return c.Snapshot(), nil
}

func (s *Service) Get(_ context.Context, id string) (Snapshot, error) {
	c, err := s.registry.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return c.Snapshot(), nil
}

func (s *Service) SelectMethod(_ context.Context, id string, m payment.Method) (Snapshot, error) {
	c, err := s.registry.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	if err := c.SelectMethod(m); err != nil {
		return c.Snapshot(), err
	}
	return c.Snapshot(), nil
}

func (s *Service) Submit(ctx context.Context, id string, form domcheckout.Form) (Snapshot, error) {
	c, err := s.registry.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	if err := c.Submit(ctx, form); err != nil {
		return c.Snapshot(), err
	}
	return c.Snapshot(), nil
}

func (s *Service) Retry(ctx context.Context, id string) (Snapshot, error) {
	c, err := s.registry.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	if err := c.Retry(ctx); err != nil {
		return c.Snapshot(), err
	}
	return c.Snapshot(), nil
}

// Close tears down the checkout and forgets it.
func (s *Service) Close(_ context.Context, id string) error {
	c, err := s.registry.Remove(id)
	if err != nil {
		return err
	}
	c.Close()
	return nil
}

// Shutdown closes every live checkout.
func (s *Service) Shutdown() {
	all := s.registry.All()
	for _, c := range all {
		if _, err := s.registry.Remove(c.ID()); err == nil {
			c.Close()
		}
	}
	if len(all) > 0 {
		s.log.Info("checkouts_closed", observability.F("count", len(all)))
	}
}
