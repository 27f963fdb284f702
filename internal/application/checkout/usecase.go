package checkout

import (
	"context"

	"github.com/Zhima-Mochi/paygate-checkout/internal/application"
	domcheckout "github.com/Zhima-Mochi/paygate-checkout/internal/domain/checkout"
)

var _ application.UseCase[PayInput, Snapshot] = (*PayUseCase)(nil)

type PayInput struct {
	OrderID string
	Form    domcheckout.Form
}

// PayUseCase runs one checkout end to end: load, submit, wait for a terminal
// view. The checkout is closed before Execute returns.
type PayUseCase struct {
	deps Dependencies
	ids  IDGenerator
}

func NewPayUseCase(deps Dependencies, ids IDGenerator) *PayUseCase {
	return &PayUseCase{deps: deps, ids: ids}
}

// Execute returns the final snapshot. A non-nil error means the flow stopped
// before a payment was attempted or ctx ended; payment failures are reported
// in the snapshot only.
func (uc *PayUseCase) Execute(ctx context.Context, in PayInput) (Snapshot, error) {
	c := New(uc.ids.NewID(), uc.deps)
	defer c.Close()

	if err := c.Load(ctx, in.OrderID); err != nil {
		return c.Snapshot(), err
	}
	if err := c.Submit(ctx, in.Form); err != nil {
		return c.Snapshot(), err
	}
	return c.Wait(ctx)
}
