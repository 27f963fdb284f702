package order

import "context"

// Lookup resolves an order identifier to its details.
type Lookup interface {
	GetOrder(ctx context.Context, id string) (*Order, error)
}
