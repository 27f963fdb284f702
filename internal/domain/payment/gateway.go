package payment

import "context"

// Gateway accepts payment submissions and exposes their status.
type Gateway interface {
	CreatePayment(ctx context.Context, sub Submission) (*Payment, error)
	PaymentStatus(ctx context.Context, id string) (*Payment, error)
}
