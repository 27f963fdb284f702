package checkout

import (
	"errors"

	"github.com/Zhima-Mochi/paygate-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/paygate-checkout/internal/domain/payment"
)

var (
	ErrNotFound  = errors.New("checkout: not found")
	ErrDuplicate = errors.New("checkout: id already registered")
)

// OrderLookup is the Order Service read port.
type OrderLookup = order.Lookup

// PaymentGateway is the payment submission and status port.
type PaymentGateway = payment.Gateway

// IDGenerator issues checkout identifiers.
type IDGenerator interface {
	NewID() string
}

// describer is implemented by gateway errors that carry a server-provided,
// human-readable description.
type describer interface {
	Description() string
}

// Registry holds the live checkouts of a long-running process.
type Registry interface {
	Add(c *Checkout) error
	Get(id string) (*Checkout, error)
	Remove(id string) (*Checkout, error)
	All() []*Checkout
}
