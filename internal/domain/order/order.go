package order

import (
	"errors"
	"strings"
)

var ErrInvalidID = errors.New("order: id is required")

// DefaultCurrency is assumed when the gateway omits one.
const DefaultCurrency = "INR"

type Status string

const (
	StatusCreated Status = "created"
	StatusPaid    Status = "paid"
)

// Order is the read-only view of a gateway order held for the duration of a checkout.
type Order struct {
	ID       string
	Amount   int64 // minor units
	Currency string
	Status   Status
	Receipt  string
}

// New normalizes a fetched order. The id is the only required field.
func New(id string, amount int64, currency string, status Status) (*Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidID
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Order{
		ID:       id,
		Amount:   amount,
		Currency: currency,
		Status:   status,
	}, nil
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	return &clone
}
