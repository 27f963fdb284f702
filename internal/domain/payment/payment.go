package payment

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidID     = errors.New("payment: id is required")
	ErrInvalidMethod = errors.New("payment: method must be upi or card")
)

type Method string

const (
	MethodUPI  Method = "upi"
	MethodCard Method = "card"
)

func (m Method) Valid() bool {
	return m == MethodUPI || m == MethodCard
}

// Status is the gateway's payment status vocabulary. Only the lowercase
// success and failed values are terminal; anything else keeps a poll going.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Known reports whether s belongs to the lowercase vocabulary.
func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusSuccess, StatusFailed:
		return true
	}
	return false
}

// Payment is created server-side on submission. The client only observes it.
type Payment struct {
	ID               string
	OrderID          string
	Amount           int64
	Currency         string
	Method           Method
	Status           Status
	ErrorCode        string
	ErrorDescription string
	CreatedAt        time.Time
}

// New validates the fields every gateway payment response must carry.
func New(id string, status Status) (*Payment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidID
	}
	return &Payment{ID: id, Status: status}, nil
}
