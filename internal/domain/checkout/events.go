package checkout

import "time"

// OrderLoadedEvent is emitted when the order fetch resolves and the form is shown.
type OrderLoadedEvent struct {
	CheckoutID string
	OrderID    string
	Amount     int64
	OccurredAt time.Time
}

func (OrderLoadedEvent) EventName() string { return "checkout.order_loaded" }

// StateChangedEvent is emitted on every view transition.
type StateChangedEvent struct {
	CheckoutID string
	OrderID    string
	From       State
	To         State
	PaymentID  string
	Message    string
	OccurredAt time.Time
}

func (StateChangedEvent) EventName() string { return "checkout.state_changed" }

func NewStateChangedEvent(checkoutID string, from State, v View) StateChangedEvent {
	e := StateChangedEvent{
		CheckoutID: checkoutID,
		From:       from,
		To:         v.State,
		PaymentID:  v.PaymentID,
		Message:    v.Message,
		OccurredAt: time.Now().UTC(),
	}
	if v.Order != nil {
		e.OrderID = v.Order.ID
	}
	return e
}

// PaymentSubmittedEvent is emitted once the gateway accepts a submission.
type PaymentSubmittedEvent struct {
	CheckoutID string
	OrderID    string
	PaymentID  string
	Method     string
	OccurredAt time.Time
}

func (PaymentSubmittedEvent) EventName() string { return "checkout.payment_submitted" }

// PaymentSettledEvent is emitted when a poll run ends, whatever the outcome.
// Outcome "timeout" is a client-side give-up; the payment may still resolve server-side.
type PaymentSettledEvent struct {
	CheckoutID string
	PaymentID  string
	Outcome    string
	Attempts   int
	OccurredAt time.Time
}

func (PaymentSettledEvent) EventName() string { return "checkout.payment_settled" }
