package checkout

import (
	"errors"

	"github.com/Zhima-Mochi/paygate-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/paygate-checkout/internal/domain/payment"
)

// Messages rendered in the single message area.
const (
	MsgOrderIDRequired   = "Order ID is required"
	MsgOrderLoadFailed   = "Failed to load order details"
	MsgPaymentFailed     = "Payment failed"
	MsgStatusCheckFailed = "Failed to check payment status"
	MsgPollTimeout       = "Payment processing timeout"
	MsgNotProcessed      = "Payment could not be processed"
)

var ErrRetryUnavailable = errors.New("checkout: retry is not available")

// View is the whole client-held state of one checkout attempt.
type View struct {
	State     State
	Order     *order.Order
	Method    payment.Method
	Form      Form
	PaymentID string
	Message   string
}

// NewView returns a view in the initial loading state.
func NewView() View {
	return View{State: StateLoading}
}

func (v *View) move(next State) error {
	if !v.State.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	v.State = next
	return nil
}

// OrderLoaded stores the fetched order and shows the form.
func (v *View) OrderLoaded(o *order.Order) error {
	if v.State != StateLoading {
		return ErrInvalidTransition
	}
	if err := v.move(StateForm); err != nil {
		return err
	}
	v.Order = o.Clone()
	return nil
}

// SelectMethod records the method chosen on the form.
func (v *View) SelectMethod(m payment.Method) error {
	if v.State != StateForm {
		return ErrInvalidTransition
	}
	if !m.Valid() {
		return payment.ErrInvalidMethod
	}
	v.Method = m
	return nil
}

// Processing marks the submission in flight. The method on the form wins
// over a previously selected one.
func (v *View) Processing(f Form) error {
	if f.Method == "" {
		f.Method = v.Method
	}
	if err := v.move(StateProcessing); err != nil {
		return err
	}
	v.Method = f.Method
	v.Form = f
	v.Message = ""
	return nil
}

// Submitted records the payment id returned by the gateway; polling follows.
func (v *View) Submitted(paymentID string) error {
	if v.State != StateProcessing {
		return ErrInvalidTransition
	}
	v.PaymentID = paymentID
	return nil
}

func (v *View) Succeeded() error {
	return v.move(StateSuccess)
}

// Fail enters the error state with msg.
func (v *View) Fail(msg string) error {
	if err := v.move(StateError); err != nil {
		return err
	}
	v.Message = msg
	return nil
}

// RetryOffered reports whether Retry can be taken from the current view.
func (v *View) RetryOffered() bool {
	return v.State == StateError && v.Order != nil
}

// Retry clears every entered field, the method and the message, and returns to the form.
func (v *View) Retry() error {
	if !v.RetryOffered() {
		return ErrRetryUnavailable
	}
	if err := v.move(StateForm); err != nil {
		return err
	}
	v.Method = ""
	v.Form = Form{}
	v.PaymentID = ""
	v.Message = ""
	return nil
}

// DisplayMessage is the text shown in the message area for an error view.
func (v *View) DisplayMessage() string {
	if v.State != StateError {
		return ""
	}
	if v.Message == "" {
		return MsgNotProcessed
	}
	return v.Message
}
