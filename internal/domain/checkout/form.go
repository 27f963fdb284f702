package checkout

import (
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/paygate-checkout/internal/domain/payment"
)

var ErrFieldRequired = errors.New("checkout: field is required")

// FieldError names the form field that failed the presence check.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("checkout: %s is required", e.Field)
}

func (e *FieldError) Unwrap() error { return ErrFieldRequired }

// Form holds the values a payer typed in. Only presence is checked here;
// the gateway owns Luhn, expiry and VPA format validation.
type Form struct {
	Method     payment.Method
	VPA        string
	CardNumber string
	Expiry     string // combined MM/YY
	CVV        string
	HolderName string
}

// Validate checks the required fields of the selected method.
func (f Form) Validate() error {
	switch f.Method {
	case payment.MethodUPI:
		if f.VPA == "" {
			return &FieldError{Field: "vpa"}
		}
	case payment.MethodCard:
		for _, field := range []struct{ name, value string }{
			{"card_number", f.CardNumber},
			{"expiry", f.Expiry},
			{"cvv", f.CVV},
			{"holder_name", f.HolderName},
		} {
			if field.value == "" {
				return &FieldError{Field: field.name}
			}
		}
	default:
		return &FieldError{Field: "method"}
	}
	return nil
}

// Submission builds the request payload, branching on the method.
func (f Form) Submission(orderID string) payment.Submission {
	sub := payment.Submission{
		OrderID: orderID,
		Method:  f.Method,
	}
	switch f.Method {
	case payment.MethodUPI:
		sub.VPA = f.VPA
	case payment.MethodCard:
		month, year := payment.ParseExpiry(f.Expiry)
		sub.Card = &payment.Card{
			Number:      f.CardNumber,
			ExpiryMonth: month,
			ExpiryYear:  year,
			CVV:         f.CVV,
			HolderName:  f.HolderName,
		}
	}
	return sub
}
