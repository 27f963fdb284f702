package payment

import "strings"

// Card carries the raw card form fields. ExpiryYear is nil when the combined
// MM/YY input had no separator; it is then omitted from the wire body.
type Card struct {
	Number      string
	ExpiryMonth string
	ExpiryYear  *string
	CVV         string
	HolderName  string
}

// Submission is built once per submit action and never stored.
type Submission struct {
	OrderID string
	Method  Method
	VPA     string
	Card    *Card
}

// ParseExpiry splits a combined "MM/YY" value on "/". The token count is not
// checked: "12/25" gives ("12", "25"), "1225" gives ("1225", nil), and tokens
// past the second are dropped.
func ParseExpiry(expiry string) (month string, year *string) {
	parts := strings.Split(expiry, "/")
	month = parts[0]
	if len(parts) > 1 {
		y := parts[1]
		year = &y
	}
	return month, year
}
