package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/paygate-checkout/internal/domain/merchant"
	"github.com/Zhima-Mochi/paygate-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/paygate-checkout/internal/domain/payment"
)

type orderDTO struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Receipt  string `json:"receipt"`
}

func (d orderDTO) toDomain() (*order.Order, error) {
	o, err := order.New(d.ID, d.Amount, d.Currency, order.Status(strings.TrimSpace(d.Status)))
	if err != nil {
		return nil, fmt.Errorf("%w: order: %w", ErrInvalidResponse, err)
	}
	o.Receipt = d.Receipt
	return o, nil
}

type cardDTO struct {
	Number      string  `json:"number"`
	ExpiryMonth string  `json:"expiryMonth"`
	ExpiryYear  *string `json:"expiryYear,omitempty"`
	CVV         string  `json:"cvv"`
	HolderName  string  `json:"holderName"`
}

type createPaymentRequest struct {
	OrderID string   `json:"orderId"`
	Method  string   `json:"method"`
	VPA     string   `json:"vpa,omitempty"`
	Card    *cardDTO `json:"card,omitempty"`
}

func newCreatePaymentRequest(sub payment.Submission) createPaymentRequest {
	req := createPaymentRequest{
		OrderID: sub.OrderID,
		Method:  string(sub.Method),
		VPA:     sub.VPA,
	}
	if sub.Card != nil {
		req.Card = &cardDTO{
			Number:      sub.Card.Number,
			ExpiryMonth: sub.Card.ExpiryMonth,
			ExpiryYear:  sub.Card.ExpiryYear,
			CVV:         sub.Card.CVV,
			HolderName:  sub.Card.HolderName,
		}
	}
	return req
}

// paymentDTO accepts both camelCase and snake_case field names.
type paymentDTO struct {
	ID                    string          `json:"id"`
	OrderID               string          `json:"orderId"`
	OrderIDSnake          string          `json:"order_id"`
	Amount                int64           `json:"amount"`
	Currency              string          `json:"currency"`
	Method                string          `json:"method"`
	Status                string          `json:"status"`
	ErrorCode             string          `json:"errorCode"`
	ErrorCodeSnake        string          `json:"error_code"`
	ErrorDescription      string          `json:"errorDescription"`
	ErrorDescriptionSnake string          `json:"error_description"`
	CreatedAt             json.RawMessage `json:"createdAt"`
	CreatedAtSnake        json.RawMessage `json:"created_at"`
}

// toDomain keeps the status verbatim: "SUCCESS" is not "success".
func (d paymentDTO) toDomain() (*payment.Payment, error) {
	p, err := payment.New(d.ID, payment.Status(strings.TrimSpace(d.Status)))
	if err != nil {
		return nil, fmt.Errorf("%w: payment: %w", ErrInvalidResponse, err)
	}
	p.OrderID = firstNonEmpty(d.OrderID, d.OrderIDSnake)
	p.Amount = d.Amount
	p.Currency = d.Currency
	if p.Currency == "" {
		p.Currency = order.DefaultCurrency
	}
	p.Method = payment.Method(d.Method)
	p.ErrorCode = firstNonEmpty(d.ErrorCode, d.ErrorCodeSnake)
	p.ErrorDescription = firstNonEmpty(d.ErrorDescription, d.ErrorDescriptionSnake)
	p.CreatedAt = parseTimestamp(d.CreatedAt)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = parseTimestamp(d.CreatedAtSnake)
	}
	return p, nil
}

func (d paymentDTO) toTransaction() (merchant.Transaction, error) {
	p, err := d.toDomain()
	if err != nil {
		return merchant.Transaction{}, err
	}
	return merchant.Transaction{
		ID:        p.ID,
		OrderID:   p.OrderID,
		Amount:    p.Amount,
		Method:    p.Method,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
	}, nil
}

// timestampLayouts covers RFC 3339 and zone-less ISO local date-times.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// parseTimestamp returns the zero time for anything it cannot read, such as
// array-encoded dates.
func parseTimestamp(raw json.RawMessage) time.Time {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil || s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// paymentList accepts a bare array or an object wrapping it.
type paymentList []paymentDTO

func (l *paymentList) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		return json.Unmarshal(raw, (*[]paymentDTO)(l))
	}
	var wrapped struct {
		Payments []paymentDTO `json:"payments"`
		Data     []paymentDTO `json:"data"`
		Items    []paymentDTO `json:"items"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return err
	}
	switch {
	case wrapped.Payments != nil:
		*l = wrapped.Payments
	case wrapped.Data != nil:
		*l = wrapped.Data
	default:
		*l = wrapped.Items
	}
	return nil
}

type merchantDTO struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	APIKey         string `json:"api_key"`
	APIKeyCamel    string `json:"apiKey"`
	APISecret      string `json:"api_secret"`
	APISecretCamel string `json:"apiSecret"`
}

func (d merchantDTO) toDomain() (*merchant.Credentials, error) {
	c, err := merchant.NewCredentials(d.ID, d.Email,
		firstNonEmpty(d.APIKey, d.APIKeyCamel),
		firstNonEmpty(d.APISecret, d.APISecretCamel),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: merchant: %w", ErrInvalidResponse, err)
	}
	return c, nil
}

type authRequest struct {
	MerchantID string `json:"merchantId"`
	APIKey     string `json:"apiKey"`
}

type authResponse struct {
	Token string `json:"token"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
