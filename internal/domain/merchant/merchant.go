package merchant

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Zhima-Mochi/paygate-checkout/internal/domain/payment"
)

var ErrInvalidID = errors.New("merchant: id is required")

// Credentials are the API key pair shown on the dashboard.
type Credentials struct {
	ID        string
	Email     string
	APIKey    string
	APISecret string
}

func NewCredentials(id, email, apiKey, apiSecret string) (*Credentials, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidID
	}
	return &Credentials{
		ID:        id,
		Email:     strings.TrimSpace(email),
		APIKey:    apiKey,
		APISecret: apiSecret,
	}, nil
}

// Transaction is one row of the merchant's payment history.
type Transaction struct {
	ID        string
	OrderID   string
	Amount    int64 // minor units
	Method    payment.Method
	Status    payment.Status
	CreatedAt time.Time
}

// Directory resolves the merchant behind the dashboard.
type Directory interface {
	Merchant(ctx context.Context) (*Credentials, error)
}

// TransactionSource lists a merchant's payments for a session token.
type TransactionSource interface {
	Transactions(ctx context.Context, token string) ([]Transaction, error)
}

// Authenticator exchanges a merchant id and API key for a session token.
// An empty token with a nil error means the server accepted the request but
// issued nothing.
type Authenticator interface {
	Authenticate(ctx context.Context, merchantID, apiKey string) (token string, err error)
}
