package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/Zhima-Mochi/paygate-checkout/internal/domain/merchant"
	"github.com/Zhima-Mochi/paygate-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/paygate-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/paygate-checkout/internal/observability"
	"github.com/Zhima-Mochi/paygate-checkout/internal/observability/logctx"
)

var (
	_ order.Lookup               = (*Client)(nil)
	_ payment.Gateway            = (*Client)(nil)
	_ merchant.Directory         = (*Client)(nil)
	_ merchant.TransactionSource = (*Client)(nil)
	_ merchant.Authenticator     = (*Client)(nil)
)

func (c *Client) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	if id == "" {
		return nil, order.ErrInvalidID
	}
	var dto orderDTO
	err := c.do(ctx, call{
		peer:     peerCheckout,
		endpoint: "GET /api/v1/orders/{id}/public",
		method:   http.MethodGet,
		url:      c.checkoutBase + "/api/v1/orders/" + url.PathEscape(id) + "/public",
		out:      &dto,
	})
	if err != nil {
		return nil, err
	}
	return dto.toDomain()
}

func (c *Client) CreatePayment(ctx context.Context, sub payment.Submission) (*payment.Payment, error) {
	var dto paymentDTO
	err := c.do(ctx, call{
		peer:     peerCheckout,
		endpoint: "POST /api/v1/payments/public",
		method:   http.MethodPost,
		url:      c.checkoutBase + "/api/v1/payments/public",
		body:     newCreatePaymentRequest(sub),
		out:      &dto,
	})
	if err != nil {
		return nil, err
	}
	return dto.toDomain()
}

func (c *Client) PaymentStatus(ctx context.Context, id string) (*payment.Payment, error) {
	if id == "" {
		return nil, payment.ErrInvalidID
	}
	var dto paymentDTO
	err := c.do(ctx, call{
		peer:     peerCheckout,
		endpoint: "GET /api/v1/payments/{id}/public",
		method:   http.MethodGet,
		url:      c.checkoutBase + "/api/v1/payments/" + url.PathEscape(id) + "/public",
		out:      &dto,
	})
	if err != nil {
		return nil, err
	}
	p, err := dto.toDomain()
	if err != nil {
		return nil, err
	}
	// Kept verbatim; the poller treats anything unknown as non-terminal.
	if !p.Status.Known() {
		logctx.FromOr(ctx, c.log).Warn("payment_status_unrecognized",
			observability.F("payment_id", p.ID),
			observability.F("status", string(p.Status)),
		)
	}
	return p, nil
}

// Merchant returns the seeded test merchant.
func (c *Client) Merchant(ctx context.Context) (*merchant.Credentials, error) {
	var dto merchantDTO
	err := c.do(ctx, call{
		peer:     peerCheckout,
		endpoint: "GET /api/v1/test/merchant",
		method:   http.MethodGet,
		url:      c.checkoutBase + "/api/v1/test/merchant",
		out:      &dto,
	})
	if err != nil {
		return nil, err
	}
	return dto.toDomain()
}

func (c *Client) Transactions(ctx context.Context, token string) ([]merchant.Transaction, error) {
	var list paymentList
	err := c.do(ctx, call{
		peer:     peerCheckout,
		endpoint: "GET /api/v1/payments",
		method:   http.MethodGet,
		url:      c.checkoutBase + "/api/v1/payments",
		token:    token,
		out:      &list,
	})
	if err != nil {
		return nil, err
	}

	txs := make([]merchant.Transaction, 0, len(list))
	for _, dto := range list {
		tx, err := dto.toTransaction()
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// Authenticate returns "" with a nil error when the server answered 2xx
// without a usable token.
func (c *Client) Authenticate(ctx context.Context, merchantID, apiKey string) (string, error) {
	var resp authResponse
	err := c.do(ctx, call{
		peer:     peerDashboard,
		endpoint: "POST /merchants/auth",
		method:   http.MethodPost,
		url:      c.dashboardBase + "/merchants/auth",
		body:     authRequest{MerchantID: merchantID, APIKey: apiKey},
		out:      &resp,
	})
	if errors.Is(err, ErrInvalidResponse) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}
