package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Zhima-Mochi/paygate-checkout/internal/application"
	"github.com/Zhima-Mochi/paygate-checkout/internal/domain/merchant"
	"github.com/Zhima-Mochi/paygate-checkout/internal/domain/session"
	"github.com/Zhima-Mochi/paygate-checkout/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	dashboardService    = "dashboard"
	useCaseLogin        = "dashboard.login"
	useCaseOverview     = "dashboard.overview"
	useCaseTransactions = "dashboard.transactions"
)

// Login messages shown to the merchant.
const (
	MsgMerchantIDRequired = "Merchant ID is required"
	MsgAPIKeyRequired     = "API Key is required"
	MsgAuthNoToken        = "Authentication failed. Please try again."
	MsgLoginFailed        = "Login failed. Please check your credentials."
)

var (
	ErrUnauthenticated = session.ErrUnauthenticated
	ErrInvalidInput    = errors.New("dashboard: invalid input")
	ErrLoginFailed     = errors.New("dashboard: login failed")
)

// LoginError carries the single message shown on the login form.
type LoginError struct {
	Message string
	Err     error
}

func (e *LoginError) Error() string { return e.Message }
func (e *LoginError) Unwrap() error { return e.Err }

// serverMessager is implemented by gateway errors that carry a top-level
// "message" from the response body.
type serverMessager interface {
	ServerMessage() string
}

// Overview is the dashboard landing view.
type Overview struct {
	Credentials *merchant.Credentials
	Stats       Stats
}

type Service struct {
	auth      merchant.Authenticator
	directory merchant.Directory
	txs       merchant.TransactionSource
	in        application.Instruments
}

func NewService(auth merchant.Authenticator, directory merchant.Directory, txs merchant.TransactionSource, tel observability.Observability) *Service {
	return &Service{
		auth:      auth,
		directory: directory,
		txs:       txs,
		in:        application.NewInstruments(tel, dashboardService),
	}
}

// Login checks both fields before any network call and returns the session
// holding the issued token.
func (s *Service) Login(ctx context.Context, current session.Session, merchantID, apiKey string) (_ session.Session, err error) {
	ctx, run := s.in.Begin(ctx, useCaseLogin, "Login",
		attribute.String("merchant.id", strings.TrimSpace(merchantID)),
	)
	defer func() { run.Done(err) }()

	if strings.TrimSpace(merchantID) == "" {
		run.Fail("MERCHANT_ID_REQUIRED")
		return current, &LoginError{Message: MsgMerchantIDRequired, Err: ErrInvalidInput}
	}
	if strings.TrimSpace(apiKey) == "" {
		run.Fail("API_KEY_REQUIRED")
		return current, &LoginError{Message: MsgAPIKeyRequired, Err: ErrInvalidInput}
	}

	token, aerr := s.auth.Authenticate(ctx, merchantID, apiKey)
	if aerr != nil {
		run.Fail("AUTH_REQUEST_FAILED")
		msg := MsgLoginFailed
		var m serverMessager
		if errors.As(aerr, &m) && m.ServerMessage() != "" {
			msg = m.ServerMessage()
		}
		return current, &LoginError{Message: msg, Err: fmt.Errorf("%w: %w", ErrLoginFailed, aerr)}
	}
	if token == "" {
		run.Fail("AUTH_NO_TOKEN")
		return current, &LoginError{Message: MsgAuthNoToken, Err: ErrLoginFailed}
	}

	return current.Login(token), nil
}

// Logout is local only; the server is not told.
func (s *Service) Logout(current session.Session) session.Session {
	return current.Logout()
}

// Overview loads the credentials and the payment history concurrently and
// summarises the history.
func (s *Service) Overview(ctx context.Context, sess session.Session) (_ *Overview, err error) {
	ctx, run := s.in.Begin(ctx, useCaseOverview, "Overview")
	defer func() { run.Done(err) }()

	if !sess.Authenticated() {
		run.Fail("UNAUTHENTICATED")
		return nil, ErrUnauthenticated
	}

	var (
		creds *merchant.Credentials
		txs   []merchant.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.directory.Merchant(gctx)
		if err != nil {
			return fmt.Errorf("dashboard: merchant: %w", err)
		}
		creds = c
		return nil
	})
	g.Go(func() error {
		list, err := s.txs.Transactions(gctx, sess.Token)
		if err != nil {
			return fmt.Errorf("dashboard: transactions: %w", err)
		}
		txs = list
		return nil
	})
	if err := g.Wait(); err != nil {
		run.Fail("FETCH_FAILED")
		return nil, err
	}

	stats := ComputeStats(txs)
	run.With(
		observability.F("transactions", stats.TotalTransactions),
		observability.F("success_rate", stats.SuccessRate.String()),
	)
	return &Overview{Credentials: creds, Stats: stats}, nil
}

func (s *Service) Transactions(ctx context.Context, sess session.Session) (_ []merchant.Transaction, err error) {
	ctx, run := s.in.Begin(ctx, useCaseTransactions, "Transactions")
	defer func() { run.Done(err) }()

	if !sess.Authenticated() {
		run.Fail("UNAUTHENTICATED")
		return nil, ErrUnauthenticated
	}
	txs, err := s.txs.Transactions(ctx, sess.Token)
	if err != nil {
		run.Fail("FETCH_FAILED")
		return nil, fmt.Errorf("dashboard: transactions: %w", err)
	}
	run.With(observability.F("transactions", len(txs)))
	return txs, nil
}
