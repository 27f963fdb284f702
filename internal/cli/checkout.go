package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	appcheckout "github.com/Zhima-Mochi/paygate-checkout/internal/application/checkout"
	domcheckout "github.com/Zhima-Mochi/paygate-checkout/internal/domain/checkout"
	"github.com/Zhima-Mochi/paygate-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/paygate-checkout/internal/infrastructure/id"
	"github.com/Zhima-Mochi/paygate-checkout/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/paygate-checkout/internal/observability"
	httppresentation "github.com/Zhima-Mochi/paygate-checkout/internal/presentation/http"

	"github.com/spf13/cobra"
)

func newCheckoutCmd() *cobra.Command {
	checkoutCmd := &cobra.Command{
		Use:   "checkout",
		Short: "Pay for an order or host checkouts over HTTP",
	}

	payCmd := &cobra.Command{
		Use:   "pay",
		Short: "Pay for one order and wait for the outcome",
		Example: `  paygate checkout pay --order order_123 --method upi --vpa payer@bank
  paygate checkout pay --order order_123 --method card --card-number 4111111111111111 \
    --expiry 12/27 --cvv 123 --holder-name "A Payer"`,
		RunE: runCheckoutPay,
	}
	f := payCmd.Flags()
	f.String("order", "", "order id to pay for")
	f.String("method", string(payment.MethodUPI), "payment method (upi or card)")
	f.String("vpa", "", "UPI virtual payment address")
	f.String("card-number", "", "card number")
	f.String("expiry", "", "card expiry as MM/YY")
	f.String("cvv", "", "card CVV")
	f.String("holder-name", "", "cardholder name")

	serveCmd := &cobra.Command{
		Use:         "serve",
		Short:       "Serve checkout sessions to a browser front end",
		RunE:        runCheckoutServe,
		Annotations: map[string]string{annotationStdoutLogs: "true"},
	}
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")

	checkoutCmd.AddCommand(payCmd)
	checkoutCmd.AddCommand(serveCmd)
	return checkoutCmd
}

func runCheckoutPay(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	orderID, _ := f.GetString("order")
	method, _ := f.GetString("method")
	form := domcheckout.Form{Method: payment.Method(strings.ToLower(method))}
	form.VPA, _ = f.GetString("vpa")
	form.CardNumber, _ = f.GetString("card-number")
	form.Expiry, _ = f.GetString("expiry")
	form.CVV, _ = f.GetString("cvv")
	form.HolderName, _ = f.GetString("holder-name")

	out := cmd.OutOrStdout()
	printer := newTransitionPrinter(out)
	printer.Subscribe(app.bus)

	uc := appcheckout.NewPayUseCase(app.checkoutDeps(), id.NewUUIDGenerator())
	snap, err := uc.Execute(cmd.Context(), appcheckout.PayInput{OrderID: orderID, Form: form})

	// Every transition line is printed before the summary.
	app.drain(cmd.Context())

	renderSummary(out, snap)
	if err != nil && snap.State != domcheckout.StateError {
		return err
	}
	if snap.State != domcheckout.StateSuccess {
		return errPaymentIncomplete
	}
	return nil
}

var errPaymentIncomplete = errors.New("payment was not completed")

func runCheckoutServe(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = app.cfg.Server.Addr
	}

	svc := appcheckout.NewService(app.checkoutDeps(), id.NewUUIDGenerator(), memory.NewCheckoutRegistry())
	defer svc.Shutdown()

	handler := httppresentation.NewHandler(svc, app.tel)
	mux := http.NewServeMux()
	mux.Handle("/metrics", app.metricsHandler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.log.Info("http_server_start", observability.F("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			app.log.Error("http_server_error", observability.F("error", err.Error()))
			return err
		}
		return nil
	case <-cmd.Context().Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		app.log.Error("http_server_shutdown_error", observability.F("error", err.Error()))
		return fmt.Errorf("shutdown: %w", err)
	}
	app.log.Info("http_server_stopped")
	return nil
}
