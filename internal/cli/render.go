package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"

	appcheckout "github.com/Zhima-Mochi/paygate-checkout/internal/application/checkout"
	"github.com/Zhima-Mochi/paygate-checkout/internal/application/dashboard"
	domcheckout "github.com/Zhima-Mochi/paygate-checkout/internal/domain/checkout"
	"github.com/Zhima-Mochi/paygate-checkout/internal/domain/merchant"
	domoutbox "github.com/Zhima-Mochi/paygate-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/paygate-checkout/internal/pkg/money"
)

// transitionPrinter renders checkout view changes as they are published.
type transitionPrinter struct {
	mu sync.Mutex
	w  io.Writer
}

func newTransitionPrinter(w io.Writer) *transitionPrinter {
	return &transitionPrinter{w: w}
}

func (p *transitionPrinter) Subscribe(sub domoutbox.Subscriber) {
	sub.Subscribe(domcheckout.StateChangedEvent{}.EventName(), p.handle)
}

func (p *transitionPrinter) handle(_ context.Context, e domoutbox.Event) error {
	sc, ok := e.(domcheckout.StateChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T", e)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch sc.To {
	case domcheckout.StateForm:
		if sc.From == domcheckout.StateError {
			fmt.Fprintln(p.w, "Ready to try again")
			return nil
		}
		fmt.Fprintf(p.w, "Order %s loaded\n", sc.OrderID)
	case domcheckout.StateProcessing:
		fmt.Fprintln(p.w, "Processing payment...")
	case domcheckout.StateSuccess:
		fmt.Fprintln(p.w, "Payment Successful!")
	case domcheckout.StateError:
		if sc.From == domcheckout.StateLoading {
			fmt.Fprintln(p.w, sc.Message)
			return nil
		}
		fmt.Fprintln(p.w, "Payment Failed")
	}
	return nil
}

func renderSummary(w io.Writer, s appcheckout.Snapshot) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	if s.OrderID != "" {
		fmt.Fprintf(tw, "Order ID:\t%s\n", s.OrderID)
	}
	if s.PaymentID != "" {
		fmt.Fprintf(tw, "Payment ID:\t%s\n", s.PaymentID)
	}
	if s.OrderID != "" {
		fmt.Fprintf(tw, "Amount:\t%s\n", s.AmountDisplay)
	}
	switch s.State {
	case domcheckout.StateSuccess:
		fmt.Fprintln(tw, "Your payment has been processed successfully")
	case domcheckout.StateError:
		fmt.Fprintf(tw, "Error Details:\t%s\n", s.Message)
	default:
		fmt.Fprintf(tw, "Status:\t%s\n", s.State)
	}
}

func renderOverview(w io.Writer, o *dashboard.Overview) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	if c := o.Credentials; c != nil {
		fmt.Fprintln(tw, "API Credentials")
		fmt.Fprintf(tw, "  Merchant ID:\t%s\n", c.ID)
		if c.Email != "" {
			fmt.Fprintf(tw, "  Email:\t%s\n", c.Email)
		}
		fmt.Fprintf(tw, "  API Key:\t%s\n", c.APIKey)
		if c.APISecret != "" {
			fmt.Fprintf(tw, "  API Secret:\t%s\n", c.APISecret)
		}
		fmt.Fprintln(tw)
	}
	fmt.Fprintf(tw, "Total Transactions:\t%d\n", o.Stats.TotalTransactions)
	fmt.Fprintf(tw, "Total Amount:\t%s\n", money.FormatGrouped(o.Stats.TotalAmount))
	fmt.Fprintf(tw, "Success Rate:\t%s\n", o.Stats.SuccessRatePercent())
}

func renderTransactions(w io.Writer, txs []merchant.Transaction, loc *time.Location) {
	if len(txs) == 0 {
		fmt.Fprintln(w, dashboard.EmptyTransactions)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "Payment ID\tOrder ID\tAmount\tMethod\tStatus\tCreated")
	for _, t := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID,
			t.OrderID,
			money.FormatGrouped(t.Amount),
			t.Method,
			t.Status,
			dashboard.FormatCreated(t.CreatedAt, loc),
		)
	}
}
