package dashboard

import (
	"time"

	"github.com/Zhima-Mochi/paygate-checkout/internal/domain/merchant"
	"github.com/Zhima-Mochi/paygate-checkout/internal/domain/payment"

	"github.com/shopspring/decimal"
)

// CreatedLayout renders timestamps the way en-IN locales print them.
const CreatedLayout = "02/01/2006, 03:04:05 pm"

// EmptyTransactions is shown in place of an empty history.
const EmptyTransactions = "No transactions yet"

// Stats summarises a merchant's payment history.
type Stats struct {
	TotalTransactions int
	// TotalAmount sums successful payments only, in minor units.
	TotalAmount int64
	// SuccessRate is a percentage rounded to two places.
	SuccessRate decimal.Decimal
}

func ComputeStats(txs []merchant.Transaction) Stats {
	s := Stats{TotalTransactions: len(txs), SuccessRate: decimal.Zero}
	if len(txs) == 0 {
		return s
	}

	succeeded := 0
	for _, tx := range txs {
		if tx.Status == payment.StatusSuccess {
			succeeded++
			s.TotalAmount += tx.Amount
		}
	}
	s.SuccessRate = decimal.NewFromInt(int64(succeeded)).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(int64(len(txs))), 2)
	return s
}

// SuccessRatePercent renders the rate with two decimals, e.g. "66.67%".
func (s Stats) SuccessRatePercent() string {
	return s.SuccessRate.StringFixed(2) + "%"
}

// FormatCreated renders t in loc; a nil loc means local time.
func FormatCreated(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(CreatedLayout)
}
