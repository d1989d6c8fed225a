// Package report aggregates a ledger into spending totals.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/Yuan922/MoneyMemoAI/internal/domain"
	"github.com/Yuan922/MoneyMemoAI/internal/ledger"
)

// DefaultCurrency is the currency ledger amounts are recorded in.
const DefaultCurrency = money.JPY

// Options selects which records a summary covers.
type Options struct {
	// IncludeDeposit counts top-ups of stored-value cards as spending.
	IncludeDeposit bool
	// Currency is an ISO 4217 code; empty means DefaultCurrency.
	Currency string
	// Month restricts the summary to dates with this YYYY-MM prefix.
	Month string
}

// Bucket is the total for one group of records.
type Bucket struct {
	Key     string `json:"key"`
	Count   int    `json:"count"`
	Amount  int64  `json:"amount"`
	Display string `json:"display"`
}

// Summary totals a ledger overall, by category and by payment method.
// Buckets are sorted by amount, largest first.
type Summary struct {
	UserID          string   `json:"user_id"`
	Currency        string   `json:"currency"`
	IncludeDeposit  bool     `json:"include_deposit"`
	Month           string   `json:"month,omitempty"`
	Count           int      `json:"count"`
	Total           int64    `json:"total"`
	TotalDisplay    string   `json:"total_display"`
	ByCategory      []Bucket `json:"by_category"`
	ByPaymentMethod []Bucket `json:"by_payment_method"`
}

type accumulator struct {
	count int
	sum   *money.Money
}

// Summarize totals the records of l selected by opts.
func Summarize(l ledger.Ledger, opts Options) (Summary, error) {
	code := strings.ToUpper(strings.TrimSpace(opts.Currency))
	if code == "" {
		code = DefaultCurrency
	}
	cur := money.GetCurrency(code)
	if cur == nil {
		return Summary{}, fmt.Errorf("unknown currency %q", opts.Currency)
	}
	factor, _ := decimal.NewFromInt(10).PowInt32(int32(cur.Fraction))

	total := money.New(0, code)
	byCategory := make(map[string]*accumulator)
	byPayment := make(map[string]*accumulator)
	count := 0

	for _, r := range l.Records {
		if !opts.IncludeDeposit && r.Category == domain.CategoryDeposit {
			continue
		}
		if opts.Month != "" && !strings.HasPrefix(r.Date, opts.Month) {
			continue
		}
		m := money.New(decimal.NewFromInt(r.Amount).Mul(factor).IntPart(), code)

		var err error
		if total, err = total.Add(m); err != nil {
			return Summary{}, fmt.Errorf("add %s: %w", r, err)
		}
		if err := accumulate(byCategory, string(r.Category), m, code); err != nil {
			return Summary{}, err
		}
		if err := accumulate(byPayment, string(r.PaymentMethod), m, code); err != nil {
			return Summary{}, err
		}
		count++
	}

	return Summary{
		UserID:          l.UserID,
		Currency:        code,
		IncludeDeposit:  opts.IncludeDeposit,
		Month:           opts.Month,
		Count:           count,
		Total:           majorUnits(total, factor),
		TotalDisplay:    total.Display(),
		ByCategory:      buckets(byCategory, factor),
		ByPaymentMethod: buckets(byPayment, factor),
	}, nil
}

func accumulate(groups map[string]*accumulator, key string, m *money.Money, code string) error {
	acc, ok := groups[key]
	if !ok {
		acc = &accumulator{sum: money.New(0, code)}
		groups[key] = acc
	}
	sum, err := acc.sum.Add(m)
	if err != nil {
		return fmt.Errorf("add to %s: %w", key, err)
	}
	acc.sum = sum
	acc.count++
	return nil
}

func buckets(groups map[string]*accumulator, factor decimal.Decimal) []Bucket {
	out := make([]Bucket, 0, len(groups))
	for key, acc := range groups {
		out = append(out, Bucket{
			Key:     key,
			Count:   acc.count,
			Amount:  majorUnits(acc.sum, factor),
			Display: acc.sum.Display(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func majorUnits(m *money.Money, factor decimal.Decimal) int64 {
	return decimal.NewFromInt(m.Amount()).Div(factor).IntPart()
}
