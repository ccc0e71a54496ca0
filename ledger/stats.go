/*
stats.go - Period aggregation for charts

PURPOSE:
  Buckets an owner's transactions into fixed period slots and sums
  income/expense per slot:

    weekly  - the last 7 calendar days, one bucket per day
    monthly - the last 12 calendar months, one bucket per month
    yearly  - every year from the owner's first transaction through the
              current year (collapsing to the current year alone when
              there are no transactions)

  A transaction lands in the bucket whose key matches its date truncated
  to the bucket granularity. Transactions outside every precomputed slot
  are silently dropped from the chart but still appear in the returned
  flat list, which feeds the detail view under the chart.

SEE ALSO:
  - engine.go: Query plumbing and the shared arithmetic rules
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PERIODS AND BUCKETS
// =============================================================================

// Period selects a statistics window.
type Period string

const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// ParsePeriod validates a period string from the API layer.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodWeekly, PeriodMonthly, PeriodYearly:
		return Period(s), nil
	}
	return "", fmt.Errorf("%w: unknown period %q", ErrInvalidTransaction, s)
}

// StatBucket is one chart slot with summed income and expense.
type StatBucket struct {
	Label   string          `json:"label"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`

	key string
}

// Stats carries the chart buckets plus the flat transaction list.
type Stats struct {
	Period       Period        `json:"period"`
	Buckets      []StatBucket  `json:"buckets"`
	Transactions []Transaction `json:"transactions"`
}

// =============================================================================
// AGGREGATION
// =============================================================================

// Stats fetches the owner's transactions for the period and buckets them.
func (e *Engine) Stats(ctx context.Context, owner UserID, period Period) (Stats, error) {
	now := e.now()

	query := TransactionQuery{Owner: owner}
	switch period {
	case PeriodWeekly:
		query.From = now.AddDate(0, 0, -7)
		query.To = now
	case PeriodMonthly:
		query.From = now.AddDate(0, -12, 0)
		query.To = now
	case PeriodYearly:
		// Full history: the year range depends on the earliest transaction.
	default:
		return Stats{}, fmt.Errorf("%w: unknown period %q", ErrInvalidTransaction, period)
	}

	txs, err := e.store.QueryTransactions(ctx, query)
	if err != nil {
		return Stats{}, fmt.Errorf("query stats transactions: %w", err)
	}

	var buckets []StatBucket
	switch period {
	case PeriodWeekly:
		buckets = weeklyBuckets(now)
	case PeriodMonthly:
		buckets = monthlyBuckets(now)
	case PeriodYearly:
		buckets = yearlyBuckets(txs, now)
	}

	index := make(map[string]int, len(buckets))
	for i, b := range buckets {
		index[b.key] = i
	}

	for _, tx := range txs {
		i, ok := index[bucketKey(period, tx.Date)]
		if !ok {
			continue // outside the chart window, still in the flat list
		}
		switch tx.Type.Bucket() {
		case BucketIncome:
			buckets[i].Income = buckets[i].Income.Add(tx.Amount)
		case BucketExpense:
			buckets[i].Expense = buckets[i].Expense.Add(tx.Amount)
		}
	}

	return Stats{Period: period, Buckets: buckets, Transactions: txs}, nil
}

// bucketKey truncates a date to the period's granularity.
func bucketKey(period Period, date time.Time) string {
	switch period {
	case PeriodWeekly:
		return date.Format("2006-01-02")
	case PeriodMonthly:
		return date.Format("2006-01")
	default:
		return date.Format("2006")
	}
}

// weeklyBuckets builds the last 7 calendar days, oldest first, with zero
// sums so untouched days still chart as zero.
func weeklyBuckets(now time.Time) []StatBucket {
	buckets := make([]StatBucket, 0, 7)
	for i := 6; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		buckets = append(buckets, StatBucket{
			Label:   day.Format("Mon"),
			Income:  decimal.Zero,
			Expense: decimal.Zero,
			key:     day.Format("2006-01-02"),
		})
	}
	return buckets
}

// monthlyBuckets builds the last 12 calendar months, oldest first.
func monthlyBuckets(now time.Time) []StatBucket {
	buckets := make([]StatBucket, 0, 12)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	for i := 11; i >= 0; i-- {
		month := first.AddDate(0, -i, 0)
		buckets = append(buckets, StatBucket{
			Label:   month.Format("Jan 06"),
			Income:  decimal.Zero,
			Expense: decimal.Zero,
			key:     month.Format("2006-01"),
		})
	}
	return buckets
}

// yearlyBuckets spans the earliest transaction's year through the
// current year inclusive. With no transactions the range collapses to
// the current year only.
func yearlyBuckets(txs []Transaction, now time.Time) []StatBucket {
	firstYear := now.Year()
	for _, tx := range txs {
		if y := tx.Date.Year(); y < firstYear {
			firstYear = y
		}
	}

	var buckets []StatBucket
	for year := firstYear; year <= now.Year(); year++ {
		label := fmt.Sprintf("%d", year)
		buckets = append(buckets, StatBucket{
			Label:   label,
			Income:  decimal.Zero,
			Expense: decimal.Zero,
			key:     label,
		})
	}
	return buckets
}
