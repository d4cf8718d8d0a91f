// AngelaMos | 2026
// payment.go

package billing

import (
	"fmt"
	"sort"
	"time"

	"github.com/ccdexplorer/ccdexplorer-api/internal/core"
)

// Payment is one settlement-token transfer into a user's deposit alias.
// Only ManualOverride is ever edited by hand; the other fields are
// recomputed from the ledger on every scan.
type Payment struct {
	TxHash         string  `json:"tx_hash"            validate:"required"`
	TxDate         string  `json:"tx_date"            validate:"required"`
	Amount         float64 `json:"amount_euroe"`
	PaidDays       float64 `json:"paid_days_for_plan"`
	ManualOverride *int    `json:"manual_override,omitempty"`
}

// Days is the number of subscription days this payment buys. An operator
// override wins over the computed value, including zero and negatives.
func (p Payment) Days() float64 {
	if p.ManualOverride != nil {
		return float64(*p.ManualOverride)
	}
	return p.PaidDays
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// parseTimestamp reads the date formats the indexer writes. Values without
// a zone are UTC.
func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func (p Payment) Date() (time.Time, error) {
	if t, ok := parseTimestamp(p.TxDate); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf(
		"payment %s: tx_date %q: %w", p.TxHash, p.TxDate, core.ErrInvalidDocument,
	)
}

// Sorted returns the payments ordered by tx_date, then tx_hash.
func Sorted(payments map[string]Payment) []Payment {
	out := make([]Payment, 0, len(payments))
	for _, p := range payments {
		out = append(out, p)
	}
	sortPayments(out)
	return out
}

// sortPayments orders by the instant of tx_date regardless of layout or
// offset. Unparseable dates sort last by their raw text.
func sortPayments(ps []Payment) {
	type keyed struct {
		p  Payment
		at time.Time
		ok bool
	}
	items := make([]keyed, len(ps))
	for i, p := range ps {
		at, ok := parseTimestamp(p.TxDate)
		items[i] = keyed{p: p, at: at, ok: ok}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch {
		case a.ok && b.ok && !a.at.Equal(b.at):
			return a.at.Before(b.at)
		case a.ok != b.ok:
			return a.ok
		case !a.ok && a.p.TxDate != b.p.TxDate:
			return a.p.TxDate < b.p.TxDate
		}
		return a.p.TxHash < b.p.TxHash
	})

	for i, it := range items {
		ps[i] = it.p
	}
}

type Subscription struct {
	Plan    string    `json:"plan"`
	EndDate time.Time `json:"end_date"`
	Active  bool      `json:"active"`
}

func NewSubscription(plan string, end, now time.Time) Subscription {
	return Subscription{
		Plan:    plan,
		EndDate: end.UTC(),
		Active:  end.After(now),
	}
}
