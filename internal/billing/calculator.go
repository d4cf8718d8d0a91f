// AngelaMos | 2026
// calculator.go

package billing

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ccdexplorer/ccdexplorer-api/internal/plan"
)

const day = 24 * time.Hour

// SlotTimeSource resolves the block slot time of a transaction.
type SlotTimeSource interface {
	SlotTime(ctx context.Context, txHash string) (time.Time, error)
}

type Calculator struct {
	slots SlotTimeSource
	now   func() time.Time
}

type CalculatorOption func(*Calculator)

func WithNow(now func() time.Time) CalculatorOption {
	return func(c *Calculator) { c.now = now }
}

func NewCalculator(slots SlotTimeSource, opts ...CalculatorOption) *Calculator {
	c := &Calculator{
		slots: slots,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EndDate folds payments into the date a subscription runs out.
//
// Without payments a free plan gets a year from now and everything else is
// already expired. With payments, each one extends the subscription from its
// block's slot time; when a payment lands before the running end date, the
// whole days still left are carried over on top of the new days.
//
// If any slot time cannot be resolved no date is returned at all.
func (c *Calculator) EndDate(
	ctx context.Context,
	planName string,
	payments []Payment,
) (time.Time, error) {
	now := c.now().UTC()

	if len(payments) == 0 {
		if plan.IsFree(planName) {
			return now.Add(365 * day), nil
		}
		return now.Add(-day), nil
	}

	ordered := make([]Payment, len(payments))
	copy(ordered, payments)
	sortPayments(ordered)

	end, err := ordered[0].Date()
	if err != nil {
		return time.Time{}, err
	}

	for _, p := range ordered {
		start, err := c.slots.SlotTime(ctx, p.TxHash)
		if err != nil {
			return time.Time{}, fmt.Errorf("slot time for %s: %w", p.TxHash, err)
		}
		start = start.UTC()

		days := p.Days()
		if start.Before(end) {
			days += float64(wholeDaysBetween(start, end))
		}
		end = addDays(start, days)
	}

	return end, nil
}

// wholeDaysBetween truncates. It works on seconds so spans longer than a
// time.Duration can hold are still exact.
func wholeDaysBetween(from, to time.Time) int64 {
	secs := to.Unix() - from.Unix()
	if to.Nanosecond() < from.Nanosecond() {
		secs--
	}
	return secs / int64(day/time.Second)
}

// Bounds of a date the document store can encode. JSON timestamps stop at
// year 9999.
var (
	minEndDate = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	maxEndDate = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
)

// addDays adds a possibly fractional, possibly huge number of days. Cheap
// plans buy millions of days per token, so the result is clamped to
// [minEndDate, maxEndDate].
func addDays(t time.Time, days float64) time.Time {
	if days >= float64(wholeDaysBetween(t, maxEndDate)) {
		return maxEndDate
	}
	if days <= -float64(wholeDaysBetween(minEndDate, t)) {
		return minEndDate
	}

	whole := math.Floor(days)
	frac := days - whole
	end := t.AddDate(0, 0, int(whole)).Add(time.Duration(frac * float64(day)))

	switch {
	case end.After(maxEndDate):
		return maxEndDate
	case end.Before(minEndDate):
		return minEndDate
	}
	return end
}
