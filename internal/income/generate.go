// Package income turns commission transactions into day-by-day pending and
// closed income series.
package income

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/pace/internal/model"
)

// ErrInvalidTransaction is wrapped by every ValidationError.
var ErrInvalidTransaction = errors.New("invalid transaction")

// ValidationError identifies the first malformed transaction in the input.
type ValidationError struct {
	Reason string
	Index  int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid transaction at index %d: %s", e.Index, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidTransaction
}

// Options tunes Generate.
type Options struct {
	// IncludeZeroValues keeps days with nothing pending in the pending series.
	IncludeZeroValues bool
}

// Generate builds the current_pending_income and closed_income series.
//
// The range runs from the earliest pending date through December 31 of that
// date's year; later closings are not followed into the next year. A day's
// pending value is the commission of every transaction pending on or before it
// and not closed by it. A day's closed value is the commission closed on
// exactly that day. Series with no entries are left out.
func Generate(transactions []model.Transaction, opts Options) ([]model.IncomeSequence, error) {
	for i, txn := range transactions {
		if reason := validate(txn); reason != "" {
			return nil, &ValidationError{Index: i, Reason: reason}
		}
	}

	result := []model.IncomeSequence{}
	if len(transactions) == 0 {
		return result, nil
	}

	deals := make([]deal, len(transactions))
	for i, txn := range transactions {
		deals[i] = newDeal(txn)
	}
	sort.SliceStable(deals, func(i, j int) bool {
		return deals[i].pending.Before(deals[j].pending)
	})

	start := deals[0].pending
	end := model.YearEnd(start.Year())

	pending := make(map[string]string)
	closed := make(map[string]string)

	for day := start; !day.After(end); day = model.NextDay(day) {
		key := model.FormatDate(day)

		pendingSum, closedSum := decimal.Zero, decimal.Zero
		for _, d := range deals {
			if d.pendingOn(day) {
				pendingSum = pendingSum.Add(d.commission)
			}
			if d.closedOn(day) {
				closedSum = closedSum.Add(d.commission)
			}
		}

		if !pendingSum.IsZero() || opts.IncludeZeroValues {
			pending[key] = pendingSum.String()
		}
		if !closedSum.IsZero() {
			closed[key] = closedSum.String()
		}
	}

	if len(pending) > 0 {
		result = append(result, model.IncomeSequence{Key: model.IncomeKeyPending, Values: pending})
	}
	if len(closed) > 0 {
		result = append(result, model.IncomeSequence{Key: model.IncomeKeyClosed, Values: closed})
	}
	return result, nil
}

func validate(txn model.Transaction) string {
	switch {
	case math.IsNaN(txn.Commission) || math.IsInf(txn.Commission, 0):
		return "commission must be a finite number"
	case txn.PendingDate.IsZero():
		return "pending date is required"
	case txn.ClosedDate != nil && txn.ClosedDate.IsZero():
		return "closed date must be empty or a valid date"
	case !txn.Status.Valid():
		return fmt.Sprintf("unknown status %q", txn.Status)
	}
	return ""
}

// deal is a transaction normalised to calendar days and decimal money.
type deal struct {
	pending    time.Time
	closed     *time.Time
	commission decimal.Decimal
}

func newDeal(txn model.Transaction) deal {
	d := deal{
		pending:    model.Day(txn.PendingDate),
		commission: decimal.NewFromFloat(txn.Commission),
	}
	if txn.ClosedDate != nil {
		c := model.Day(*txn.ClosedDate)
		d.closed = &c
	}
	return d
}

func (d deal) pendingOn(day time.Time) bool {
	if d.pending.After(day) {
		return false
	}
	return d.closed == nil || d.closed.After(day)
}

func (d deal) closedOn(day time.Time) bool {
	return d.closed != nil && d.closed.Equal(day)
}
