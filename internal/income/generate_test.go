package income

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/pace/internal/model"
)

func closedOn(day time.Time) *time.Time {
	return &day
}

func sequence(t *testing.T, seqs []model.IncomeSequence, key string) map[string]string {
	t.Helper()
	for _, s := range seqs {
		if s.Key == key {
			return s.Values
		}
	}
	return nil
}

func TestGenerate_PendingThenClosed(t *testing.T) {
	txns := []model.Transaction{{
		Commission:  60,
		PendingDate: model.Date(2025, time.April, 21),
		ClosedDate:  closedOn(model.Date(2025, time.May, 30)),
		Status:      model.StatusClosed,
	}}

	seqs, err := Generate(txns, Options{})
	require.NoError(t, err)
	require.Len(t, seqs, 2)
	assert.Equal(t, model.IncomeKeyPending, seqs[0].Key)
	assert.Equal(t, model.IncomeKeyClosed, seqs[1].Key)

	pending := sequence(t, seqs, model.IncomeKeyPending)
	// April 21 through May 29 inclusive.
	assert.Len(t, pending, 39)
	assert.Equal(t, "60", pending["2025-04-21"])
	assert.Equal(t, "60", pending["2025-05-29"])
	assert.NotContains(t, pending, "2025-05-30")
	assert.NotContains(t, pending, "2025-04-20")

	assert.Equal(t, map[string]string{"2025-05-30": "60"}, sequence(t, seqs, model.IncomeKeyClosed))

	withZeros, err := Generate(txns, Options{IncludeZeroValues: true})
	require.NoError(t, err)
	pending = sequence(t, withZeros, model.IncomeKeyPending)
	// April 21 through December 31 inclusive.
	assert.Len(t, pending, 255)
	assert.Equal(t, "0", pending["2025-05-30"])
	assert.Equal(t, "0", pending["2025-12-31"])
	assert.NotContains(t, pending, "2026-01-01")
}

func TestGenerate_SumsOverlappingDeals(t *testing.T) {
	txns := []model.Transaction{
		{Commission: 1000.5, PendingDate: model.Date(2025, time.March, 10), Status: model.StatusPending},
		{
			Commission:  250.25,
			PendingDate: model.Date(2025, time.March, 1),
			ClosedDate:  closedOn(model.Date(2025, time.March, 11)),
			Status:      model.StatusClosed,
		},
		{
			Commission:  100,
			PendingDate: model.Date(2025, time.March, 5),
			ClosedDate:  closedOn(model.Date(2025, time.March, 11)),
			Status:      model.StatusClosed,
		},
	}

	seqs, err := Generate(txns, Options{})
	require.NoError(t, err)

	pending := sequence(t, seqs, model.IncomeKeyPending)
	assert.Equal(t, "250.25", pending["2025-03-01"])
	assert.Equal(t, "350.25", pending["2025-03-05"])
	assert.Equal(t, "1350.75", pending["2025-03-10"])
	assert.Equal(t, "1000.5", pending["2025-03-11"])
	assert.Equal(t, "1000.5", pending["2025-12-31"])
	assert.NotContains(t, pending, "2025-02-28")

	assert.Equal(t, map[string]string{"2025-03-11": "350.25"}, sequence(t, seqs, model.IncomeKeyClosed))
}

func TestGenerate_ClosedNextYearStaysPending(t *testing.T) {
	seqs, err := Generate([]model.Transaction{{
		Commission:  10,
		PendingDate: model.Date(2025, time.December, 30),
		ClosedDate:  closedOn(model.Date(2026, time.January, 5)),
		Status:      model.StatusClosed,
	}}, Options{})
	require.NoError(t, err)

	require.Len(t, seqs, 1, "the closing falls outside the range")
	assert.Equal(t, map[string]string{"2025-12-30": "10", "2025-12-31": "10"}, seqs[0].Values)
}

func TestGenerate_Idempotent(t *testing.T) {
	txns := []model.Transaction{
		{Commission: 60, PendingDate: model.Date(2025, time.April, 21), ClosedDate: closedOn(model.Date(2025, time.May, 30)), Status: model.StatusClosed},
		{Commission: 40, PendingDate: model.Date(2025, time.February, 2), Status: model.StatusPending},
	}

	first, err := Generate(txns, Options{})
	require.NoError(t, err)
	second, err := Generate(txns, Options{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.True(t, txns[0].PendingDate.Equal(model.Date(2025, time.April, 21)), "input order is left alone")
}

func TestGenerate_Empty(t *testing.T) {
	seqs, err := Generate(nil, Options{IncludeZeroValues: true})
	require.NoError(t, err)
	assert.NotNil(t, seqs)
	assert.Empty(t, seqs)

	seqs, err = Generate([]model.Transaction{{Commission: 0, PendingDate: model.Date(2025, 1, 1), Status: model.StatusPending}}, Options{})
	require.NoError(t, err)
	assert.Empty(t, seqs, "all-zero series are omitted")
}

func TestGenerate_Validation(t *testing.T) {
	valid := model.Transaction{Commission: 1, PendingDate: model.Date(2025, 1, 1), Status: model.StatusPending}
	zero := time.Time{}

	tests := []struct {
		name string
		bad  model.Transaction
	}{
		{name: "nan commission", bad: model.Transaction{Commission: math.NaN(), PendingDate: model.Date(2025, 1, 1), Status: model.StatusPending}},
		{name: "infinite commission", bad: model.Transaction{Commission: math.Inf(1), PendingDate: model.Date(2025, 1, 1), Status: model.StatusPending}},
		{name: "missing pending date", bad: model.Transaction{Commission: 1, Status: model.StatusPending}},
		{name: "zero closed date", bad: model.Transaction{Commission: 1, PendingDate: model.Date(2025, 1, 1), ClosedDate: &zero, Status: model.StatusClosed}},
		{name: "unknown status", bad: model.Transaction{Commission: 1, PendingDate: model.Date(2025, 1, 1), Status: "LOST"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate([]model.Transaction{valid, valid, tt.bad, valid}, Options{})
			require.ErrorIs(t, err, ErrInvalidTransaction)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, 2, verr.Index)
			assert.Contains(t, err.Error(), "index 2")
		})
	}
}

func TestGenerate_IgnoresStatus(t *testing.T) {
	seqs, err := Generate([]model.Transaction{{
		Commission:  5,
		PendingDate: model.Date(2025, time.December, 31),
		Status:      model.StatusCancel,
	}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"2025-12-31": "5"}, sequence(t, seqs, model.IncomeKeyPending))
}
