package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus(" closed ")
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, st)

	_, err = ParseStatus("won")
	require.Error(t, err)
	assert.False(t, TransactionStatus("").Valid())
}

func TestTransaction_Lifecycle(t *testing.T) {
	txn := Transaction{Status: StatusPending, Commission: 50, PendingDate: Date(2025, time.April, 21)}

	require.NoError(t, txn.SetCommission(60))
	require.ErrorIs(t, txn.Close(Date(2025, time.April, 20)), ErrInvalidTransition)

	require.NoError(t, txn.Close(time.Date(2025, time.May, 30, 15, 4, 5, 0, time.UTC)))
	assert.Equal(t, StatusClosed, txn.Status)
	require.NotNil(t, txn.ClosedDate)
	assert.Equal(t, Date(2025, time.May, 30), *txn.ClosedDate, "the clock is dropped")

	require.ErrorIs(t, txn.SetCommission(70), ErrInvalidTransition)
	assert.InDelta(t, 60, txn.Commission, 1e-9)
	require.ErrorIs(t, txn.Close(Date(2025, time.June, 1)), ErrInvalidTransition)
	require.ErrorIs(t, txn.Cancel(), ErrInvalidTransition)
}

func TestTransaction_Cancel(t *testing.T) {
	txn := Transaction{Status: StatusPending, PendingDate: Date(2025, time.April, 21)}
	require.NoError(t, txn.Cancel())
	assert.Equal(t, StatusCancel, txn.Status)
	require.NoError(t, txn.SetCommission(1), "cancelled deals are not closed")
	require.ErrorIs(t, txn.Close(Date(2025, time.May, 1)), ErrInvalidTransition)
}
