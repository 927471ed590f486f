package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, Date(2024, time.February, 29), d)
	assert.Equal(t, "2024-02-29", FormatDate(d))

	for _, bad := range []string{"", "2025-02-29", "03/04/2025", "2025-1-1"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	late := time.Date(2025, time.March, 3, 23, 30, 0, 0, loc)
	assert.Equal(t, Date(2025, time.March, 3), Day(late), "the calendar day is taken in t's location")
}

func TestDateArithmetic(t *testing.T) {
	assert.Equal(t, Date(2025, time.January, 1), YearStart(2025))
	assert.Equal(t, Date(2025, time.December, 31), YearEnd(2025))
	assert.Equal(t, Date(2025, time.March, 1), NextDay(Date(2025, time.February, 28)))
	assert.Equal(t, Date(2024, time.February, 29), PrevDay(Date(2024, time.March, 1)))

	assert.Equal(t, 366, DaysInclusive(YearStart(2024), YearEnd(2024)))
	assert.Equal(t, 1, DaysInclusive(YearStart(2024), YearStart(2024)))
	assert.Zero(t, DaysInclusive(YearEnd(2024), YearStart(2024)))

	a, b := Date(2025, 1, 1), Date(2025, 1, 2)
	assert.Equal(t, a, MinDate(a, b))
	assert.Equal(t, a, MinDate(b, a))
	assert.Equal(t, b, MaxDate(a, b))
	assert.Equal(t, b, MaxDate(b, a))
}
