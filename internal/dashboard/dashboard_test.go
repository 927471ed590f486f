package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/pace/internal/model"
)

func listingsInput(cutoff time.Time) Input {
	return Input{
		Cutoff: cutoff,
		Year:   2025,
		Goals: []model.Field{
			{FieldName: "income_goal", Label: "Income goal", Value: 126000},
			{FieldName: "listings_closed", Label: "Listings closed", Value: 10},
		},
		Tracker: []model.TrackerRow{
			{FieldName: "calls", Values: map[string]float64{"2025-03-03": 40}},
			{FieldName: "listings_closed", Values: map[string]float64{
				"2024-12-31": 50,
				"2025-03-03": 4,
				"2025-12-29": 2,
				"2025-12-30": 100,
			}},
		},
		Weekdays: model.MondayToFriday,
	}
}

func TestBuild(t *testing.T) {
	// 2025-12-29 is a Monday: Tuesday and Wednesday remain.
	summary := Build(listingsInput(model.Date(2025, time.December, 29)))

	assert.Equal(t, 2, summary.RemainingWorkingDays)
	assert.InDelta(t, 0.4, summary.RemainingWorkWeeks, 1e-9)
	require.Len(t, summary.Metrics, 1, "only tracked metrics with a goal are reported")

	m := summary.Metrics[0]
	assert.Equal(t, "listings_closed", m.FieldName)
	assert.Equal(t, "Listings closed", m.Label)
	assert.InDelta(t, 6, m.Actual, 1e-9)
	assert.InDelta(t, 10, m.Goal, 1e-9)
	assert.InDelta(t, 4, m.Remaining, 1e-9)
	assert.InDelta(t, 60, m.Percent, 1e-9)
	assert.InDelta(t, 2, m.PerDay, 1e-9)
	assert.InDelta(t, 10, m.PerWeek, 1e-9)
}

func TestBuild_Cutoffs(t *testing.T) {
	tests := []struct {
		cutoff      time.Time
		name        string
		days        int
		actual      float64
		remaining   float64
		wantPerDay  bool
		wantPerWeek bool
	}{
		// 2025 has 52 full weeks plus one Wednesday.
		{
			name:        "before the year counts the whole year",
			cutoff:      model.Date(2024, time.June, 1),
			days:        261,
			actual:      0,
			remaining:   10,
			wantPerDay:  true,
			wantPerWeek: true,
		},
		{
			name:      "after the year leaves nothing",
			cutoff:    model.Date(2026, time.February, 1),
			days:      0,
			actual:    106,
			remaining: 0,
		},
		{
			name:      "last day of the year",
			cutoff:    model.Date(2025, time.December, 31),
			days:      0,
			actual:    106,
			remaining: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := Build(listingsInput(tt.cutoff))
			assert.Equal(t, tt.days, summary.RemainingWorkingDays)
			require.Len(t, summary.Metrics, 1)

			m := summary.Metrics[0]
			assert.InDelta(t, tt.actual, m.Actual, 1e-9)
			assert.InDelta(t, tt.remaining, m.Remaining, 1e-9)
			assert.Equal(t, tt.wantPerDay, m.PerDay > 0)
			assert.Equal(t, tt.wantPerWeek, m.PerWeek > 0)
		})
	}
}

func TestBuild_ExceptionsAndWeekdays(t *testing.T) {
	in := listingsInput(model.Date(2025, time.December, 29))
	in.Exceptions = []model.ScheduleException{{
		FromDate: model.Date(2025, time.December, 31),
		ToDate:   model.Date(2026, time.January, 1),
	}}
	assert.Equal(t, 1, Build(in).RemainingWorkingDays)

	in.Exceptions = nil
	in.Weekdays = model.Weekdays{}
	summary := Build(in)
	assert.Zero(t, summary.RemainingWorkingDays)
	assert.Zero(t, summary.RemainingWorkWeeks)
	assert.Zero(t, summary.Metrics[0].PerWeek)
}

func TestBuild_ZeroGoal(t *testing.T) {
	summary := Build(Input{
		Cutoff:   model.Date(2025, time.June, 30),
		Year:     2025,
		Goals:    []model.Field{{FieldName: "calls"}},
		Tracker:  []model.TrackerRow{{FieldName: "calls", Values: map[string]float64{"2025-06-01": 12}}},
		Weekdays: model.MondayToFriday,
	})

	require.Len(t, summary.Metrics, 1)
	m := summary.Metrics[0]
	assert.Equal(t, "calls", m.Label, "label falls back to the field name")
	assert.Zero(t, m.Percent)
	assert.Zero(t, m.Remaining, "remaining never goes negative")
}
