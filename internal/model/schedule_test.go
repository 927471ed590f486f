package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeekdays(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Weekdays
		wantErr bool
	}{
		{name: "monday to friday", input: "1111100", want: MondayToFriday},
		{name: "none", input: "0000000", want: Weekdays{}},
		{name: "weekend", input: " 0000011 ", want: Weekdays{false, false, false, false, false, true, true}},
		{name: "too short", input: "11111", wantErr: true},
		{name: "bad character", input: "11111x0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWeekdays(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidWeekdays)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.String(), got.String())
		})
	}
}

func TestWeekdays(t *testing.T) {
	assert.Equal(t, "1111100", MondayToFriday.String())
	assert.Equal(t, 5, MondayToFriday.Count())
	assert.Equal(t, []string{"Mon", "Tue", "Wed", "Thu", "Fri"}, MondayToFriday.Labels())
	assert.Empty(t, Weekdays{}.Labels())

	assert.Equal(t, 0, WeekdayIndex(time.Monday))
	assert.Equal(t, 6, WeekdayIndex(time.Sunday))

	// 2025-03-08 is a Saturday.
	assert.False(t, MondayToFriday.Includes(Date(2025, time.March, 8)))
	assert.True(t, MondayToFriday.Includes(Date(2025, time.March, 7)))
}

func TestDayCounts(t *testing.T) {
	c := DayCounts{WorkingDays: 3, NonWorkingDays: 1}.Add(DayCounts{WorkingDays: 2, NonWorkingDays: 4})
	assert.Equal(t, DayCounts{WorkingDays: 5, NonWorkingDays: 5}, c)
	assert.Equal(t, 10, c.Total())
}

func TestScheduleException(t *testing.T) {
	exc := ScheduleException{FromDate: Date(2024, time.March, 4), ToDate: Date(2024, time.March, 6)}

	assert.True(t, exc.Covers(Date(2024, time.March, 4)))
	assert.True(t, exc.Covers(Date(2024, time.March, 5)))
	assert.False(t, exc.Covers(Date(2024, time.March, 6)), "to_date is exclusive")
	assert.False(t, exc.Covers(Date(2024, time.March, 3)))
	assert.Equal(t, "2024-03-05", FormatDate(exc.LastDay()))
	require.NoError(t, exc.Validate())

	tests := []struct {
		other ScheduleException
		name  string
		want  bool
	}{
		{name: "same range", other: exc, want: true},
		{name: "touching after", other: ScheduleException{FromDate: Date(2024, time.March, 6), ToDate: Date(2024, time.March, 8)}},
		{name: "touching before", other: ScheduleException{FromDate: Date(2024, time.March, 1), ToDate: Date(2024, time.March, 4)}},
		{name: "shares last day", other: ScheduleException{FromDate: Date(2024, time.March, 5), ToDate: Date(2024, time.March, 9)}, want: true},
		{name: "contains", other: ScheduleException{FromDate: Date(2024, time.March, 1), ToDate: Date(2024, time.March, 30)}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exc.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(exc))
		})
	}
}

func TestScheduleException_Validate(t *testing.T) {
	day := Date(2024, time.March, 4)

	require.Error(t, ScheduleException{ToDate: day}.Validate())
	require.Error(t, ScheduleException{FromDate: day}.Validate())
	require.Error(t, ScheduleException{FromDate: day, ToDate: day}.Validate(), "empty range")
	require.Error(t, ScheduleException{FromDate: day, ToDate: PrevDay(day)}.Validate())
	require.NoError(t, ScheduleException{FromDate: day, ToDate: NextDay(day)}.Validate())
}
