// Package dashboard rolls tracker metrics up against their yearly goals.
package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/pace/internal/model"
	"github.com/Veraticus/pace/internal/schedule"
)

// Input is everything Build needs. Goals and Tracker come from the goals
// sheet and tracker rows; Weekdays and Exceptions describe the schedule.
type Input struct {
	Cutoff     time.Time
	Goals      []model.Field
	Tracker    []model.TrackerRow
	Exceptions []model.ScheduleException
	Year       int
	Weekdays   model.Weekdays
}

// Metric compares one tracked metric with the goal field of the same name.
type Metric struct {
	FieldName string  `json:"field_name"`
	Label     string  `json:"label"`
	Actual    float64 `json:"actual"`
	Goal      float64 `json:"goal"`
	Remaining float64 `json:"remaining"`
	Percent   float64 `json:"percent"`
	PerDay    float64 `json:"per_day"`
	PerWeek   float64 `json:"per_week"`
}

// Summary is the dashboard for one user and year as of Cutoff.
type Summary struct {
	Cutoff               time.Time `json:"cutoff"`
	Metrics              []Metric  `json:"metrics"`
	Year                 int       `json:"year"`
	RemainingWorkingDays int       `json:"remaining_working_days"`
	RemainingWorkWeeks   float64   `json:"remaining_work_weeks"`
}

// Build computes the summary. Actuals only count values dated within the
// year and on or before the cutoff. The remaining working days run from the
// day after the cutoff through December 31; a cutoff before the year counts
// the whole year. Metrics follow the order of the goal fields. No rounding
// policy is applied to any figure.
func Build(in Input) Summary {
	cutoff := model.Day(in.Cutoff)
	start, end := model.YearStart(in.Year), model.YearEnd(in.Year)

	remaining := schedule.CountDays(model.MaxDate(model.NextDay(cutoff), start), end, in.Weekdays, in.Exceptions)

	summary := Summary{
		Cutoff:               cutoff,
		Year:                 in.Year,
		RemainingWorkingDays: remaining.WorkingDays,
		Metrics:              []Metric{},
	}
	if perWeek := in.Weekdays.Count(); perWeek > 0 {
		summary.RemainingWorkWeeks = float64(remaining.WorkingDays) / float64(perWeek)
	}

	rows := make(map[string]model.TrackerRow, len(in.Tracker))
	for _, row := range in.Tracker {
		rows[row.FieldName] = row
	}

	for _, goal := range in.Goals {
		row, ok := rows[goal.FieldName]
		if !ok {
			continue
		}
		summary.Metrics = append(summary.Metrics,
			metric(goal, actual(row, start, model.MinDate(cutoff, end)), summary))
	}
	return summary
}

func actual(row model.TrackerRow, from, to time.Time) float64 {
	sum := decimal.Zero
	for key, v := range row.Values {
		day, err := model.ParseDate(key)
		if err != nil || day.Before(from) || day.After(to) {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	return sum.InexactFloat64()
}

func metric(goal model.Field, actual float64, summary Summary) Metric {
	m := Metric{
		FieldName: goal.FieldName,
		Label:     goal.Label,
		Actual:    actual,
		Goal:      goal.Value,
	}
	if m.Label == "" {
		m.Label = goal.FieldName
	}

	remaining := decimal.NewFromFloat(goal.Value).Sub(decimal.NewFromFloat(actual))
	if remaining.IsPositive() {
		m.Remaining = remaining.InexactFloat64()
	}
	if goal.Value != 0 {
		m.Percent = actual / goal.Value * 100
	}
	if summary.RemainingWorkingDays > 0 {
		m.PerDay = m.Remaining / float64(summary.RemainingWorkingDays)
	}
	if summary.RemainingWorkWeeks > 0 {
		m.PerWeek = m.Remaining / summary.RemainingWorkWeeks
	}
	return m
}
