// Package schedule counts working and non-working days for a user's weekday
// selection, date-range exceptions and frozen history segments.
package schedule

import (
	"time"

	"github.com/Veraticus/pace/internal/model"
)

// CountDays classifies every day in the inclusive range [start, end] exactly once.
// A day covered by an exception takes the exception's IsDayOn; otherwise the
// weekday selection decides. An inverted range yields zero counts.
func CountDays(start, end time.Time, weekdays model.Weekdays, exceptions []model.ScheduleException) model.DayCounts {
	var counts model.DayCounts
	start, end = model.Day(start), model.Day(end)

	for day := start; !day.After(end); day = model.NextDay(day) {
		on := weekdays.Includes(day)
		if exc, ok := coveringException(day, exceptions); ok {
			on = exc.IsDayOn
		}
		if on {
			counts.WorkingDays++
		} else {
			counts.NonWorkingDays++
		}
	}

	return counts
}

// YearlyTotals counts January 1 through December 31 of year.
func YearlyTotals(year int, weekdays model.Weekdays, exceptions []model.ScheduleException) model.DayCounts {
	return CountDays(model.YearStart(year), model.YearEnd(year), weekdays, exceptions)
}

// coveringException picks the exception that governs day. Overlaps should not
// exist in stored data; if they do, the most recently created exception wins
// and equal creation times fall back to the later slice position.
func coveringException(day time.Time, exceptions []model.ScheduleException) (model.ScheduleException, bool) {
	var (
		found model.ScheduleException
		ok    bool
	)
	for _, exc := range exceptions {
		if !exc.Covers(day) {
			continue
		}
		if !ok || !exc.CreatedAt.Before(found.CreatedAt) {
			found, ok = exc, true
		}
	}
	return found, ok
}

// Overlapping returns the first exception in existing that shares a day with candidate.
func Overlapping(candidate model.ScheduleException, existing []model.ScheduleException) (model.ScheduleException, bool) {
	for _, exc := range existing {
		if exc.ID != 0 && exc.ID == candidate.ID {
			continue
		}
		if candidate.Overlaps(exc) {
			return exc, true
		}
	}
	return model.ScheduleException{}, false
}
