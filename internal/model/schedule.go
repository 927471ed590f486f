package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidWeekdays is returned when a weekday selection string cannot be parsed.
var ErrInvalidWeekdays = errors.New("invalid weekday selection")

// Weekdays marks which days of the week are working days, indexed Monday=0 through Sunday=6.
// A selection is replaced wholesale, never patched per day.
type Weekdays [7]bool

// WeekdayNames are the short labels for each Weekdays slot.
var WeekdayNames = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// MondayToFriday is the conventional five-day working week.
var MondayToFriday = Weekdays{true, true, true, true, true, false, false}

// WeekdayIndex maps a time.Weekday to its Monday-based slot (Sunday=6).
func WeekdayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// Includes reports whether day falls on a selected weekday.
func (w Weekdays) Includes(day time.Time) bool {
	return w[WeekdayIndex(day.Weekday())]
}

// Count returns how many weekdays are selected.
func (w Weekdays) Count() int {
	n := 0
	for _, on := range w {
		if on {
			n++
		}
	}
	return n
}

// String encodes the selection as seven 0/1 characters, Monday first.
func (w Weekdays) String() string {
	var b strings.Builder
	for _, on := range w {
		if on {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// Labels returns the short names of the selected weekdays.
func (w Weekdays) Labels() []string {
	labels := make([]string, 0, 7)
	for i, on := range w {
		if on {
			labels = append(labels, WeekdayNames[i])
		}
	}
	return labels
}

// ParseWeekdays decodes a seven character 0/1 string such as "1111100".
func ParseWeekdays(s string) (Weekdays, error) {
	var w Weekdays
	s = strings.TrimSpace(s)
	if len(s) != 7 {
		return w, fmt.Errorf("%w: %q must have 7 characters", ErrInvalidWeekdays, s)
	}
	for i, c := range s {
		switch c {
		case '1':
			w[i] = true
		case '0':
		default:
			return w, fmt.Errorf("%w: %q has unexpected character %q", ErrInvalidWeekdays, s, c)
		}
	}
	return w, nil
}

// DayCounts is a working/non-working split of a run of calendar days.
type DayCounts struct {
	WorkingDays    int `json:"working_days"`
	NonWorkingDays int `json:"non_working_days"`
}

// Add returns the element-wise sum of c and other.
func (c DayCounts) Add(other DayCounts) DayCounts {
	return DayCounts{
		WorkingDays:    c.WorkingDays + other.WorkingDays,
		NonWorkingDays: c.NonWorkingDays + other.NonWorkingDays,
	}
}

// Total returns the number of classified days.
func (c DayCounts) Total() int {
	return c.WorkingDays + c.NonWorkingDays
}

// ScheduleException forces every day in [FromDate, ToDate) on or off.
type ScheduleException struct {
	CreatedAt time.Time `json:"created_at"`
	FromDate  time.Time `json:"from_date"`
	ToDate    time.Time `json:"to_date"` // exclusive
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason,omitempty"`
	ID        int64     `json:"id"`
	Year      int       `json:"year"`
	IsDayOn   bool      `json:"is_day_on"`
}

// Covers reports whether day falls inside the exception's half-open range.
func (e ScheduleException) Covers(day time.Time) bool {
	return !day.Before(e.FromDate) && day.Before(e.ToDate)
}

// Overlaps reports whether the two exceptions share at least one day.
func (e ScheduleException) Overlaps(other ScheduleException) bool {
	return e.FromDate.Before(other.ToDate) && other.FromDate.Before(e.ToDate)
}

// LastDay returns the final day the exception covers.
func (e ScheduleException) LastDay() time.Time {
	return PrevDay(e.ToDate)
}

// Validate checks the exception's range.
func (e ScheduleException) Validate() error {
	if e.FromDate.IsZero() || e.ToDate.IsZero() {
		return errors.New("exception dates are required")
	}
	if !e.FromDate.Before(e.ToDate) {
		return fmt.Errorf("exception to_date %s must be after from_date %s",
			FormatDate(e.ToDate), FormatDate(e.FromDate))
	}
	return nil
}

// ScheduleHistorySegment freezes the day counts of an elapsed period under a
// weekday selection that has since been replaced.
type ScheduleHistorySegment struct {
	CreatedAt time.Time `json:"created_at"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"` // inclusive
	UserID    string    `json:"user_id"`
	DayCounts
	ID       int64    `json:"id"`
	Year     int      `json:"year"`
	Weekdays Weekdays `json:"weekdays"`
}

// Schedule is a user's weekday selection for one year with cached totals.
type Schedule struct {
	UpdatedAt time.Time `json:"updated_at"`
	UserID    string    `json:"user_id"`
	DayCounts
	ID       int64    `json:"id"`
	Year     int      `json:"year"`
	Weekdays Weekdays `json:"weekdays"`
}
