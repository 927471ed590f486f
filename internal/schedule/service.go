package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/pace/internal/common"
	"github.com/Veraticus/pace/internal/model"
	"github.com/Veraticus/pace/internal/service"
)

// Service errors.
var (
	ErrOverlappingException = errors.New("exception overlaps an existing exception")
	ErrCrossYearException   = errors.New("exception must fall within its schedule year")
	ErrInvalidYear          = errors.New("invalid year")
	ErrEmptyUser            = errors.New("user id cannot be empty")
)

// DefaultWeekdays is the selection shown before a user saves a schedule.
var DefaultWeekdays = model.MondayToFriday

// State is everything a view needs to render one user's schedule year.
// Schedule is nil until the first save.
type State struct {
	Schedule   *model.Schedule                `json:"schedule"`
	Exceptions []model.ScheduleException      `json:"exceptions"`
	History    []model.ScheduleHistorySegment `json:"history"`
	Totals     model.DayCounts                `json:"totals"`
	UserID     string                         `json:"user_id"`
	Year       int                            `json:"year"`
	Weekdays   model.Weekdays                 `json:"weekdays"`
}

// SaveRequest replaces the weekday selection and edits exceptions in one step.
type SaveRequest struct {
	UserID             string
	AddExceptions      []model.ScheduleException
	RemoveExceptionIDs []int64
	Year               int
	Weekdays           model.Weekdays
}

// Service combines the pure counters with a persistence port.
type Service struct {
	store service.Storage
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the source of "today". The returned time's location
// decides which calendar day is today.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a schedule service backed by store.
func NewService(store service.Storage, opts ...Option) *Service {
	s := &Service{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today() time.Time {
	return model.Day(s.now())
}

// Load returns the stored state for a user/year, or the initial shape when
// nothing has been saved.
func (s *Service) Load(ctx context.Context, userID string, year int) (*State, error) {
	if err := validateKey(userID, year); err != nil {
		return nil, err
	}

	state := &State{UserID: userID, Year: year, Weekdays: DefaultWeekdays}

	sched, err := s.store.GetSchedule(ctx, userID, year)
	switch {
	case errors.Is(err, common.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	default:
		state.Schedule = sched
		state.Weekdays = sched.Weekdays
	}

	if state.Exceptions, err = s.store.ListExceptions(ctx, userID, year); err != nil {
		return nil, fmt.Errorf("failed to load exceptions: %w", err)
	}
	if state.History, err = s.store.ListHistory(ctx, userID, year); err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	state.Totals = s.TotalWithHistory(ctx, userID, year, state.Weekdays, state.Exceptions)
	return state, nil
}

// TotalWithHistory returns the yearly working/non-working split for a
// (possibly unsaved) weekday selection, honouring frozen history. It never
// fails: if history cannot be read it falls back to a whole-year count under
// the given selection.
func (s *Service) TotalWithHistory(ctx context.Context, userID string, year int, weekdays model.Weekdays, exceptions []model.ScheduleException) model.DayCounts {
	totals, err := s.total(ctx, s.store, userID, year, weekdays, exceptions)
	if err != nil {
		slog.Warn("Falling back to whole-year schedule totals",
			"user", userID,
			"year", year,
			"error", err)
		return YearlyTotals(year, weekdays, exceptions)
	}
	return totals
}

func (s *Service) total(ctx context.Context, store service.ScheduleStore, userID string, year int, weekdays model.Weekdays, exceptions []model.ScheduleException) (model.DayCounts, error) {
	history, err := store.ListHistory(ctx, userID, year)
	if err != nil {
		return model.DayCounts{}, fmt.Errorf("failed to load history: %w", err)
	}

	if len(history) > 0 {
		var totals model.DayCounts
		for _, seg := range history {
			totals = totals.Add(seg.DayCounts)
		}
		liveStart := model.NextDay(history[len(history)-1].EndDate)
		return totals.Add(CountDays(liveStart, model.YearEnd(year), weekdays, exceptions)), nil
	}

	stored, err := store.GetSchedule(ctx, userID, year)
	if errors.Is(err, common.ErrNotFound) {
		return YearlyTotals(year, weekdays, exceptions), nil
	}
	if err != nil {
		return model.DayCounts{}, fmt.Errorf("failed to load schedule: %w", err)
	}

	return s.splitAtToday(year, stored.Weekdays, weekdays, exceptions), nil
}

// splitAtToday counts elapsed days under the stored selection and the rest of
// the year under the current one.
func (s *Service) splitAtToday(year int, stored, current model.Weekdays, exceptions []model.ScheduleException) model.DayCounts {
	today := s.today()
	start, end := model.YearStart(year), model.YearEnd(year)

	past := CountDays(start, model.MinDate(today, end), stored, exceptions)
	future := CountDays(model.MaxDate(model.NextDay(today), start), end, current, exceptions)
	return past.Add(future)
}

// Save creates or updates the schedule for req.UserID/req.Year. When an
// existing selection changes, the days elapsed under it are frozen into a
// history segment before it is overwritten. All writes share one database
// transaction.
func (s *Service) Save(ctx context.Context, req SaveRequest) (*model.Schedule, error) {
	if err := validateKey(req.UserID, req.Year); err != nil {
		return nil, err
	}

	var saved *model.Schedule
	err := s.inTx(ctx, func(tx service.Tx) error {
		existing, err := tx.GetSchedule(ctx, req.UserID, req.Year)
		switch {
		case errors.Is(err, common.ErrNotFound):
			existing = nil
		case err != nil:
			return fmt.Errorf("failed to load schedule: %w", err)
		}

		exceptions, err := tx.ListExceptions(ctx, req.UserID, req.Year)
		if err != nil {
			return fmt.Errorf("failed to load exceptions: %w", err)
		}

		if existing != nil && existing.Weekdays != req.Weekdays {
			if err := s.freezeHistory(ctx, tx, existing, exceptions); err != nil {
				return err
			}
		}

		for _, id := range req.RemoveExceptionIDs {
			if err := tx.DeleteException(ctx, req.UserID, id); err != nil {
				return fmt.Errorf("failed to delete exception %d: %w", id, err)
			}
			exceptions = withoutException(exceptions, id)
		}

		for i := range req.AddExceptions {
			exc := req.AddExceptions[i]
			exc.UserID, exc.Year = req.UserID, req.Year
			if err := s.insertException(ctx, tx, &exc, exceptions); err != nil {
				return err
			}
			exceptions = append(exceptions, exc)
		}

		totals, err := s.total(ctx, tx, req.UserID, req.Year, req.Weekdays, exceptions)
		if err != nil {
			return err
		}

		sched := &model.Schedule{
			UserID:    req.UserID,
			Year:      req.Year,
			Weekdays:  req.Weekdays,
			DayCounts: totals,
			UpdatedAt: s.now(),
		}
		if existing != nil {
			sched.ID = existing.ID
		}
		if err := tx.SaveSchedule(ctx, sched); err != nil {
			return fmt.Errorf("failed to save schedule: %w", err)
		}
		saved = sched
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Saved schedule",
		"user", saved.UserID,
		"year", saved.Year,
		"weekdays", saved.Weekdays.String(),
		"working_days", saved.WorkingDays,
		"non_working_days", saved.NonWorkingDays)
	return saved, nil
}

// freezeHistory records the days from the end of the previous segment (or
// January 1) through today under the selection that is about to be replaced.
func (s *Service) freezeHistory(ctx context.Context, tx service.Tx, existing *model.Schedule, exceptions []model.ScheduleException) error {
	history, err := tx.ListHistory(ctx, existing.UserID, existing.Year)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	start := model.YearStart(existing.Year)
	if len(history) > 0 {
		start = model.NextDay(history[len(history)-1].EndDate)
	}
	end := model.MinDate(s.today(), model.YearEnd(existing.Year))
	if end.Before(start) {
		return nil
	}

	segment := &model.ScheduleHistorySegment{
		UserID:    existing.UserID,
		Year:      existing.Year,
		StartDate: start,
		EndDate:   end,
		Weekdays:  existing.Weekdays,
		DayCounts: CountDays(start, end, existing.Weekdays, exceptions),
		CreatedAt: s.now(),
	}
	if err := tx.CreateHistorySegment(ctx, segment); err != nil {
		return fmt.Errorf("failed to create history segment: %w", err)
	}

	slog.Debug("Froze schedule history",
		"user", segment.UserID,
		"start", model.FormatDate(segment.StartDate),
		"end", model.FormatDate(segment.EndDate),
		"working_days", segment.WorkingDays)
	return nil
}

// AddException stores a new exception and refreshes the cached totals.
func (s *Service) AddException(ctx context.Context, exc model.ScheduleException) (*model.ScheduleException, error) {
	if exc.Year == 0 {
		exc.Year = exc.FromDate.Year()
	}
	if err := validateKey(exc.UserID, exc.Year); err != nil {
		return nil, err
	}

	err := s.inTx(ctx, func(tx service.Tx) error {
		existing, err := tx.ListExceptions(ctx, exc.UserID, exc.Year)
		if err != nil {
			return fmt.Errorf("failed to load exceptions: %w", err)
		}
		if err := s.insertException(ctx, tx, &exc, existing); err != nil {
			return err
		}
		return s.refreshCached(ctx, tx, exc.UserID, exc.Year)
	})
	if err != nil {
		return nil, err
	}
	return &exc, nil
}

// DeleteException removes one exception and refreshes the cached totals.
func (s *Service) DeleteException(ctx context.Context, userID string, year int, id int64) error {
	if err := validateKey(userID, year); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx service.Tx) error {
		if err := tx.DeleteException(ctx, userID, id); err != nil {
			return fmt.Errorf("failed to delete exception %d: %w", id, err)
		}
		return s.refreshCached(ctx, tx, userID, year)
	})
}

func (s *Service) insertException(ctx context.Context, tx service.Tx, exc *model.ScheduleException, existing []model.ScheduleException) error {
	if err := exc.Validate(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidInput, err)
	}
	// Exceptions are stored and counted per year; split a range at December 31.
	if exc.FromDate.Year() != exc.Year || exc.LastDay().Year() != exc.Year {
		return fmt.Errorf("%w: %w: %s..%s is not in %d", common.ErrInvalidInput, ErrCrossYearException,
			model.FormatDate(exc.FromDate), model.FormatDate(exc.LastDay()), exc.Year)
	}
	if clash, ok := Overlapping(*exc, existing); ok {
		return fmt.Errorf("%w: %s..%s clashes with %s..%s", ErrOverlappingException,
			model.FormatDate(exc.FromDate), model.FormatDate(exc.LastDay()),
			model.FormatDate(clash.FromDate), model.FormatDate(clash.LastDay()))
	}
	if exc.CreatedAt.IsZero() {
		exc.CreatedAt = s.now()
	}
	if err := tx.CreateException(ctx, exc); err != nil {
		return fmt.Errorf("failed to create exception: %w", err)
	}
	return nil
}

// refreshCached recomputes a stored schedule's cached totals; no-op without a schedule.
func (s *Service) refreshCached(ctx context.Context, store service.ScheduleStore, userID string, year int) error {
	sched, err := store.GetSchedule(ctx, userID, year)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load schedule: %w", err)
	}

	exceptions, err := store.ListExceptions(ctx, userID, year)
	if err != nil {
		return fmt.Errorf("failed to load exceptions: %w", err)
	}

	totals, err := s.total(ctx, store, userID, year, sched.Weekdays, exceptions)
	if err != nil {
		return err
	}
	if totals == sched.DayCounts {
		return nil
	}

	sched.DayCounts = totals
	sched.UpdatedAt = s.now()
	if err := store.SaveSchedule(ctx, sched); err != nil {
		return fmt.Errorf("failed to save schedule totals: %w", err)
	}
	return nil
}

// Reset deletes the history, exceptions and schedule row for a user/year.
func (s *Service) Reset(ctx context.Context, userID string, year int) error {
	if err := validateKey(userID, year); err != nil {
		return err
	}
	err := s.inTx(ctx, func(tx service.Tx) error {
		if err := tx.DeleteHistory(ctx, userID, year); err != nil {
			return fmt.Errorf("failed to delete history: %w", err)
		}
		if err := tx.DeleteExceptions(ctx, userID, year); err != nil {
			return fmt.Errorf("failed to delete exceptions: %w", err)
		}
		if err := tx.DeleteSchedule(ctx, userID, year); err != nil {
			return fmt.Errorf("failed to delete schedule: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("Reset schedule", "user", userID, "year", year)
	return nil
}

// RefreshTotals recomputes the cached totals of every stored schedule and
// rewrites those that no longer match their weekdays, exceptions and
// history, as after a restore or a hand edit of the database. It returns
// how many schedules were examined.
func (s *Service) RefreshTotals(ctx context.Context) (int, error) {
	schedules, err := s.store.ListSchedules(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list schedules: %w", err)
	}

	for _, sched := range schedules {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := s.refreshCached(ctx, s.store, sched.UserID, sched.Year); err != nil {
			return 0, fmt.Errorf("user %s year %d: %w", sched.UserID, sched.Year, err)
		}
	}
	return len(schedules), nil
}

func (s *Service) inTx(ctx context.Context, fn func(tx service.Tx) error) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Error("failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func withoutException(exceptions []model.ScheduleException, id int64) []model.ScheduleException {
	out := exceptions[:0:0]
	for _, exc := range exceptions {
		if exc.ID != id {
			out = append(out, exc)
		}
	}
	return out
}

func validateKey(userID string, year int) error {
	if userID == "" {
		return ErrEmptyUser
	}
	if year < 1900 || year > 9999 {
		return fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}
	return nil
}
