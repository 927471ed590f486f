package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/pace/internal/common"
	"github.com/Veraticus/pace/internal/model"
)

const scheduleColumns = `id, user_id, year, weekdays, working_days, non_working_days, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*model.Schedule, error) {
	var (
		sched    model.Schedule
		weekdays string
	)
	if err := row.Scan(&sched.ID, &sched.UserID, &sched.Year, &weekdays,
		&sched.WorkingDays, &sched.NonWorkingDays, &sched.UpdatedAt); err != nil {
		return nil, err
	}
	w, err := model.ParseWeekdays(weekdays)
	if err != nil {
		return nil, fmt.Errorf("schedule %d: %w", sched.ID, err)
	}
	sched.Weekdays = w
	return &sched, nil
}

// GetSchedule retrieves the schedule for a user/year.
func (r repo) GetSchedule(ctx context.Context, userID string, year int) (*model.Schedule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateUserYear(userID, year); err != nil {
		return nil, err
	}

	row := r.q.QueryRowContext(ctx,
		`SELECT `+scheduleColumns+` FROM user_schedule WHERE user_id = ? AND year = ?`,
		userID, year)
	sched, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("schedule for %s/%d: %w", userID, year, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule: %w", err)
	}
	return sched, nil
}

// ListSchedules returns every stored schedule.
func (r repo) ListSchedules(ctx context.Context) ([]model.Schedule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT `+scheduleColumns+` FROM user_schedule ORDER BY user_id, year`)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer closeRows(rows)

	var schedules []model.Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, *sched)
	}
	return schedules, rows.Err()
}

// SaveSchedule inserts or updates the schedule for its user/year and sets its ID.
func (r repo) SaveSchedule(ctx context.Context, sched *model.Schedule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSchedule(sched); err != nil {
		return err
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO user_schedule (user_id, year, weekdays, working_days, non_working_days, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, year) DO UPDATE SET
			weekdays = excluded.weekdays,
			working_days = excluded.working_days,
			non_working_days = excluded.non_working_days,
			updated_at = excluded.updated_at`,
		sched.UserID, sched.Year, sched.Weekdays.String(),
		sched.WorkingDays, sched.NonWorkingDays, sched.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}

	if err := r.q.QueryRowContext(ctx,
		`SELECT id FROM user_schedule WHERE user_id = ? AND year = ?`,
		sched.UserID, sched.Year).Scan(&sched.ID); err != nil {
		return fmt.Errorf("failed to read schedule id: %w", err)
	}
	return nil
}

// DeleteSchedule removes the schedule row for a user/year. Missing rows are not an error.
func (r repo) DeleteSchedule(ctx context.Context, userID string, year int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateUserYear(userID, year); err != nil {
		return err
	}
	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM user_schedule WHERE user_id = ? AND year = ?`, userID, year); err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	return nil
}

// ListExceptions returns a user's exceptions for a year in creation order.
func (r repo) ListExceptions(ctx context.Context, userID string, year int) ([]model.ScheduleException, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateUserYear(userID, year); err != nil {
		return nil, err
	}

	rows, err := r.q.QueryContext(ctx, `
		SELECT id, user_id, year, from_date, to_date, is_day_on, reason, created_at
		FROM schedule_exceptions
		WHERE user_id = ? AND year = ?
		ORDER BY created_at, id`, userID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query exceptions: %w", err)
	}
	defer closeRows(rows)

	var exceptions []model.ScheduleException
	for rows.Next() {
		var (
			exc      model.ScheduleException
			from, to string
			reason   sql.NullString
		)
		if err := rows.Scan(&exc.ID, &exc.UserID, &exc.Year, &from, &to,
			&exc.IsDayOn, &reason, &exc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan exception: %w", err)
		}
		if exc.FromDate, err = model.ParseDate(from); err != nil {
			return nil, err
		}
		if exc.ToDate, err = model.ParseDate(to); err != nil {
			return nil, err
		}
		exc.Reason = reason.String
		exceptions = append(exceptions, exc)
	}
	return exceptions, rows.Err()
}

// CreateException stores a new exception and sets its ID.
func (r repo) CreateException(ctx context.Context, exc *model.ScheduleException) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateException(exc); err != nil {
		return err
	}

	if exc.CreatedAt.IsZero() {
		exc.CreatedAt = time.Now()
	}

	var reason sql.NullString
	if exc.Reason != "" {
		reason = sql.NullString{String: exc.Reason, Valid: true}
	}

	result, err := r.q.ExecContext(ctx, `
		INSERT INTO schedule_exceptions (user_id, year, from_date, to_date, is_day_on, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		exc.UserID, exc.Year, model.FormatDate(exc.FromDate), model.FormatDate(exc.ToDate),
		exc.IsDayOn, reason, exc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create exception: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	exc.ID = id
	return nil
}

// DeleteException removes one of a user's exceptions.
func (r repo) DeleteException(ctx context.Context, userID string, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}

	result, err := r.q.ExecContext(ctx,
		`DELETE FROM schedule_exceptions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete exception: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("exception %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// DeleteExceptions removes all of a user's exceptions for a year.
func (r repo) DeleteExceptions(ctx context.Context, userID string, year int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateUserYear(userID, year); err != nil {
		return err
	}
	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM schedule_exceptions WHERE user_id = ? AND year = ?`, userID, year); err != nil {
		return fmt.Errorf("failed to delete exceptions: %w", err)
	}
	return nil
}

// ListHistory returns a user's history segments for a year ordered by end date.
func (r repo) ListHistory(ctx context.Context, userID string, year int) ([]model.ScheduleHistorySegment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateUserYear(userID, year); err != nil {
		return nil, err
	}

	rows, err := r.q.QueryContext(ctx, `
		SELECT id, user_id, year, start_date, end_date, weekdays, working_days, non_working_days, created_at
		FROM user_schedule_history
		WHERE user_id = ? AND year = ?
		ORDER BY end_date, id`, userID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule history: %w", err)
	}
	defer closeRows(rows)

	var segments []model.ScheduleHistorySegment
	for rows.Next() {
		var (
			seg                  model.ScheduleHistorySegment
			start, end, weekdays string
		)
		if err := rows.Scan(&seg.ID, &seg.UserID, &seg.Year, &start, &end, &weekdays,
			&seg.WorkingDays, &seg.NonWorkingDays, &seg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history segment: %w", err)
		}
		if seg.StartDate, err = model.ParseDate(start); err != nil {
			return nil, err
		}
		if seg.EndDate, err = model.ParseDate(end); err != nil {
			return nil, err
		}
		if seg.Weekdays, err = model.ParseWeekdays(weekdays); err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

// CreateHistorySegment stores an immutable history segment and sets its ID.
func (r repo) CreateHistorySegment(ctx context.Context, seg *model.ScheduleHistorySegment) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSegment(seg); err != nil {
		return err
	}

	if seg.CreatedAt.IsZero() {
		seg.CreatedAt = time.Now()
	}

	result, err := r.q.ExecContext(ctx, `
		INSERT INTO user_schedule_history
			(user_id, year, start_date, end_date, weekdays, working_days, non_working_days, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		seg.UserID, seg.Year, model.FormatDate(seg.StartDate), model.FormatDate(seg.EndDate),
		seg.Weekdays.String(), seg.WorkingDays, seg.NonWorkingDays, seg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create history segment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	seg.ID = id
	return nil
}

// DeleteHistory removes all of a user's history segments for a year.
func (r repo) DeleteHistory(ctx context.Context, userID string, year int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateUserYear(userID, year); err != nil {
		return err
	}
	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM user_schedule_history WHERE user_id = ? AND year = ?`, userID, year); err != nil {
		return fmt.Errorf("failed to delete schedule history: %w", err)
	}
	return nil
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		slog.Error("failed to close rows", "error", err)
	}
}
