package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/pace/internal/model"
)

// ListTrackerRows returns a user's tracker values dated within [from, to],
// grouped into one row per field and ordered by field name.
func (r repo) ListTrackerRows(ctx context.Context, userID string, from, to time.Time) ([]model.TrackerRow, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: end date %s is before start date %s",
			ErrInvalidDateRange, model.FormatDate(to), model.FormatDate(from))
	}

	rows, err := r.q.QueryContext(ctx, `
		SELECT field_name, date, value
		FROM tracker
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY field_name, date`,
		userID, model.FormatDate(from), model.FormatDate(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query tracker: %w", err)
	}
	defer closeRows(rows)

	var result []model.TrackerRow
	for rows.Next() {
		var (
			name, day string
			value     float64
		)
		if err := rows.Scan(&name, &day, &value); err != nil {
			return nil, fmt.Errorf("failed to scan tracker value: %w", err)
		}
		if len(result) == 0 || result[len(result)-1].FieldName != name {
			result = append(result, model.TrackerRow{FieldName: name, Values: make(map[string]float64)})
		}
		result[len(result)-1].Values[day] = value
	}
	return result, rows.Err()
}

// SetTrackerValue stores one metric value for a day.
func (r repo) SetTrackerValue(ctx context.Context, userID, fieldName string, day time.Time, value float64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if err := validateString(fieldName, "fieldName"); err != nil {
		return err
	}
	return r.upsertTracker(ctx, userID, fieldName, model.FormatDate(day), value)
}

// ReplaceTrackerRow overwrites the dates present in row and leaves other dates alone.
func (r repo) ReplaceTrackerRow(ctx context.Context, userID string, row model.TrackerRow) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if err := validateString(row.FieldName, "fieldName"); err != nil {
		return err
	}

	for day, value := range row.Values {
		if _, err := model.ParseDate(day); err != nil {
			return err
		}
		if err := r.upsertTracker(ctx, userID, row.FieldName, day, value); err != nil {
			return err
		}
	}
	return nil
}

// DeleteTrackerRow removes every value of one of a user's metrics.
func (r repo) DeleteTrackerRow(ctx context.Context, userID, fieldName string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if err := validateString(fieldName, "fieldName"); err != nil {
		return err
	}
	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM tracker WHERE user_id = ? AND field_name = ?`, userID, fieldName); err != nil {
		return fmt.Errorf("failed to delete tracker row %s: %w", fieldName, err)
	}
	return nil
}

func (r repo) upsertTracker(ctx context.Context, userID, fieldName, day string, value float64) error {
	if _, err := r.q.ExecContext(ctx, `
		INSERT INTO tracker (user_id, field_name, date, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, field_name, date) DO UPDATE SET value = excluded.value`,
		userID, fieldName, day, value); err != nil {
		return fmt.Errorf("failed to save tracker value %s/%s: %w", fieldName, day, err)
	}
	return nil
}
