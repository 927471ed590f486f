package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Veraticus/pace/internal/common"
	"github.com/Veraticus/pace/internal/model"
)

// ListFields returns field definitions of one kind (all kinds when kind is
// empty) ordered by position, then name.
func (r repo) ListFields(ctx context.Context, kind model.FieldKind) ([]model.Field, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := r.q.QueryContext(ctx, `
		SELECT id, field_name, label, kind, position, is_editable, is_integer, calculation, rounding_condition
		FROM fields
		WHERE ? = '' OR kind = ?
		ORDER BY position, field_name`, string(kind), string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query fields: %w", err)
	}
	defer closeRows(rows)

	var fields []model.Field
	for rows.Next() {
		var (
			f           model.Field
			kindStr     string
			calculation sql.NullString
			condition   sql.NullString
		)
		if err := rows.Scan(&f.ID, &f.FieldName, &f.Label, &kindStr, &f.Position,
			&f.IsEditable, &f.IsInteger, &calculation, &condition); err != nil {
			return nil, fmt.Errorf("failed to scan field: %w", err)
		}
		f.Kind = model.FieldKind(kindStr)
		f.Calculation = calculation.String
		f.Condition = model.Condition(condition.String)
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

// SaveField inserts or updates a field definition keyed by kind and name and sets its ID.
func (r repo) SaveField(ctx context.Context, field *model.Field) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateField(field); err != nil {
		return err
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO fields (field_name, label, kind, position, is_editable, is_integer, calculation, rounding_condition)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, field_name) DO UPDATE SET
			label = excluded.label,
			position = excluded.position,
			is_editable = excluded.is_editable,
			is_integer = excluded.is_integer,
			calculation = excluded.calculation,
			rounding_condition = excluded.rounding_condition`,
		field.FieldName, field.Label, string(field.Kind), field.Position,
		field.IsEditable, field.IsInteger, nullable(field.Calculation), nullable(string(field.Condition)))
	if err != nil {
		return fmt.Errorf("failed to save field: %w", err)
	}

	if err := r.q.QueryRowContext(ctx,
		`SELECT id FROM fields WHERE kind = ? AND field_name = ?`,
		string(field.Kind), field.FieldName).Scan(&field.ID); err != nil {
		return fmt.Errorf("failed to read field id: %w", err)
	}
	return nil
}

// DeleteField removes a field definition.
func (r repo) DeleteField(ctx context.Context, kind model.FieldKind, fieldName string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(fieldName, "fieldName"); err != nil {
		return err
	}

	result, err := r.q.ExecContext(ctx,
		`DELETE FROM fields WHERE kind = ? AND field_name = ?`, string(kind), fieldName)
	if err != nil {
		return fmt.Errorf("failed to delete field: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s field %s: %w", kind, fieldName, common.ErrNotFound)
	}
	return nil
}

// GetGoalValues returns a user's stored goal values for a year keyed by field name.
func (r repo) GetGoalValues(ctx context.Context, userID string, year int) (map[string]float64, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateUserYear(userID, year); err != nil {
		return nil, err
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT field_name, value FROM goals WHERE user_id = ? AND year = ?`, userID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer closeRows(rows)

	values := make(map[string]float64)
	for rows.Next() {
		var (
			name  string
			value float64
		)
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		values[name] = value
	}
	return values, rows.Err()
}

// SaveGoalValues upserts the given goal values for a user/year.
func (r repo) SaveGoalValues(ctx context.Context, userID string, year int, values map[string]float64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateUserYear(userID, year); err != nil {
		return err
	}

	now := time.Now()
	for name, value := range values {
		if _, err := r.q.ExecContext(ctx, `
			INSERT INTO goals (user_id, year, field_name, value, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (user_id, year, field_name) DO UPDATE SET
				value = excluded.value,
				updated_at = excluded.updated_at`,
			userID, year, name, value, now); err != nil {
			return fmt.Errorf("failed to save goal %s: %w", name, err)
		}
	}
	return nil
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
