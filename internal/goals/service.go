// Package goals loads, edits and persists a user's goal sheet and daily
// tracker metrics, recomputing calculated fields with the formula engine.
package goals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode"

	"github.com/Veraticus/pace/internal/common"
	"github.com/Veraticus/pace/internal/formula"
	"github.com/Veraticus/pace/internal/model"
	"github.com/Veraticus/pace/internal/service"
)

// Service errors.
var (
	ErrNotEditable       = errors.New("field is not editable")
	ErrUnknownReference  = errors.New("formula references an unknown field")
	ErrCircularReference = errors.New("formula forms a reference cycle")
	ErrInvalidFieldName  = errors.New("field names must be identifiers")
	ErrNotTrackerField   = errors.New("not a tracker field")
	ErrInvalidYear       = errors.New("invalid year")
	ErrEmptyUser         = errors.New("user id cannot be empty")
	ErrCalculatedTracker = errors.New("tracker fields cannot be calculated")
	ErrFieldInUse        = errors.New("field is referenced by a formula")
)

// Service manages goal and tracker fields.
type Service struct {
	store service.Storage
}

// NewService creates a goals service backed by store.
func NewService(store service.Storage) *Service {
	return &Service{store: store}
}

// Fields returns the field definitions of one kind, or all when kind is empty.
func (s *Service) Fields(ctx context.Context, kind model.FieldKind) ([]model.Field, error) {
	return s.store.ListFields(ctx, kind)
}

// Sheet returns the goal fields with the user's stored values and every
// calculated field recomputed.
func (s *Service) Sheet(ctx context.Context, userID string, year int) ([]model.Field, error) {
	if err := validateKey(userID, year); err != nil {
		return nil, err
	}
	return s.sheet(ctx, s.store, userID, year)
}

func (s *Service) sheet(ctx context.Context, store service.FieldStore, userID string, year int) ([]model.Field, error) {
	defs, err := store.ListFields(ctx, model.KindGoal)
	if err != nil {
		return nil, fmt.Errorf("failed to load goal fields: %w", err)
	}
	values, err := store.GetGoalValues(ctx, userID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to load goal values: %w", err)
	}
	return Fill(defs, values), nil
}

// Fill overlays stored values on the field definitions and recomputes the
// calculated fields. Fields without a stored value start at 0.
func Fill(defs []model.Field, values map[string]float64) []model.Field {
	fields := make([]model.Field, len(defs))
	for i, def := range defs {
		fields[i] = def
		fields[i].Value = 0
		if !def.IsCalculated() {
			fields[i].Value = values[def.FieldName]
		}
	}
	return formula.NewEngine(defs).Recompute(fields)
}

// Set parses raw into an editable goal field, recomputes the sheet and
// stores every value in one transaction. Stored values are unrounded by
// display formatting.
func (s *Service) Set(ctx context.Context, userID string, year int, fieldName, raw string) ([]model.Field, error) {
	if err := validateKey(userID, year); err != nil {
		return nil, err
	}

	var updated []model.Field
	err := s.inTx(ctx, func(tx service.Tx) error {
		fields, err := s.sheet(ctx, tx, userID, year)
		if err != nil {
			return err
		}

		field, ok := find(fields, fieldName)
		if !ok {
			return fmt.Errorf("%w: %s", formula.ErrUnknownField, fieldName)
		}
		if field.IsCalculated() || !field.IsEditable {
			return fmt.Errorf("%w: %s", ErrNotEditable, fieldName)
		}

		updated, err = formula.NewEngine(fields).Edit(fields, fieldName, raw)
		if err != nil {
			return err
		}

		values := make(map[string]float64, len(updated))
		for _, f := range updated {
			values[f.FieldName] = f.Value
		}
		if err := tx.SaveGoalValues(ctx, userID, year, values); err != nil {
			return fmt.Errorf("failed to save goal values: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Updated goal",
		"user", userID,
		"year", year,
		"field", fieldName,
		"raw", raw)
	return updated, nil
}

// Define creates or replaces a field definition. Field names must be
// identifiers, and a formula must parse and reference only known fields.
// Calculated fields are never editable.
func (s *Service) Define(ctx context.Context, field model.Field) (*model.Field, error) {
	if !isIdentifier(field.FieldName) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFieldName, field.FieldName)
	}

	cond, err := model.ParseCondition(string(field.Condition))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidInput, err)
	}
	field.Condition = cond

	if field.IsCalculated() {
		if field.Kind == model.KindTracker {
			return nil, fmt.Errorf("%w: %s", ErrCalculatedTracker, field.FieldName)
		}
		if err := s.checkReferences(ctx, field); err != nil {
			return nil, err
		}
		field.IsEditable = false
	}

	if err := s.store.SaveField(ctx, &field); err != nil {
		return nil, fmt.Errorf("failed to save field: %w", err)
	}

	slog.Info("Defined field",
		"field", field.FieldName,
		"kind", field.Kind,
		"calculated", field.IsCalculated())
	return &field, nil
}

// checkReferences validates a calculated goal field against the other goal
// fields. Formulas are only evaluated over goals, so tracker names are unknown.
func (s *Service) checkReferences(ctx context.Context, field model.Field) error {
	expr, err := formula.Parse(field.Calculation)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidInput, err)
	}

	known, err := s.store.ListFields(ctx, model.KindGoal)
	if err != nil {
		return fmt.Errorf("failed to load fields: %w", err)
	}
	names := make(map[string]bool, len(known))
	for _, f := range known {
		names[f.FieldName] = true
	}

	for _, ref := range expr.References() {
		if ref == field.FieldName {
			return fmt.Errorf("%w: %s", ErrCircularReference, ref)
		}
		if !names[ref] {
			return fmt.Errorf("%w: %s", ErrUnknownReference, ref)
		}
	}

	candidate := make([]model.Field, 0, len(known)+1)
	candidate = append(candidate, field)
	for _, f := range known {
		if f.FieldName != field.FieldName {
			candidate = append(candidate, f)
		}
	}
	for _, name := range formula.NewEngine(candidate).Unresolved() {
		if name == field.FieldName {
			return fmt.Errorf("%w: %s", ErrCircularReference, name)
		}
	}
	return nil
}

// DeleteField removes a field definition. Goal fields still referenced by
// another goal's formula cannot be deleted. Stored values are left in place.
func (s *Service) DeleteField(ctx context.Context, kind model.FieldKind, fieldName string) error {
	if kind == model.KindGoal {
		if err := s.checkUnused(ctx, fieldName); err != nil {
			return err
		}
	}

	if err := s.store.DeleteField(ctx, kind, fieldName); err != nil {
		return fmt.Errorf("failed to delete field %s: %w", fieldName, err)
	}
	slog.Info("Deleted field", "field", fieldName, "kind", kind)
	return nil
}

func (s *Service) checkUnused(ctx context.Context, fieldName string) error {
	known, err := s.store.ListFields(ctx, model.KindGoal)
	if err != nil {
		return fmt.Errorf("failed to load fields: %w", err)
	}
	for _, f := range known {
		if !f.IsCalculated() || f.FieldName == fieldName {
			continue
		}
		expr, err := formula.Parse(f.Calculation)
		if err != nil {
			continue
		}
		for _, ref := range expr.References() {
			if ref == fieldName {
				return fmt.Errorf("%w: %s is used by %s", ErrFieldInUse, fieldName, f.FieldName)
			}
		}
	}
	return nil
}

// Tracker returns the user's tracker rows for a year.
func (s *Service) Tracker(ctx context.Context, userID string, year int) ([]model.TrackerRow, error) {
	if err := validateKey(userID, year); err != nil {
		return nil, err
	}
	return s.store.ListTrackerRows(ctx, userID, model.YearStart(year), model.YearEnd(year))
}

// SetTracker parses raw into one day's value of a tracker metric.
func (s *Service) SetTracker(ctx context.Context, userID, fieldName string, day time.Time, raw string) (float64, error) {
	if err := validateKey(userID, day.Year()); err != nil {
		return 0, err
	}

	defs, err := s.store.ListFields(ctx, model.KindTracker)
	if err != nil {
		return 0, fmt.Errorf("failed to load tracker fields: %w", err)
	}
	def, ok := find(defs, fieldName)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotTrackerField, fieldName)
	}
	if !def.IsEditable {
		return 0, fmt.Errorf("%w: %s", ErrNotEditable, fieldName)
	}

	v, err := formula.ParseInput(raw, def.IsInteger)
	if err != nil {
		return 0, err
	}
	if err := s.store.SetTrackerValue(ctx, userID, fieldName, model.Day(day), v); err != nil {
		return 0, fmt.Errorf("failed to save tracker value: %w", err)
	}
	return v, nil
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

func find(fields []model.Field, name string) (model.Field, bool) {
	for _, f := range fields {
		if f.FieldName == name {
			return f, true
		}
	}
	return model.Field{}, false
}

func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
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

// ClearTracker removes every stored value of one of the user's tracker metrics.
func (s *Service) ClearTracker(ctx context.Context, userID, fieldName string) error {
	if userID == "" {
		return ErrEmptyUser
	}
	if err := s.store.DeleteTrackerRow(ctx, userID, fieldName); err != nil {
		return fmt.Errorf("failed to clear tracker %s: %w", fieldName, err)
	}
	slog.Info("Cleared tracker", "user", userID, "field", fieldName)
	return nil
}
