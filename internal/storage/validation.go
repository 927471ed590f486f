// Package storage provides the data persistence layer for the pace application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Veraticus/pace/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidDateRange   = errors.New("start date must be before end date")
	ErrInvalidYear        = errors.New("invalid year")
	ErrInvalidSchedule    = errors.New("invalid schedule")
	ErrInvalidException   = errors.New("invalid schedule exception")
	ErrInvalidSegment     = errors.New("invalid schedule history segment")
	ErrInvalidField       = errors.New("invalid field")
	ErrInvalidTransaction = errors.New("invalid transaction")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateUserYear validates the key shared by schedule, exception and goal rows.
func validateUserYear(userID string, year int) error {
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if year < 1900 || year > 9999 {
		return fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}
	return nil
}

func validateSchedule(sched *model.Schedule) error {
	if sched == nil {
		return fmt.Errorf("%w: schedule", ErrNilParameter)
	}
	if err := validateUserYear(sched.UserID, sched.Year); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSchedule, err)
	}
	if sched.WorkingDays < 0 || sched.NonWorkingDays < 0 {
		return fmt.Errorf("%w: negative day counts", ErrInvalidSchedule)
	}
	return nil
}

func validateException(exc *model.ScheduleException) error {
	if exc == nil {
		return fmt.Errorf("%w: exception", ErrNilParameter)
	}
	if err := validateUserYear(exc.UserID, exc.Year); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidException, err)
	}
	if err := exc.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidException, err)
	}
	return nil
}

func validateSegment(seg *model.ScheduleHistorySegment) error {
	if seg == nil {
		return fmt.Errorf("%w: segment", ErrNilParameter)
	}
	if err := validateUserYear(seg.UserID, seg.Year); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSegment, err)
	}
	if seg.EndDate.Before(seg.StartDate) {
		return fmt.Errorf("%w: %w", ErrInvalidSegment, ErrInvalidDateRange)
	}
	return nil
}

func validateField(field *model.Field) error {
	if field == nil {
		return fmt.Errorf("%w: field", ErrNilParameter)
	}
	if err := validateString(field.FieldName, "field_name"); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidField, err)
	}
	if field.Kind != model.KindGoal && field.Kind != model.KindTracker {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidField, field.Kind)
	}
	if _, err := model.ParseCondition(string(field.Condition)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidField, err)
	}
	return nil
}

func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if err := validateString(txn.UserID, "userID"); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	if math.IsNaN(txn.Commission) || math.IsInf(txn.Commission, 0) {
		return fmt.Errorf("%w: commission must be finite", ErrInvalidTransaction)
	}
	if txn.PendingDate.IsZero() {
		return fmt.Errorf("%w: missing pending date", ErrInvalidTransaction)
	}
	if !txn.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransaction, txn.Status)
	}
	if txn.Status == model.StatusClosed && txn.ClosedDate == nil {
		return fmt.Errorf("%w: closed transaction needs a closed date", ErrInvalidTransaction)
	}
	return nil
}
