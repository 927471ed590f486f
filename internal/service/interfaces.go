// Package service defines the persistence ports the calculators' services depend on.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/pace/internal/model"
)

// ScheduleStore persists schedules, exceptions and history segments.
// Lookups of a missing schedule return common.ErrNotFound.
type ScheduleStore interface {
	GetSchedule(ctx context.Context, userID string, year int) (*model.Schedule, error)
	ListSchedules(ctx context.Context) ([]model.Schedule, error)
	SaveSchedule(ctx context.Context, schedule *model.Schedule) error
	DeleteSchedule(ctx context.Context, userID string, year int) error

	ListExceptions(ctx context.Context, userID string, year int) ([]model.ScheduleException, error)
	CreateException(ctx context.Context, exception *model.ScheduleException) error
	DeleteException(ctx context.Context, userID string, id int64) error
	DeleteExceptions(ctx context.Context, userID string, year int) error

	// ListHistory returns segments ordered by end date ascending.
	ListHistory(ctx context.Context, userID string, year int) ([]model.ScheduleHistorySegment, error)
	CreateHistorySegment(ctx context.Context, segment *model.ScheduleHistorySegment) error
	DeleteHistory(ctx context.Context, userID string, year int) error
}

// FieldStore persists field definitions and per-user goal values.
type FieldStore interface {
	// ListFields returns definitions ordered by position, then name.
	ListFields(ctx context.Context, kind model.FieldKind) ([]model.Field, error)
	SaveField(ctx context.Context, field *model.Field) error
	DeleteField(ctx context.Context, kind model.FieldKind, fieldName string) error

	GetGoalValues(ctx context.Context, userID string, year int) (map[string]float64, error)
	SaveGoalValues(ctx context.Context, userID string, year int, values map[string]float64) error
}

// TrackerStore persists daily metric values.
type TrackerStore interface {
	ListTrackerRows(ctx context.Context, userID string, from, to time.Time) ([]model.TrackerRow, error)
	SetTrackerValue(ctx context.Context, userID, fieldName string, day time.Time, value float64) error
	// ReplaceTrackerRow overwrites the given dates of one row, leaving other dates alone.
	ReplaceTrackerRow(ctx context.Context, userID string, row model.TrackerRow) error
	DeleteTrackerRow(ctx context.Context, userID, fieldName string) error
}

// TransactionStore persists commission deals.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	UpdateTransaction(ctx context.Context, txn *model.Transaction) error
	ListTransactions(ctx context.Context, userID string) ([]model.Transaction, error)
	ListTransactionUsers(ctx context.Context) ([]string, error)
}

// Repositories groups every store operation usable inside or outside a database transaction.
type Repositories interface {
	ScheduleStore
	FieldStore
	TrackerStore
	TransactionStore
}

// Storage is the full persistence layer.
type Storage interface {
	Repositories

	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Tx, error)
	Close() error
}

// Tx is a database transaction exposing the same repositories.
type Tx interface {
	Repositories

	Commit() error
	Rollback() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
