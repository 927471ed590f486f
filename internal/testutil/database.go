// Package testutil provides test databases and seed builders for pace tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/Veraticus/pace/internal/service"
	"github.com/Veraticus/pace/internal/storage"
)

// TestDB is a migrated in-memory database with the seeded field definitions.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
	Fields  Fields
}

// SetupTestDB creates a new in-memory test database seeded with fields.
// Cleanup is registered on t.
//
// Example:
//
//	db := testutil.SetupTestDB(t,
//		testutil.NewFieldBuilder().
//			WithSalesSheet().
//			Build(),
//	)
func SetupTestDB(t *testing.T, fields Fields) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	for i := range fields {
		if err := store.SaveField(ctx, &fields[i]); err != nil {
			t.Fatalf("failed to seed field %q: %v", fields[i].FieldName, err)
		}
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		Fields:  fields,
		t:       t,
	}
}

// WithTransaction runs fn inside a database transaction that is always rolled back.
func (db *TestDB) WithTransaction(fn func(tx service.Tx) error) error {
	tx, err := db.Storage.BeginTx(context.Background())
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	return fn(tx)
}

// MustGoalValues returns a user's stored goal values or fails the test.
func (db *TestDB) MustGoalValues(userID string, year int) map[string]float64 {
	db.t.Helper()
	values, err := db.Storage.GetGoalValues(context.Background(), userID, year)
	if err != nil {
		db.t.Fatalf("failed to load goal values: %v", err)
	}
	return values
}
