package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/pace/internal/common"
	"github.com/Veraticus/pace/internal/model"
)

func TestSQLiteStorage_FieldOperations(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	fields := []*model.Field{
		{FieldName: "sales_goal", Label: "Sales goal", Kind: model.KindGoal, Position: 2, IsEditable: true},
		{FieldName: "listings", Label: "Listings", Kind: model.KindGoal, Position: 1, IsEditable: true, IsInteger: true},
		{
			FieldName:   "listings_needed",
			Kind:        model.KindGoal,
			Position:    3,
			Calculation: "sales_goal / 2",
			Condition:   model.ConditionCeil,
		},
		{FieldName: "calls", Label: "Calls", Kind: model.KindTracker, IsEditable: true},
	}
	for _, f := range fields {
		require.NoError(t, store.SaveField(ctx, f))
		assert.NotZero(t, f.ID)
	}

	goals, err := store.ListFields(ctx, model.KindGoal)
	require.NoError(t, err)
	require.Len(t, goals, 3)
	assert.Equal(t, []string{"listings", "sales_goal", "listings_needed"},
		[]string{goals[0].FieldName, goals[1].FieldName, goals[2].FieldName})
	assert.True(t, goals[0].IsInteger)
	assert.True(t, goals[0].IsEditable)
	assert.Equal(t, "sales_goal / 2", goals[2].Calculation)
	assert.Equal(t, model.ConditionCeil, goals[2].Condition)
	assert.False(t, goals[2].IsEditable)

	all, err := store.ListFields(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	// Upsert keeps the id and replaces the definition.
	id := fields[0].ID
	fields[0].Label = "Annual sales"
	fields[0].Condition = model.ConditionRound
	require.NoError(t, store.SaveField(ctx, fields[0]))
	assert.Equal(t, id, fields[0].ID)

	goals, err = store.ListFields(ctx, model.KindGoal)
	require.NoError(t, err)
	assert.Equal(t, "Annual sales", goals[1].Label)
	assert.Equal(t, model.ConditionRound, goals[1].Condition)

	// The same name may exist once per kind.
	trackerListings := &model.Field{FieldName: "listings", Kind: model.KindTracker, IsEditable: true}
	require.NoError(t, store.SaveField(ctx, trackerListings))
	assert.NotEqual(t, goals[0].ID, trackerListings.ID)

	require.NoError(t, store.DeleteField(ctx, model.KindTracker, "calls"))
	require.ErrorIs(t, store.DeleteField(ctx, model.KindTracker, "calls"), common.ErrNotFound)

	goals, err = store.ListFields(ctx, model.KindGoal)
	require.NoError(t, err)
	assert.Len(t, goals, 3)
}

func TestSQLiteStorage_SaveFieldValidation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	tests := []struct {
		field *model.Field
		name  string
	}{
		{name: "nil", field: nil},
		{name: "empty name", field: &model.Field{Kind: model.KindGoal}},
		{name: "unknown kind", field: &model.Field{FieldName: "x", Kind: "weekly"}},
		{name: "unknown condition", field: &model.Field{FieldName: "x", Kind: model.KindGoal, Condition: "TRUNC"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, store.SaveField(ctx, tt.field))
		})
	}
}

func TestSQLiteStorage_GoalValues(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	values, err := store.GetGoalValues(ctx, "u1", 2025)
	require.NoError(t, err)
	assert.Empty(t, values)

	require.NoError(t, store.SaveGoalValues(ctx, "u1", 2025, map[string]float64{"a": 15, "b": 2.5}))
	require.NoError(t, store.SaveGoalValues(ctx, "u1", 2025, map[string]float64{"a": 20}))
	require.NoError(t, store.SaveGoalValues(ctx, "u1", 2024, map[string]float64{"a": 1}))

	values, err = store.GetGoalValues(ctx, "u1", 2025)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"a": 20, "b": 2.5}, values)

	_, err = store.GetGoalValues(ctx, "", 2025)
	require.ErrorIs(t, err, ErrEmptyString)
}

func TestSQLiteStorage_TrackerOperations(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.SetTrackerValue(ctx, "u1", "calls", model.Date(2025, time.March, 3), 4))
	require.NoError(t, store.SetTrackerValue(ctx, "u1", "calls", model.Date(2025, time.March, 4), 6))
	require.NoError(t, store.SetTrackerValue(ctx, "u1", "calls", model.Date(2025, time.March, 4), 7))
	require.NoError(t, store.SetTrackerValue(ctx, "u2", "calls", model.Date(2025, time.March, 4), 100))

	require.NoError(t, store.ReplaceTrackerRow(ctx, "u1", model.TrackerRow{
		FieldName: model.IncomeKeyClosed,
		Values:    map[string]float64{"2025-05-30": 60, "2026-01-02": 10},
	}))

	rows, err := store.ListTrackerRows(ctx, "u1", model.YearStart(2025), model.YearEnd(2025))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "calls", rows[0].FieldName)
	assert.Equal(t, map[string]float64{"2025-03-03": 4, "2025-03-04": 7}, rows[0].Values)
	assert.Equal(t, model.IncomeKeyClosed, rows[1].FieldName)
	assert.Equal(t, map[string]float64{"2025-05-30": 60}, rows[1].Values)

	require.NoError(t, store.DeleteTrackerRow(ctx, "u1", "calls"))
	rows, err = store.ListTrackerRows(ctx, "u1", model.YearStart(2025), model.YearEnd(2025))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.IncomeKeyClosed, rows[0].FieldName)

	rows, err = store.ListTrackerRows(ctx, "u2", model.YearStart(2025), model.YearEnd(2025))
	require.NoError(t, err)
	require.Len(t, rows, 1, "other users keep their values")

	_, err = store.ListTrackerRows(ctx, "u1", model.YearEnd(2025), model.YearStart(2025))
	require.ErrorIs(t, err, ErrInvalidDateRange)

	err = store.ReplaceTrackerRow(ctx, "u1", model.TrackerRow{
		FieldName: "calls",
		Values:    map[string]float64{"03/04/2025": 1},
	})
	require.Error(t, err)
}
