package dashboard_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/pace/internal/dashboard"
	"github.com/Veraticus/pace/internal/goals"
	"github.com/Veraticus/pace/internal/model"
	"github.com/Veraticus/pace/internal/schedule"
	"github.com/Veraticus/pace/internal/testutil"
)

func TestService_Summary(t *testing.T) {
	db := testutil.SetupTestDB(t, testutil.NewFieldBuilder().WithSalesSheet().Build())
	ctx := context.Background()

	goalsSvc := goals.NewService(db.Storage)
	clock := func() time.Time { return time.Date(2025, time.December, 29, 12, 0, 0, 0, time.UTC) }
	svc := dashboard.NewService(goalsSvc, schedule.NewService(db.Storage, schedule.WithClock(clock)))

	for _, step := range [][2]string{
		{"income_goal", "126000"},
		{"average_commission", "6000"},
		{model.FieldListingClosedPercentage, "50"},
	} {
		_, err := goalsSvc.Set(ctx, "u1", 2025, step[0], step[1])
		require.NoError(t, err)
	}
	_, err := goalsSvc.SetTracker(ctx, "u1", "listings_closed", model.Date(2025, time.March, 3), "4")
	require.NoError(t, err)
	_, err = goalsSvc.SetTracker(ctx, "u1", "listings_closed", model.Date(2025, time.December, 29), "2")
	require.NoError(t, err)
	_, err = goalsSvc.SetTracker(ctx, "u1", "calls", model.Date(2025, time.March, 3), "30")
	require.NoError(t, err)

	summary, err := svc.Summary(ctx, "u1", 2025, model.Date(2025, time.December, 29))
	require.NoError(t, err)

	assert.Equal(t, 2, summary.RemainingWorkingDays)
	require.Len(t, summary.Metrics, 1)
	assert.Equal(t, "listings_closed", summary.Metrics[0].FieldName)
	assert.InDelta(t, 6, summary.Metrics[0].Actual, 1e-9)
	// 21 deals at 50% is 10.5 listings, floored to 10.
	assert.InDelta(t, 10, summary.Metrics[0].Goal, 1e-9)
	assert.InDelta(t, 4, summary.Metrics[0].Remaining, 1e-9)

	_, err = svc.Summary(ctx, "", 2025, model.Date(2025, time.December, 29))
	require.ErrorIs(t, err, goals.ErrEmptyUser)
}
