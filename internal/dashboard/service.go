package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/pace/internal/goals"
	"github.com/Veraticus/pace/internal/schedule"
)

// Service loads a user's sheet, tracker and schedule and builds the summary.
type Service struct {
	goals     *goals.Service
	schedules *schedule.Service
}

// NewService creates a dashboard service over the goals and schedule services.
func NewService(goalsSvc *goals.Service, schedules *schedule.Service) *Service {
	return &Service{goals: goalsSvc, schedules: schedules}
}

// Summary builds the dashboard of userID's year as of cutoff.
func (s *Service) Summary(ctx context.Context, userID string, year int, cutoff time.Time) (*Summary, error) {
	sheet, err := s.goals.Sheet(ctx, userID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to load goals: %w", err)
	}
	tracker, err := s.goals.Tracker(ctx, userID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracker: %w", err)
	}
	state, err := s.schedules.Load(ctx, userID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}

	summary := Build(Input{
		Cutoff:     cutoff,
		Goals:      sheet,
		Tracker:    tracker,
		Exceptions: state.Exceptions,
		Year:       year,
		Weekdays:   state.Weekdays,
	})
	return &summary, nil
}
