// Package scheduler runs the nightly maintenance job on a cron spec.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Veraticus/pace/internal/common"
	"github.com/Veraticus/pace/internal/service"
)

// DefaultRetry retries a run that hit a locked database.
var DefaultRetry = service.RetryOptions{
	MaxAttempts:  5,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     30 * time.Second,
	Multiplier:   2,
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron     *cron.Cron
	job      Job
	spec     string
	location *time.Location
	retry    service.RetryOptions
	timeout  time.Duration
}

// New creates a scheduler that runs job on spec, a standard five field cron
// expression evaluated in location.
func New(job Job, spec string, location *time.Location) (*Scheduler, error) {
	if location == nil {
		location = time.Local
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("%w: refresh spec %q: %w", common.ErrInvalidConfig, spec, err)
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(location)),
		job:      job,
		spec:     spec,
		location: location,
		retry:    DefaultRetry,
		timeout:  5 * time.Minute,
	}, nil
}

// Start schedules the job and blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("add nightly job: %w", err)
	}

	s.cron.Start()
	slog.Info("Scheduler started", "spec", s.spec, "timezone", s.location.String())

	<-ctx.Done()
	s.Stop()
	return nil
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("Scheduler stopped")
}

// RunOnce runs the job immediately, retrying while the database is busy.
func (s *Scheduler) RunOnce(ctx context.Context) (Report, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var report Report
	err := common.WithRetry(ctx, func() error {
		r, err := s.job.Run(ctx)
		report = r
		return err
	}, s.retry)
	return report, err
}

func (s *Scheduler) run(ctx context.Context) {
	start := time.Now()
	report, err := s.RunOnce(ctx)
	if err != nil {
		common.LogError(err, "Nightly job failed", common.Fields{"spec": s.spec})
		return
	}
	common.LogInfo("Nightly job finished", common.Fields{
		"backup":    report.Backup,
		"users":     report.Users,
		"rows":      report.Rows,
		"schedules": report.Schedules,
		"duration":  time.Since(start),
	})
}
