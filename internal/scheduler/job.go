package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/pace/internal/common"
	"github.com/Veraticus/pace/internal/model"
	"github.com/Veraticus/pace/internal/storage"
)

// Job is the unit of work the scheduler runs on its cron spec.
type Job interface {
	Run(ctx context.Context) (Report, error)
}

// Backuper takes an automatic backup labelled with operation.
type Backuper interface {
	AutoBackup(ctx context.Context, operation string) (*storage.BackupInfo, error)
}

// UserLister lists the users that own commission deals.
type UserLister interface {
	ListTransactionUsers(ctx context.Context) ([]string, error)
}

// IncomeSyncer rewrites a user's income tracker rows from their deals.
type IncomeSyncer interface {
	Sync(ctx context.Context, userID string, year int) ([]model.TrackerRow, error)
}

// TotalsRefresher recomputes cached schedule totals and reports how many
// schedules it examined.
type TotalsRefresher interface {
	RefreshTotals(ctx context.Context) (int, error)
}

// Report summarizes one run of the nightly job.
type Report struct {
	Backup    string
	Year      int
	Users     int
	Rows      int
	Schedules int
}

// Nightly backs up the database, syncs every user's income tracker rows for
// the current year and repairs cached schedule totals.
type Nightly struct {
	Backups   Backuper
	Users     UserLister
	Income    IncomeSyncer
	Schedules TotalsRefresher
	Now       func() time.Time
}

// Run performs one nightly pass. Backups is optional; an in-memory
// database has nothing to snapshot.
func (n *Nightly) Run(ctx context.Context) (Report, error) {
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	report := Report{Year: now().Year()}

	if n.Backups != nil {
		info, err := n.Backups.AutoBackup(ctx, "nightly")
		if err != nil {
			return report, err
		}
		report.Backup = info.ID
	}

	users, err := n.Users.ListTransactionUsers(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list users: %w", err)
	}
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		rows, err := n.Income.Sync(ctx, user, report.Year)
		if err != nil {
			return report, fmt.Errorf("sync income for %s: %w", user, err)
		}
		report.Users++
		report.Rows += len(rows)
		common.LogDebug("Synced nightly income", common.Fields{"user": user, "rows": len(rows)})
	}

	if report.Schedules, err = n.Schedules.RefreshTotals(ctx); err != nil {
		return report, err
	}
	return report, nil
}
