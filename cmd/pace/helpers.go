package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/pace/internal/cli"
	"github.com/Veraticus/pace/internal/common"
	"github.com/Veraticus/pace/internal/config"
	"github.com/Veraticus/pace/internal/dashboard"
	"github.com/Veraticus/pace/internal/goals"
	"github.com/Veraticus/pace/internal/income"
	"github.com/Veraticus/pace/internal/model"
	"github.com/Veraticus/pace/internal/schedule"
	"github.com/Veraticus/pace/internal/storage"
)

// app bundles the configuration, the opened database and the services built on it.
type app struct {
	cfg       *config.Config
	store     *storage.SQLiteStorage
	schedules *schedule.Service
	goals     *goals.Service
	income    *income.Service
	dashboard *dashboard.Service
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, common.NewUserError("configuration is invalid", err)
	}
	return cfg, nil
}

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := initStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	loc := cfg.Location
	schedules := schedule.NewService(store, schedule.WithClock(func() time.Time { return time.Now().In(loc) }))
	goalsSvc := goals.NewService(store)
	return &app{
		cfg:       cfg,
		store:     store,
		schedules: schedules,
		goals:     goalsSvc,
		income:    income.NewService(store),
		dashboard: dashboard.NewService(goalsSvc, schedules),
	}, nil
}

func (a *app) close() {
	_ = a.store.Close()
}

func (a *app) today() time.Time {
	return model.Day(time.Now().In(a.cfg.Location))
}

func (a *app) user() (string, error) {
	userID, err := a.cfg.RequireUser()
	if err != nil {
		return "", common.NewUserError("no user selected: pass --user or set user.id in the config file", err)
	}
	return userID, nil
}

// year returns the --year flag, defaulting to the current year.
func (a *app) year(cmd *cobra.Command) int {
	if y, _ := cmd.Flags().GetInt("year"); y != 0 {
		return y
	}
	return a.today().Year()
}

// withUserYear opens the app and resolves the user and year for a command.
func withUserYear(cmd *cobra.Command, fn func(a *app, userID string, year int) error) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	userID, err := a.user()
	if err != nil {
		return err
	}
	return fn(a, userID, a.year(cmd))
}

func addYearFlag(cmd *cobra.Command) {
	cmd.Flags().Int("year", 0, "calendar year (default: current year)")
}

func parseDateArg(s string) (time.Time, error) {
	d, err := model.ParseDate(s)
	if err != nil {
		return time.Time{}, common.NewUserError(fmt.Sprintf("dates must look like 2025-03-31, got %q", s), err)
	}
	return d, nil
}

// confirm asks before a destructive command unless --yes was passed.
func confirm(cmd *cobra.Command, question string) (bool, error) {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return true, nil
	}
	return cli.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout()).Confirm(cmd.Context(), question)
}

func addYesFlag(cmd *cobra.Command) {
	cmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
}
