package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/pace/internal/api"
	"github.com/Veraticus/pace/internal/common"
	"github.com/Veraticus/pace/internal/config"
	"github.com/Veraticus/pace/internal/scheduler"
	"github.com/Veraticus/pace/internal/storage"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API and run the nightly maintenance job",
		Long: `Run the read-only HTTP API and the nightly job. Each night the job takes an
automatic backup, syncs every user's income tracker rows for the current year
and repairs stale cached schedule totals. Both stop on interrupt.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", config.DefaultServerAddr, "listen address")
	cmd.Flags().String("refresh-spec", config.DefaultRefreshSpec, "cron spec for the nightly job")
	cmd.Flags().Bool("refresh-now", false, "run the nightly job once before serving")
	_ = viper.BindPFlag(config.KeyServerAddr, cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag(config.KeyRefreshSpec, cmd.Flags().Lookup("refresh-spec"))
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	loc := a.cfg.Location
	nightly := &scheduler.Nightly{
		Users:     a.store,
		Income:    a.income,
		Schedules: a.schedules,
		Now:       func() time.Time { return time.Now().In(loc) },
	}
	bm, err := a.store.NewBackupManager()
	switch {
	case errors.Is(err, storage.ErrInMemoryDatabase):
		common.LogDebug("Nightly backups disabled", common.Fields{"database": a.cfg.DatabasePath})
	case err != nil:
		return err
	default:
		nightly.Backups = bm
	}

	runner, err := scheduler.New(nightly, a.cfg.RefreshSpec, loc)
	if err != nil {
		return err
	}

	if now, _ := cmd.Flags().GetBool("refresh-now"); now {
		if _, err := runner.RunOnce(ctx); err != nil {
			return fmt.Errorf("initial nightly run failed: %w", err)
		}
	}

	server := api.NewServer(api.Services{
		Schedules: a.schedules,
		Goals:     a.goals,
		Income:    a.income,
		Dashboard: a.dashboard,
	}, func() time.Time { return time.Now().In(loc) })

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx, a.cfg.ServerAddr)
	})
	g.Go(func() error {
		return runner.Start(gctx)
	})

	return g.Wait()
}
