package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/pace/internal/cli"
	"github.com/Veraticus/pace/internal/model"
)

func dashboardCmd() *cobra.Command {
	var cutoff string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Compare tracked progress with the goal sheet",
		Long: `Show, for every goal that has a tracker metric of the same name, how much
has been achieved by the cutoff day and how much is left per remaining
working day and work week.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withUserYear(cmd, func(a *app, userID string, year int) error {
				day := a.today()
				if cutoff != "" {
					var err error
					if day, err = parseDateArg(cutoff); err != nil {
						return err
					}
				}

				summary, err := a.dashboard.Summary(cmd.Context(), userID, year, day)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, cli.FormatTitle(cli.ChartIcon, fmt.Sprintf("Dashboard %d as of %s", year, model.FormatDate(summary.Cutoff))))
				fmt.Fprintf(out, "%s working days left (%.1f weeks)\n\n",
					cli.InfoStyle.Render(fmt.Sprint(summary.RemainingWorkingDays)), summary.RemainingWorkWeeks)

				if len(summary.Metrics) == 0 {
					fmt.Fprintln(out, cli.SubtleStyle.Render("No goals with matching tracker metrics."))
					return nil
				}

				w := newTable(out, "GOAL", "PROGRESS", "ACTUAL", "TARGET", "LEFT", "PER DAY", "PER WEEK")
				for _, m := range summary.Metrics {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						cli.BoldStyle.Render(m.Label),
						cli.ProgressBar(m.Percent, 20),
						formatAmount(m.Actual),
						formatAmount(m.Goal),
						formatAmount(m.Remaining),
						formatAmount(m.PerDay),
						formatAmount(m.PerWeek))
				}
				return w.Flush()
			})
		},
	}

	addYearFlag(cmd)
	cmd.Flags().StringVar(&cutoff, "cutoff", "", "count progress through this day (default: today)")
	return cmd
}
