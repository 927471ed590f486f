package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/pace/internal/cli"
	"github.com/Veraticus/pace/internal/common"
	"github.com/Veraticus/pace/internal/model"
	"github.com/Veraticus/pace/internal/schedule"
)

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show and edit the working-day schedule",
		Long: `A schedule is the set of weekdays you work in a year. Changing it only
affects the rest of the year; days already elapsed keep the counts of the
selection that was in force.

Weekdays are written as seven 0/1 characters starting on Monday, so
1111100 means Monday to Friday.`,
		Example: `  pace schedule show --year 2025
  pace schedule set 1111110
  pace schedule preview 1111111`,
	}

	cmd.AddCommand(showScheduleCmd())
	cmd.AddCommand(setScheduleCmd())
	cmd.AddCommand(previewScheduleCmd())
	cmd.AddCommand(historyScheduleCmd())
	cmd.AddCommand(resetScheduleCmd())
	return cmd
}

func parseWeekdaysArg(s string) (model.Weekdays, error) {
	w, err := model.ParseWeekdays(s)
	if err != nil {
		return w, common.NewUserError(fmt.Sprintf("weekdays must be seven 0/1 characters such as 1111100, got %q", s), err)
	}
	return w, nil
}

func totalsText(weekdays model.Weekdays, totals model.DayCounts) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Weekdays:         %s\n", strings.Join(weekdays.Labels(), " "))
	fmt.Fprintf(&b, "Working days:     %s\n", cli.InfoStyle.Render(strconv.Itoa(totals.WorkingDays)))
	fmt.Fprintf(&b, "Non-working days: %d\n", totals.NonWorkingDays)
	return b.String()
}

func printTotals(cmd *cobra.Command, weekdays model.Weekdays, totals model.DayCounts) {
	fmt.Fprint(cmd.OutOrStdout(), totalsText(weekdays, totals))
}

func showScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the schedule and yearly totals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withUserYear(cmd, func(a *app, userID string, year int) error {
				state, err := a.schedules.Load(cmd.Context(), userID, year)
				if err != nil {
					return err
				}

				var b strings.Builder
				if state.Schedule == nil {
					b.WriteString(cli.SubtleStyle.Render("No schedule saved yet; showing the default.") + "\n")
				}
				b.WriteString(totalsText(state.Weekdays, state.Totals))
				fmt.Fprintf(&b, "Exceptions:       %d\n", len(state.Exceptions))
				fmt.Fprintf(&b, "History segments: %d", len(state.History))

				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox(
					fmt.Sprintf("%s Schedule %d", cli.CalendarIcon, year), b.String()))
				return nil
			})
		},
	}
	addYearFlag(cmd)
	return cmd
}

func setScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <weekdays>",
		Short: "Save the weekday selection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			weekdays, err := parseWeekdaysArg(args[0])
			if err != nil {
				return err
			}
			return withUserYear(cmd, func(a *app, userID string, year int) error {
				sched, err := a.schedules.Save(cmd.Context(), schedule.SaveRequest{
					UserID:   userID,
					Year:     year,
					Weekdays: weekdays,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Saved schedule for %d", year)))
				printTotals(cmd, sched.Weekdays, sched.DayCounts)
				return nil
			})
		},
	}
	addYearFlag(cmd)
	return cmd
}

func previewScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview <weekdays>",
		Short: "Show the totals a weekday selection would give without saving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			weekdays, err := parseWeekdaysArg(args[0])
			if err != nil {
				return err
			}
			return withUserYear(cmd, func(a *app, userID string, year int) error {
				state, err := a.schedules.Load(cmd.Context(), userID, year)
				if err != nil {
					return err
				}
				totals := a.schedules.TotalWithHistory(cmd.Context(), userID, year, weekdays, state.Exceptions)
				printTotals(cmd, weekdays, totals)
				return nil
			})
		},
	}
	addYearFlag(cmd)
	return cmd
}

func historyScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the frozen periods of earlier selections",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withUserYear(cmd, func(a *app, userID string, year int) error {
				state, err := a.schedules.Load(cmd.Context(), userID, year)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(state.History) == 0 {
					fmt.Fprintln(out, cli.SubtleStyle.Render("No schedule history."))
					return nil
				}

				w := newTable(out, "FROM", "THROUGH", "WEEKDAYS", "WORKING", "NON-WORKING")
				for _, seg := range state.History {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n",
						model.FormatDate(seg.StartDate),
						model.FormatDate(seg.EndDate),
						strings.Join(seg.Weekdays.Labels(), " "),
						seg.WorkingDays,
						seg.NonWorkingDays)
				}
				return w.Flush()
			})
		},
	}
	addYearFlag(cmd)
	return cmd
}

func resetScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the schedule, exceptions and history of a year",
		Long: `Delete the schedule, exceptions and history of a year.

An automatic backup is taken first; see 'pace backup list'.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withUserYear(cmd, func(a *app, userID string, year int) error {
				ok, err := confirm(cmd, fmt.Sprintf("Delete the %d schedule, exceptions and history?", year))
				if err != nil || !ok {
					return err
				}

				bm, err := a.store.NewBackupManager()
				if err != nil {
					return fmt.Errorf("failed to create backup manager: %w", err)
				}
				info, err := bm.AutoBackup(cmd.Context(), "schedule-reset")
				if err != nil {
					return fmt.Errorf("failed to back up before reset: %w", err)
				}

				if err := a.schedules.Reset(cmd.Context(), userID, year); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
					fmt.Sprintf("Reset schedule for %d (backup %s)", year, info.ID)))
				return nil
			})
		},
	}
	addYearFlag(cmd)
	addYesFlag(cmd)
	return cmd
}

func exceptionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exceptions",
		Short: "Manage schedule exceptions",
		Long: `Exceptions force a run of days on or off regardless of the weekday
selection, such as a vacation or a weekend open house. The end date is
exclusive, so an exception ending on January 1 still belongs to the old
year. A range crossing into the next year must be added as one exception
per year. Exceptions of one year may not overlap.`,
		Example: `  # A week off
  pace exceptions add 2025-08-04 2025-08-11 --reason vacation

  # Working a Saturday
  pace exceptions add 2025-09-13 2025-09-14 --on`,
	}

	cmd.AddCommand(addExceptionCmd())
	cmd.AddCommand(listExceptionsCmd())
	cmd.AddCommand(deleteExceptionCmd())
	return cmd
}

func addExceptionCmd() *cobra.Command {
	var (
		on     bool
		reason string
	)

	cmd := &cobra.Command{
		Use:   "add <from> <to>",
		Short: "Add an exception covering [from, to)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseDateArg(args[0])
			if err != nil {
				return err
			}
			to, err := parseDateArg(args[1])
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			userID, err := a.user()
			if err != nil {
				return err
			}

			exc, err := a.schedules.AddException(cmd.Context(), model.ScheduleException{
				UserID:   userID,
				FromDate: from,
				ToDate:   to,
				IsDayOn:  on,
				Reason:   reason,
			})
			if err != nil {
				return err
			}

			kind := "off"
			if exc.IsDayOn {
				kind = "on"
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added exception %d: %s through %s %s",
				exc.ID, model.FormatDate(exc.FromDate), model.FormatDate(exc.LastDay()), kind)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&on, "on", false, "force the days on instead of off")
	cmd.Flags().StringVar(&reason, "reason", "", "note shown in listings")
	return cmd
}

func listExceptionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the exceptions of a year",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withUserYear(cmd, func(a *app, userID string, year int) error {
				state, err := a.schedules.Load(cmd.Context(), userID, year)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(state.Exceptions) == 0 {
					fmt.Fprintln(out, cli.SubtleStyle.Render("No exceptions."))
					return nil
				}

				w := newTable(out, "ID", "FROM", "THROUGH", "DAYS", "REASON")
				for _, exc := range state.Exceptions {
					kind := "off"
					if exc.IsDayOn {
						kind = "on"
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
						exc.ID,
						model.FormatDate(exc.FromDate),
						model.FormatDate(exc.LastDay()),
						kind,
						exc.Reason)
				}
				return w.Flush()
			})
		},
	}
	addYearFlag(cmd)
	return cmd
}

func deleteExceptionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an exception",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return common.NewUserError(fmt.Sprintf("exception ids are numbers, got %q", args[0]), err)
			}
			return withUserYear(cmd, func(a *app, userID string, year int) error {
				if err := a.schedules.DeleteException(cmd.Context(), userID, year, id); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted exception %d", id)))
				return nil
			})
		},
	}
	addYearFlag(cmd)
	return cmd
}
