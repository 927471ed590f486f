package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/pace/internal/cli"
	"github.com/Veraticus/pace/internal/common"
	"github.com/Veraticus/pace/internal/formula"
	"github.com/Veraticus/pace/internal/model"
)

func parseKind(s string) (model.FieldKind, error) {
	switch kind := model.FieldKind(strings.ToLower(strings.TrimSpace(s))); kind {
	case model.KindGoal, model.KindTracker:
		return kind, nil
	default:
		return "", common.NewUserError(fmt.Sprintf("kind must be goal or tracker, got %q", s), common.ErrInvalidInput)
	}
}

func fieldsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "Manage goal and tracker field definitions",
		Long: `Goal fields make up the yearly goal sheet. A goal field is either entered
directly or calculated from a formula over other fields, for example:

  income_goal / average_commission

with an optional rounding condition (FLOOR, CEIL, ROUND or ROUNDFLOOR).

Tracker fields are daily metrics such as calls made; they are always
entered directly.`,
	}

	cmd.AddCommand(listFieldsCmd())
	cmd.AddCommand(defineFieldCmd())
	cmd.AddCommand(deleteFieldCmd())
	return cmd
}

func listFieldsCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List field definitions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter model.FieldKind
			if kind != "" {
				k, err := parseKind(kind)
				if err != nil {
					return err
				}
				filter = k
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			fields, err := a.goals.Fields(cmd.Context(), filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(fields) == 0 {
				fmt.Fprintln(out, cli.SubtleStyle.Render("No fields defined."))
				return nil
			}

			engine := formula.NewEngine(fields)
			unresolved := make(map[string]bool)
			for _, name := range engine.Unresolved() {
				unresolved[name] = true
			}
			invalid := engine.Invalid()

			w := newTable(out, "KIND", "NAME", "LABEL", "FORMULA", "CONDITION", "INPUT")
			for _, f := range fields {
				input := "editable"
				switch {
				case invalid[f.FieldName] != nil:
					input = cli.ErrorStyle.Render("invalid formula")
				case f.IsCalculated() && unresolved[f.FieldName]:
					input = cli.WarningStyle.Render("reference cycle")
				case f.IsCalculated():
					input = "calculated"
				case !f.IsEditable:
					input = "read-only"
				case f.IsInteger:
					input = "integer"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					f.Kind, f.FieldName, f.Label, f.Calculation, f.Condition, input)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "only list goal or tracker fields")
	return cmd
}

func defineFieldCmd() *cobra.Command {
	var (
		kind, label, calculation, condition string
		position                            int
		integer, readOnly                   bool
	)

	cmd := &cobra.Command{
		Use:   "define <name>",
		Short: "Create or replace a field definition",
		Example: `  pace fields define income_goal --label "Income goal"
  pace fields define total_closed_transactions --calc "income_goal / average_commission" --condition ceil
  pace fields define calls --kind tracker --integer`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(kind)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			field, err := a.goals.Define(cmd.Context(), model.Field{
				FieldName:   args[0],
				Label:       label,
				Kind:        k,
				Calculation: calculation,
				Condition:   model.Condition(condition),
				Position:    position,
				IsEditable:  !readOnly,
				IsInteger:   integer,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Defined %s field %s", field.Kind, field.FieldName)))
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(model.KindGoal), "goal or tracker")
	cmd.Flags().StringVar(&label, "label", "", "display label")
	cmd.Flags().StringVar(&calculation, "calc", "", "formula over other fields")
	cmd.Flags().StringVar(&condition, "condition", "", "rounding: floor, ceil, round or roundfloor")
	cmd.Flags().IntVar(&position, "position", 0, "display order")
	cmd.Flags().BoolVar(&integer, "integer", false, "strip decimal points from input")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "reject direct input")
	return cmd
}

func deleteFieldCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a field definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(kind)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.goals.DeleteField(cmd.Context(), k, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted %s field %s", k, args[0])))
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(model.KindGoal), "goal or tracker")
	return cmd
}

func goalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goals",
		Short: "Show and edit the yearly goal sheet",
	}

	cmd.AddCommand(showGoalsCmd())
	cmd.AddCommand(setGoalCmd())
	return cmd
}

func printSheet(cmd *cobra.Command, year int, sheet []model.Field) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatTitle(cli.ChartIcon, fmt.Sprintf("Goals %d", year)))

	w := newTable(out, "FIELD", "VALUE", "")
	for _, f := range sheet {
		label := f.Label
		if label == "" {
			label = f.FieldName
		}
		note := ""
		if f.IsCalculated() {
			note = cli.SubtleStyle.Render("= " + f.Calculation)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", label, formatAmount(f.Value), note)
	}
	return w.Flush()
}

func showGoalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the goal sheet with calculated fields",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withUserYear(cmd, func(a *app, userID string, year int) error {
				sheet, err := a.goals.Sheet(cmd.Context(), userID, year)
				if err != nil {
					return err
				}
				return printSheet(cmd, year, sheet)
			})
		},
	}
	addYearFlag(cmd)
	return cmd
}

func setGoalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <field> <value>",
		Short: "Set an editable goal and recalculate the sheet",
		Example: `  pace goals set income_goal 130,000
  pace goals set listing_closed_percentage 40`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserYear(cmd, func(a *app, userID string, year int) error {
				sheet, err := a.goals.Set(cmd.Context(), userID, year, args[0], args[1])
				if err != nil {
					return err
				}
				return printSheet(cmd, year, sheet)
			})
		},
	}
	addYearFlag(cmd)
	return cmd
}

func trackerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tracker",
		Short: "Record and show daily tracker metrics",
	}

	cmd.AddCommand(showTrackerCmd())
	cmd.AddCommand(setTrackerCmd())
	cmd.AddCommand(clearTrackerCmd())
	return cmd
}

func showTrackerCmd() *cobra.Command {
	var fieldName string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show daily tracker values",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withUserYear(cmd, func(a *app, userID string, year int) error {
				rows, err := a.goals.Tracker(cmd.Context(), userID, year)
				if err != nil {
					return err
				}

				w := newTable(cmd.OutOrStdout(), "FIELD", "DATE", "VALUE")
				for _, row := range rows {
					if fieldName != "" && row.FieldName != fieldName {
						continue
					}
					days := make([]string, 0, len(row.Values))
					for day := range row.Values {
						days = append(days, day)
					}
					sort.Strings(days)
					for _, day := range days {
						fmt.Fprintf(w, "%s\t%s\t%s\n", row.FieldName, day, formatAmount(row.Values[day]))
					}
				}
				return w.Flush()
			})
		},
	}

	addYearFlag(cmd)
	cmd.Flags().StringVar(&fieldName, "field", "", "only show one metric")
	return cmd
}

func setTrackerCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "set <field> <value>",
		Short: "Record one day's value of a tracker metric",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			userID, err := a.user()
			if err != nil {
				return err
			}

			day := a.today()
			if date != "" {
				if day, err = parseDateArg(date); err != nil {
					return err
				}
			}

			v, err := a.goals.SetTracker(cmd.Context(), userID, args[0], day, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
				fmt.Sprintf("%s on %s = %s", args[0], model.FormatDate(day), formatAmount(v))))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "day to record (default: today)")
	return cmd
}

func clearTrackerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <field>",
		Short: "Remove every recorded value of a tracker metric",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			userID, err := a.user()
			if err != nil {
				return err
			}

			if err := a.goals.ClearTracker(cmd.Context(), userID, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Cleared "+args[0]))
			return nil
		},
	}
}
