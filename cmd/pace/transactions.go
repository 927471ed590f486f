package main

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/pace/internal/cli"
	"github.com/Veraticus/pace/internal/common"
	"github.com/Veraticus/pace/internal/formula"
	"github.com/Veraticus/pace/internal/income"
	"github.com/Veraticus/pace/internal/model"
)

func parseAmountArg(s string) (float64, error) {
	v, err := formula.ParseInput(s, false)
	if err != nil {
		return 0, common.NewUserError(fmt.Sprintf("amounts must be numbers such as 6,000 or 2500.50, got %q", s), err)
	}
	return v, nil
}

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"txn"},
		Short:   "Record commission deals",
		Long: `A transaction is a deal that earns a commission. It starts pending on the
day it goes under contract and is later closed or cancelled. Run
'pace income sync' afterwards to update the income tracker.`,
		Example: `  pace transactions add 6,000 --pending 2025-04-21 --description "12 Elm St"
  pace transactions close 1b4e28ba-2fa1-11d2-883f-0016d3cca427 --date 2025-05-30`,
	}

	cmd.AddCommand(addTransactionCmd())
	cmd.AddCommand(closeTransactionCmd())
	cmd.AddCommand(cancelTransactionCmd())
	cmd.AddCommand(commissionTransactionCmd())
	cmd.AddCommand(listTransactionsCmd())
	return cmd
}

// withUser opens the app and resolves the configured user.
func withUser(cmd *cobra.Command, fn func(a *app, userID string) error) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	userID, err := a.user()
	if err != nil {
		return err
	}
	return fn(a, userID)
}

func addTransactionCmd() *cobra.Command {
	var pending, description string

	cmd := &cobra.Command{
		Use:   "add <commission>",
		Short: "Record a new pending deal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmountArg(args[0])
			if err != nil {
				return err
			}
			return withUser(cmd, func(a *app, userID string) error {
				day := a.today()
				if pending != "" {
					if day, err = parseDateArg(pending); err != nil {
						return err
					}
				}

				txn, err := a.income.Add(cmd.Context(), model.Transaction{
					UserID:      userID,
					Commission:  amount,
					PendingDate: day,
					Description: description,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added %s pending %s (%s)",
					formatAmount(txn.Commission), model.FormatDate(txn.PendingDate), txn.ID)))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&pending, "pending", "", "day the deal went pending (default: today)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "note shown in listings")
	return cmd
}

func closeTransactionCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "close <id>",
		Short: "Mark a pending deal closed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd, func(a *app, userID string) error {
				day := a.today()
				if date != "" {
					var err error
					if day, err = parseDateArg(date); err != nil {
						return err
					}
				}

				txn, err := a.income.Close(cmd.Context(), userID, args[0], day)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Closed %s on %s",
					formatAmount(txn.Commission), model.FormatDate(*txn.ClosedDate))))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "closing day (default: today)")
	return cmd
}

func cancelTransactionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Mark a pending deal cancelled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd, func(a *app, userID string) error {
				if _, err := a.income.Cancel(cmd.Context(), userID, args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Cancelled "+args[0]))
				return nil
			})
		},
	}
}

func commissionTransactionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commission <id> <amount>",
		Short: "Change the commission of a deal that has not closed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmountArg(args[1])
			if err != nil {
				return err
			}
			return withUser(cmd, func(a *app, userID string) error {
				txn, err := a.income.SetCommission(cmd.Context(), userID, args[0], amount)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
					fmt.Sprintf("Commission of %s is now %s", txn.ID, formatAmount(txn.Commission))))
				return nil
			})
		},
	}
}

func listTransactionsCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List deals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter model.TransactionStatus
			if status != "" {
				s, err := model.ParseStatus(status)
				if err != nil {
					return common.NewUserError(fmt.Sprintf("status must be pending, closed or cancel, got %q", status), err)
				}
				filter = s
			}

			return withUser(cmd, func(a *app, userID string) error {
				txns, err := a.income.Transactions(cmd.Context(), userID)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				w := newTable(out, "ID", "STATUS", "PENDING", "CLOSED", "COMMISSION", "DESCRIPTION")
				total := decimal.Zero
				for _, txn := range txns {
					if filter != "" && txn.Status != filter {
						continue
					}
					closed := ""
					if txn.ClosedDate != nil {
						closed = model.FormatDate(*txn.ClosedDate)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
						txn.ID,
						txn.Status,
						model.FormatDate(txn.PendingDate),
						closed,
						formatAmount(txn.Commission),
						txn.Description)
					total = total.Add(decimal.NewFromFloat(txn.Commission))
				}
				if err := w.Flush(); err != nil {
					return err
				}
				fmt.Fprintln(out, cli.SubtleStyle.Render("Total commission: "+formatAmount(total.InexactFloat64())))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only list pending, closed or cancel deals")
	return cmd
}

func incomeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "income",
		Short: "Show and sync daily income derived from deals",
	}

	cmd.AddCommand(showIncomeCmd())
	cmd.AddCommand(syncIncomeCmd())
	return cmd
}

func showIncomeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show pending and closed income per day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withUserYear(cmd, func(a *app, userID string, year int) error {
				seqs, err := a.income.Sequences(cmd.Context(), userID, year, income.Options{})
				if err != nil {
					return err
				}
				return printIncome(cmd, year, seqs)
			})
		},
	}
	addYearFlag(cmd)
	return cmd
}

func printIncome(cmd *cobra.Command, year int, seqs []model.IncomeSequence) error {
	series := make(map[string]map[string]string, len(seqs))
	for _, seq := range seqs {
		series[seq.Key] = seq.Values
	}
	pending, closed := series[model.IncomeKeyPending], series[model.IncomeKeyClosed]

	daySet := make(map[string]bool, len(pending)+len(closed))
	for day := range pending {
		daySet[day] = true
	}
	for day := range closed {
		daySet[day] = true
	}
	days := make([]string, 0, len(daySet))
	for day := range daySet {
		days = append(days, day)
	}
	sort.Strings(days)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatTitle(cli.MoneyIcon, fmt.Sprintf("Income %d", year)))
	if len(days) == 0 {
		fmt.Fprintln(out, cli.SubtleStyle.Render("No deals this year."))
		return nil
	}

	// Consecutive days with the same pending amount and nothing closed collapse into one line.
	w := newTable(out, "FROM", "THROUGH", "PENDING", "CLOSED")
	totalClosed := decimal.Zero
	for i := 0; i < len(days); {
		j := i
		for j+1 < len(days) && closed[days[i]] == "" && closed[days[j+1]] == "" && pending[days[j+1]] == pending[days[i]] {
			j++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			days[i], days[j], amountString(pending[days[i]]), amountString(closed[days[i]]))
		if v, err := decimal.NewFromString(closed[days[i]]); err == nil {
			totalClosed = totalClosed.Add(v)
		}
		i = j + 1
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(out, cli.InfoStyle.Render("Closed this year: "+formatAmount(totalClosed.InexactFloat64())))
	return nil
}

func amountString(s string) string {
	if s == "" {
		return "-"
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	return formatAmount(v.InexactFloat64())
}

func syncIncomeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Write the income series into the tracker",
		Long: `Regenerate the year's pending and closed income from the recorded deals and
merge them into the current_pending_income and closed_income tracker metrics.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withUserYear(cmd, func(a *app, userID string, year int) error {
				rows, err := a.income.Sync(cmd.Context(), userID, year)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
					fmt.Sprintf("Synced income for %d (%d tracker rows)", year, len(rows))))
				return nil
			})
		},
	}
	addYearFlag(cmd)
	return cmd
}
