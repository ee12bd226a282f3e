package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/aggregate"
)

func newDashboardCmd(r *runner) *cobra.Command {
	var (
		year     int
		trend    bool
		spending bool
	)
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show income, expenses and recent activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := r.app.Dashboard()
			if err != nil {
				return err
			}
			if err := s.Load(cmd.Context()); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			sum := s.Summary()

			tw := newTable(out)
			fmt.Fprintf(tw, "Total income\t%s\n", okStyle.Render(money(sum.TotalIncome)))
			fmt.Fprintf(tw, "Total expenses\t%s\n", errorStyle.Render(money(sum.TotalExpenses)))
			net := okStyle
			if sum.NetSavings.IsNegative() {
				net = errorStyle
			}
			fmt.Fprintf(tw, "Net savings\t%s\n", net.Render(money(sum.NetSavings)))
			fmt.Fprintf(tw, "Savings rate\t%s\n", percent(sum.SavingsRate))
			fmt.Fprintf(tw, "Transactions\t%d\n", sum.Count)
			tw.Flush()

			fmt.Fprintln(out)
			fmt.Fprintln(out, titleStyle.Render("Recent transactions"))
			printTransactions(out, sum.Recent, nil)

			if spending {
				fmt.Fprintln(out)
				fmt.Fprintln(out, titleStyle.Render("Spending by category"))
				printSpending(cmd, s.Spending())
			}
			if trend {
				if year == 0 {
					year = time.Now().Year()
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Monthly trend %d", year)))
				printTrend(cmd, s.Trend(year))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&trend, "trend", false, "include the monthly trend")
	cmd.Flags().IntVar(&year, "year", 0, "trend year (default current year)")
	cmd.Flags().BoolVar(&spending, "spending", false, "include spending by category")
	return cmd
}

func printSpending(cmd *cobra.Command, totals []aggregate.CategoryTotal) {
	if len(totals) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("No expenses yet."))
		return
	}
	tw := newTable(cmd.OutOrStdout())
	for _, c := range totals {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("#%d", c.CategoryID)
		}
		fmt.Fprintf(tw, "%s\t%s\n", name, money(c.Amount))
	}
	tw.Flush()
}

func printTrend(cmd *cobra.Command, rows []aggregate.MonthTotals) {
	tw := newTable(cmd.OutOrStdout())
	fmt.Fprintln(tw, "MONTH\tINCOME\tEXPENSES\tSAVINGS")
	for _, m := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Month.String()[:3], money(m.Income), money(m.Expenses), money(m.Savings))
	}
	tw.Flush()
}
