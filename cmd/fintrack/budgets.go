package main

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"fintrack/internal/core"
	"fintrack/internal/screens"
)

type budgetFlags struct {
	category int64
	amount   string
	period   string
}

func (f *budgetFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.category, "category", 0, "expense category id")
	cmd.Flags().StringVar(&f.amount, "amount", "", "budget amount")
	cmd.Flags().StringVar(&f.period, "period", string(core.Monthly), "weekly, monthly or yearly")
}

func (f budgetFlags) apply(cmd *cobra.Command, s *screens.Budgets) error {
	fl := cmd.Flags()
	var amount decimal.Decimal
	if fl.Changed("amount") {
		a, err := core.ParseAmount(f.amount)
		if err != nil {
			return err
		}
		amount = a
	}
	s.UpdateDraft(func(d *core.BudgetDraft) {
		if fl.Changed("category") {
			d.CategoryID = f.category
		}
		if fl.Changed("amount") {
			d.Amount = amount
		}
		if fl.Changed("period") {
			d.Period = core.Period(strings.ToLower(f.period))
		}
	})
	return nil
}

func newBudgetsCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budgets",
		Short: "Show and manage spending budgets",
	}
	cmd.AddCommand(
		newBudgetsListCmd(r),
		newBudgetsSetCmd(r),
		newBudgetsEditCmd(r),
		newBudgetsDeleteCmd(r),
	)
	return cmd
}

func (r *runner) budgets(cmd *cobra.Command) (*screens.Budgets, error) {
	s, err := r.app.Budgets()
	if err != nil {
		return nil, err
	}
	if err := s.Load(cmd.Context()); err != nil {
		return nil, err
	}
	return s, nil
}

func newBudgetsListCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show budgets with their utilization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := r.budgets(cmd)
			if err != nil {
				return err
			}
			printBudgets(cmd, s.Cards())
			return nil
		},
	}
}

func printBudgets(cmd *cobra.Command, cards []screens.BudgetCard) {
	out := cmd.OutOrStdout()
	if len(cards) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("No budgets yet."))
		return
	}
	tw := newTable(out)
	fmt.Fprintln(tw, "ID\tCATEGORY\tPERIOD\tSPENT\tBUDGET\tREMAINING\tUSED")
	for _, c := range cards {
		b, u := c.Budget, c.Utilization
		name := b.CategoryName
		if name == "" {
			name = fmt.Sprintf("#%d", b.CategoryID)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			b.ID, name, b.Period, money(b.Spent), money(b.Amount), money(u.Remaining),
			tierStyle(u.Tier).Render(bar(u.Percentage)+" "+percent(u.Ratio)+" "+string(u.Tier)))
	}
	tw.Flush()
}

func newBudgetsSetCmd(r *runner) *cobra.Command {
	var bf budgetFlags
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Create a budget for an expense category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := r.budgets(cmd)
			if err != nil {
				return err
			}
			if err := bf.apply(cmd, s); err != nil {
				return err
			}
			if cats := s.ExpenseCategories(); len(cats) > 0 {
				if _, ok := core.FindCategory(cats, s.Draft().CategoryID); !ok {
					return core.ErrMissingCategory
				}
			}
			if err := s.Submit(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("Budget saved"))
			return nil
		},
	}
	bf.register(cmd)
	return cmd
}

func newBudgetsEditCmd(r *runner) *cobra.Command {
	var bf budgetFlags
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change a budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := r.budgets(cmd)
			if err != nil {
				return err
			}
			if err := s.Edit(id); err != nil {
				return err
			}
			if err := bf.apply(cmd, s); err != nil {
				return err
			}
			if err := s.Submit(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("Budget updated"))
			return nil
		},
	}
	bf.register(cmd)
	return cmd
}

func newBudgetsDeleteCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := r.budgets(cmd)
			if err != nil {
				return err
			}
			return reportDelete(cmd, "Budget", func() (bool, error) {
				return s.Remove(cmd.Context(), id, r.confirm(cmd.OutOrStdout()))
			})
		},
	}
}
