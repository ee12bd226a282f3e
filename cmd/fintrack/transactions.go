package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"fintrack/internal/core"
	"fintrack/internal/filter"
	"fintrack/internal/screens"
)

type filterFlags struct {
	typ      string
	category string
	search   string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.typ, "type", "", "only income or expense")
	cmd.Flags().StringVar(&f.category, "category", "", "only this category id")
	cmd.Flags().StringVar(&f.search, "search", "", "description contains")
}

func (f filterFlags) spec() (filter.Spec, error) {
	t, err := filter.ParseType(f.typ)
	if err != nil {
		return filter.Spec{}, err
	}
	id, err := filter.ParseCategoryID(f.category)
	if err != nil {
		return filter.Spec{}, err
	}
	return filter.Spec{Type: t, CategoryID: id, Search: f.search}, nil
}

// transactionFlags are the form fields; only flags given on the command line
// touch the draft.
type transactionFlags struct {
	typ, amount, date, description, notes string
	category                              int64
}

func (f *transactionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.typ, "type", "", "income or expense")
	cmd.Flags().StringVar(&f.amount, "amount", "", "amount, e.g. 45.00")
	cmd.Flags().Int64Var(&f.category, "category", 0, "category id")
	cmd.Flags().StringVar(&f.date, "date", "", "date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&f.description, "description", "", "description")
	cmd.Flags().StringVar(&f.notes, "notes", "", "optional notes")
}

func (f transactionFlags) apply(cmd *cobra.Command, s *screens.Transactions) error {
	fl := cmd.Flags()
	if fl.Changed("type") {
		t, err := filter.ParseType(f.typ)
		if err != nil || t == "" {
			return core.ErrInvalidType
		}
		s.SetDraftType(t)
	}
	var (
		amount decimal.Decimal
		date   core.Date
	)
	if fl.Changed("amount") {
		a, err := core.ParseAmount(f.amount)
		if err != nil {
			return err
		}
		amount = a
	}
	if fl.Changed("date") {
		d, err := core.ParseDate(f.date)
		if err != nil {
			return err
		}
		date = d
	}
	s.UpdateDraft(func(d *core.TransactionDraft) {
		if fl.Changed("amount") {
			d.Amount = amount
		}
		if fl.Changed("date") {
			d.Date = date
		}
		if fl.Changed("category") {
			d.CategoryID = f.category
		}
		if fl.Changed("description") {
			d.Description = f.description
		}
		if fl.Changed("notes") {
			d.Notes = f.notes
		}
	})
	return nil
}

func newTransactionsCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "List and edit transactions",
	}
	cmd.AddCommand(
		newTransactionsListCmd(r),
		newTransactionsAddCmd(r),
		newTransactionsEditCmd(r),
		newTransactionsDeleteCmd(r),
		newCategoriesCmd(r),
	)
	return cmd
}

func (r *runner) transactions(cmd *cobra.Command) (*screens.Transactions, error) {
	s, err := r.app.Transactions()
	if err != nil {
		return nil, err
	}
	if err := s.Load(cmd.Context()); err != nil {
		return nil, err
	}
	return s, nil
}

func newTransactionsListCmd(r *runner) *cobra.Command {
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			spec, err := ff.spec()
			if err != nil {
				return err
			}
			s, err := r.transactions(cmd)
			if err != nil {
				return err
			}
			s.SetFilter(spec)
			printTransactions(cmd.OutOrStdout(), s.Visible(), s.Categories())
			return nil
		},
	}
	ff.register(cmd)
	return cmd
}

func newTransactionsAddCmd(r *runner) *cobra.Command {
	var tf transactionFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := r.transactions(cmd)
			if err != nil {
				return err
			}
			if err := tf.apply(cmd, s); err != nil {
				return err
			}
			if err := s.Submit(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("Transaction saved"))
			return nil
		},
	}
	tf.register(cmd)
	return cmd
}

func newTransactionsEditCmd(r *runner) *cobra.Command {
	var tf transactionFlags
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := r.transactions(cmd)
			if err != nil {
				return err
			}
			if err := s.Edit(id); err != nil {
				return err
			}
			if err := tf.apply(cmd, s); err != nil {
				return err
			}
			if err := s.Submit(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("Transaction updated"))
			return nil
		},
	}
	tf.register(cmd)
	return cmd
}

func newTransactionsDeleteCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := r.transactions(cmd)
			if err != nil {
				return err
			}
			return reportDelete(cmd, "Transaction", func() (bool, error) {
				return s.Remove(cmd.Context(), id, r.confirm(cmd.OutOrStdout()))
			})
		},
	}
}

func reportDelete(cmd *cobra.Command, noun string, remove func() (bool, error)) error {
	done, err := remove()
	if err != nil {
		return err
	}
	if !done {
		fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("Cancelled"))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(noun+" deleted"))
	return nil
}

func newCategoriesCmd(r *runner) *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List transaction categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := filter.ParseType(typ)
			if err != nil {
				return err
			}
			s, err := r.app.Transactions()
			if err != nil {
				return err
			}
			if err := s.LoadCategories(cmd.Context()); err != nil {
				return err
			}
			cats := s.Categories()
			if t != "" {
				cats = core.CategoriesFor(cats, t)
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tNAME\tTYPE")
			for _, c := range cats {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", c.ID, c.Name, c.Type)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "only income or expense")
	cmd.AddCommand(newCategoryAddCmd(r))
	return cmd
}

func newCategoryAddCmd(r *runner) *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a custom category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := filter.ParseType(typ)
			if err != nil || t == "" {
				return core.ErrInvalidType
			}
			if _, err := r.app.Transactions(); err != nil {
				return err
			}
			if err := r.app.Client.CreateCategory(cmd.Context(), args[0], t); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("Category created"))
			return nil
		},
	}
	cmd.Flags().StringVar(&typ, "type", "expense", "income or expense")
	return cmd
}
