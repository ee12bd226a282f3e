package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"fintrack/internal/core"
	"fintrack/internal/screens"
)

type goalFlags struct {
	name     string
	target   string
	deadline string
}

func (f *goalFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "goal name")
	cmd.Flags().StringVar(&f.target, "target", "", "target amount")
	cmd.Flags().StringVar(&f.deadline, "deadline", "", "deadline as YYYY-MM-DD")
}

func (f goalFlags) apply(cmd *cobra.Command, s *screens.Goals) error {
	fl := cmd.Flags()
	var (
		target   decimal.Decimal
		deadline core.Date
	)
	if fl.Changed("target") {
		t, err := core.ParseAmount(f.target)
		if err != nil {
			return err
		}
		target = t
	}
	if fl.Changed("deadline") {
		d, err := core.ParseDate(f.deadline)
		if err != nil {
			return err
		}
		deadline = d
	}
	s.UpdateDraft(func(d *core.GoalDraft) {
		if fl.Changed("name") {
			d.Name = f.name
		}
		if fl.Changed("target") {
			d.TargetAmount = target
		}
		if fl.Changed("deadline") {
			d.Deadline = deadline
		}
	})
	return nil
}

func newGoalsCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goals",
		Short: "Show and manage savings goals",
	}
	cmd.AddCommand(
		newGoalsListCmd(r),
		newGoalsAddCmd(r),
		newGoalsEditCmd(r),
		newGoalsDeleteCmd(r),
		newGoalsContributeCmd(r),
	)
	return cmd
}

func (r *runner) goals(cmd *cobra.Command) (*screens.Goals, error) {
	s, err := r.app.Goals()
	if err != nil {
		return nil, err
	}
	if err := s.Load(cmd.Context()); err != nil {
		return nil, err
	}
	return s, nil
}

func newGoalsListCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show goals with their progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := r.goals(cmd)
			if err != nil {
				return err
			}
			printGoals(cmd, s.Cards())
			return nil
		},
	}
}

func printGoals(cmd *cobra.Command, cards []screens.GoalCard) {
	out := cmd.OutOrStdout()
	if len(cards) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("No savings goals yet."))
		return
	}
	tw := newTable(out)
	fmt.Fprintln(tw, "ID\tNAME\tSAVED\tTARGET\tDEADLINE\tPROGRESS")
	for _, c := range cards {
		g, p := c.Goal, c.Progress
		status := bar(p.Percentage) + " " + percent(p.Percentage)
		style := accentStyle
		if p.Complete {
			status += " complete"
			style = okStyle
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			g.ID, g.Name, money(g.CurrentAmount), money(g.TargetAmount), g.Deadline, style.Render(status))
	}
	tw.Flush()
}

func newGoalsAddCmd(r *runner) *cobra.Command {
	var gf goalFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a savings goal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := r.goals(cmd)
			if err != nil {
				return err
			}
			if err := gf.apply(cmd, s); err != nil {
				return err
			}
			if err := s.Submit(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("Goal saved"))
			return nil
		},
	}
	gf.register(cmd)
	return cmd
}

func newGoalsEditCmd(r *runner) *cobra.Command {
	var gf goalFlags
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change a savings goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := r.goals(cmd)
			if err != nil {
				return err
			}
			if err := s.Edit(id); err != nil {
				return err
			}
			if err := gf.apply(cmd, s); err != nil {
				return err
			}
			if err := s.Submit(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("Goal updated"))
			return nil
		},
	}
	gf.register(cmd)
	return cmd
}

func newGoalsDeleteCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a savings goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := r.goals(cmd)
			if err != nil {
				return err
			}
			return reportDelete(cmd, "Goal", func() (bool, error) {
				return s.Remove(cmd.Context(), id, r.confirm(cmd.OutOrStdout()))
			})
		},
	}
}

func newGoalsContributeCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contribute ID AMOUNT",
		Short: "Add money to a savings goal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := r.goals(cmd)
			if err != nil {
				return err
			}
			if err := s.Contribute(cmd.Context(), id, args[1]); err != nil {
				return err
			}
			if g, ok := s.Find(id); ok {
				printGoals(cmd, []screens.GoalCard{s.Card(g)})
			}
			return nil
		},
	}
	// Flags end at the goal id, so a negative AMOUNT reaches validation.
	cmd.Flags().SetInterspersed(false)
	return cmd
}
