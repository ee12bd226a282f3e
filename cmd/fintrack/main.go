package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"fintrack/internal/api"
	"fintrack/internal/app"
	"fintrack/internal/cli"
	"fintrack/internal/listsync"
	"fintrack/internal/log"
)

// opener builds the application context for one command invocation.
type opener func(ctx context.Context, notify func(listsync.Notice)) (*app.App, error)

func openApp(ctx context.Context, notify func(listsync.Notice)) (*app.App, error) {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(cfg)
	return app.New(ctx, cfg, logger, app.WithNotifier(notify))
}

func main() {
	cli.LoadEnvFile()
	ctx, cancel := cli.SignalContext(context.Background(), log.New(log.DefaultConfig()))
	defer cancel()

	r := &runner{open: openApp}
	if err := execute(ctx, r, newRootCmd(r)); err != nil {
		if !r.notified {
			fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		}
		cancel()
		os.Exit(1)
	}
}

func execute(ctx context.Context, r *runner, root *cobra.Command) error {
	defer r.close()
	return root.ExecuteContext(ctx)
}

// runner carries per-invocation state shared by every subcommand.
type runner struct {
	open opener
	app  *app.App
	yes  bool
	in   *bufio.Reader

	notified bool
}

func newRootCmd(r *runner) *cobra.Command {
	root := &cobra.Command{
		Use:   "fintrack",
		Short: "Track transactions, budgets and savings goals",
		Long: `Fintrack is a command line client for the personal finance backend.
It keeps you signed in between runs and shows your transactions, budgets,
savings goals and a dashboard of the figures derived from them.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: r.setup,
	}
	root.PersistentFlags().BoolVarP(&r.yes, "yes", "y", false, "do not ask before deleting")

	root.AddCommand(
		newLoginCmd(r),
		newLogoutCmd(r),
		newRegisterCmd(r),
		newWhoamiCmd(r),
		newDashboardCmd(r),
		newTransactionsCmd(r),
		newBudgetsCmd(r),
		newGoalsCmd(r),
		newExportCmd(r),
	)
	return root
}

func (r *runner) setup(cmd *cobra.Command, _ []string) error {
	// One request id per invocation ties its backend calls together.
	cmd.SetContext(api.WithRequestID(cmd.Context(), api.RequestID(cmd.Context())))
	a, err := r.open(cmd.Context(), r.noticeTo(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	r.app = a
	r.in = bufio.NewReader(cmd.InOrStdin())
	a.Initialize(cmd.Context())
	return nil
}

func (r *runner) close() {
	if r.app == nil {
		return
	}
	if err := r.app.Close(); err != nil {
		r.app.Logger.Warn("Failed to release resources", log.FieldError, err.Error())
	}
	r.app = nil
}

// noticeTo prints controller notices the way a blocking alert would be shown.
func (r *runner) noticeTo(w io.Writer) func(listsync.Notice) {
	return func(n listsync.Notice) {
		r.notified = true
		fmt.Fprintln(w, errorStyle.Render(n.String()))
	}
}

// confirm asks on the command's input unless --yes was given.
func (r *runner) confirm(out io.Writer) listsync.Confirmer {
	return func(prompt string) bool {
		if r.yes {
			return true
		}
		fmt.Fprintf(out, "%s [y/N]: ", prompt)
		switch strings.ToLower(r.readLine()) {
		case "y", "yes":
			return true
		}
		return false
	}
}

// ask returns v, or prompts for it when empty.
func (r *runner) ask(out io.Writer, label, v string) string {
	if v != "" {
		return v
	}
	fmt.Fprintf(out, "%s: ", label)
	return r.readLine()
}

func (r *runner) readLine() string {
	line, _ := r.in.ReadString('\n')
	return strings.TrimSpace(line)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}
