package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// StateOptions holds flags for the state commands.
type StateOptions struct {
	*RootOptions
	State StateFlags
}

// stateLister is implemented by both state store backends.
type stateLister interface {
	List(ctx context.Context) ([]string, error)
}

// NewStateCommand creates the state command group.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect and clear persisted working memories",
		Long: `Inspect and clear working memories persisted by pooled engines or by
"reason --session".

Examples:
  slotreason state list --db states.db
  slotreason state show user-1 --db states.db
  slotreason state clear user-1 --state-dir ./states`,
	}

	cmd.PersistentFlags().StringVar(&opts.State.DB, "db", "", "SQLite state database")
	cmd.PersistentFlags().StringVar(&opts.State.Dir, "state-dir", "", "state file directory")

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List persisted state ids",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStateList(cmd.Context(), opts, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "show <id>",
		Short:         "Print a persisted working memory",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStateShow(cmd.Context(), opts, args[0], cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "clear <id>",
		Short:         "Delete a persisted working memory",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStateClear(cmd.Context(), opts, args[0], cmd)
		},
	})

	return cmd
}

func runStateList(ctx context.Context, opts *StateOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	states, closeStore, err := opts.State.Open()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, err)
	}
	defer closeStore()

	lister, ok := states.(stateLister)
	if !ok {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Errorf("state store cannot list ids"))
	}
	ids, err := lister.List(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}
	if ids == nil {
		ids = []string{}
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string][]string{"ids": ids})
	}
	if len(ids) == 0 {
		fmt.Fprintln(formatter.Writer, "No persisted states.")
	}
	for _, id := range ids {
		fmt.Fprintln(formatter.Writer, id)
	}
	return nil
}

func runStateShow(ctx context.Context, opts *StateOptions, id string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	states, closeStore, err := opts.State.Open()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, err)
	}
	defer closeStore()

	st, found, err := states.Load(ctx, id)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}
	if !found {
		return formatter.Fail(ExitFailure, ErrCodeNotFound, fmt.Errorf("no persisted state %q", id))
	}

	if formatter.Format == "json" {
		return formatter.Success(st)
	}
	w := formatter.Writer
	fmt.Fprintf(w, "State %s (revision %d)\n", st.ID, st.Revision)
	fmt.Fprintf(w, "  hash:     %s\n", st.Hash)
	if st.RuleSet != "" {
		fmt.Fprintf(w, "  rule set: %s\n", st.RuleSet)
	}
	fmt.Fprintf(w, "  facts:    %d\n", len(st.Facts))
	for i, f := range st.Facts {
		fmt.Fprintf(w, "  [%d] %s\n", i+1, f)
	}
	return nil
}

func runStateClear(ctx context.Context, opts *StateOptions, id string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	states, closeStore, err := opts.State.Open()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, err)
	}
	defer closeStore()

	existed, err := states.Clear(ctx, id)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]interface{}{"id": id, "cleared": existed})
	}
	if existed {
		fmt.Fprintf(formatter.Writer, "✓ Cleared state %s\n", id)
	} else {
		fmt.Fprintf(formatter.Writer, "No persisted state %s\n", id)
	}
	return nil
}
