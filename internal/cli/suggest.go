package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/slotreason/internal/config"
	"github.com/roach88/slotreason/internal/suggest"
)

// SuggestOptions holds flags for the suggest command.
type SuggestOptions struct {
	*RootOptions
	Config  string
	Pool    string
	Context string
	User    string
}

// NewSuggestCommand creates the suggest command.
func NewSuggestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SuggestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Rank intent suggestions for a user",
		Long: `Read a user's context properties from a JSON document, reason over
them with a configured pool and print the suggested intents, highest
score first.

The context document has the form {"<user>": {"<property>": <value>}};
the pool's suggest section names the properties read.

Example:
  slotreason suggest --config service.yaml --pool suggestions --context ctx.json --user ada`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuggest(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "service configuration file (required)")
	cmd.Flags().StringVar(&opts.Pool, "pool", "", "pool with a suggest section (required)")
	cmd.Flags().StringVar(&opts.Context, "context", "", "JSON context document (required)")
	cmd.Flags().StringVar(&opts.User, "user", "", "user id in the context document (required)")
	for _, name := range []string{"config", "pool", "context", "user"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func runSuggest(ctx context.Context, opts *SuggestOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, err)
	}
	pc, ok := cfg.Pool(opts.Pool)
	if !ok {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Errorf("unknown pool %q", opts.Pool))
	}
	if pc.Suggest == nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Errorf("pool %q has no suggest section", opts.Pool))
	}

	// Only the requested pool is built.
	cfg.Pools = []config.PoolConfig{pc}
	rt, err := cfg.Build(config.WithLogger(slog.Default()))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, err)
	}
	defer rt.Close()

	adapter, err := suggest.LoadJSONAdapter(opts.Context, pc.Suggest.Properties)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, err)
	}

	suggestions, err := rt.Suggesters[pc.Name].Suggest(ctx, opts.User, adapter)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, err)
	}
	if suggestions == nil {
		suggestions = []suggest.Suggestion{}
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]interface{}{
			"user":        opts.User,
			"suggestions": suggestions,
		})
	}
	w := formatter.Writer
	if len(suggestions) == 0 {
		fmt.Fprintf(w, "No suggestions for %s\n", opts.User)
		return nil
	}
	for i, s := range suggestions {
		fmt.Fprintf(w, "%d. %s (%g)\n", i+1, s.Intent, s.Score)
	}
	return nil
}
