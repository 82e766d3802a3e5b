package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/slotreason/internal/engine"
	"github.com/roach88/slotreason/internal/ir"
	"github.com/roach88/slotreason/internal/pool"
	"github.com/roach88/slotreason/internal/store"
)

// ReasonOptions holds flags for the reason command.
type ReasonOptions struct {
	*RootOptions
	SlotsFile string
	FactsFile string
	Retract   []string
	Functions []string
	Limit     int
	MaxFires  int
	Dump      bool
	Session   string
	State     StateFlags
}

// ReasonResult is the outcome of one reasoning run.
type ReasonResult struct {
	Changes  ir.IRObject `json:"changes"`
	Fires    int         `json:"fires"`
	Facts    int         `json:"facts"`
	Duration string      `json:"duration"`
	Session  string      `json:"session,omitempty"`
	Dump     []string    `json:"dump,omitempty"`
}

// NewReasonCommand creates the reason command.
func NewReasonCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReasonOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reason <rules-dir>...",
		Short: "Set slots and facts, reason, and print the slot changes",
		Long: `Load the rule sets, assert the slots and facts read from files, run
the reasoning loop and print how the slots changed.

Slot and fact files are YAML or JSON documents holding either a mapping
of names to values or a list of [name, value] pairs. In a facts file an
object value becomes a named fact of the template named by its key.

With --session the working memory saved under that id is restored first
and saved again afterwards.

Exit codes:
  0 - Reasoning finished
  1 - Reasoning failed (directive error, cycle limit, ...)
  2 - Command error (rules or input unreadable)

Examples:
  slotreason reason ./rules --slots slots.yaml
  slotreason reason ./rules --slots slots.json --limit 10 --format json
  slotreason reason ./rules --slots slots.yaml --session user-1 --db states.db`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReason(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.SlotsFile, "slots", "", "YAML or JSON file of slots to assert")
	cmd.Flags().StringVar(&opts.FactsFile, "facts", "", "YAML or JSON file of facts to assert")
	cmd.Flags().StringSliceVar(&opts.Retract, "retract", nil, "slot names to retract before asserting")
	cmd.Flags().StringSliceVar(&opts.Functions, "functions", []string{"std"}, "function namespaces available to directives")
	cmd.Flags().IntVar(&opts.Limit, "limit", engine.DefaultReasonLimit, "maximum reasoning cycles")
	cmd.Flags().IntVar(&opts.MaxFires, "max-fires", 0, "maximum rule firings per cycle (0 = unbounded)")
	cmd.Flags().BoolVar(&opts.Dump, "dump", false, "print the final working memory")
	cmd.Flags().StringVar(&opts.Session, "session", "", "restore and save working memory under this id")
	cmd.Flags().StringVar(&opts.State.DB, "db", "", "SQLite state database (with --session)")
	cmd.Flags().StringVar(&opts.State.Dir, "state-dir", "", "state file directory (with --session)")

	return cmd
}

func runReason(ctx context.Context, opts *ReasonOptions, dirs []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	loaded, err := LoadRules(dirs)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	resolver, err := ResolveFunctions(opts.Functions)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	engineOpts := []engine.EngineOption{engine.WithReasonLimit(opts.Limit)}
	if opts.MaxFires > 0 {
		engineOpts = append(engineOpts, engine.WithMaxFires(opts.MaxFires))
	}
	e, err := engine.New(loaded.Program, resolver, engineOpts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}

	var slots, facts engine.Input
	if opts.SlotsFile != "" {
		if slots, err = readInputFile(opts.SlotsFile); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeBadInput, err)
		}
	}
	if opts.FactsFile != "" {
		if facts, err = readInputFile(opts.FactsFile); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeBadInput, err)
		}
	}

	var sess *session
	if opts.Session != "" {
		sess, err = restoreSession(ctx, e, opts)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
		}
		defer sess.close()
	}

	initial := e.Slots()
	for _, name := range opts.Retract {
		n, err := e.RetractSlotsByName(name)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeGeneric, err)
		}
		formatter.VerboseLog("retracted %d slot fact(s) named %s", n, name)
	}
	if slots != nil {
		if err := e.SetSlots(slots); err != nil {
			return formatter.Fail(ExitFailure, ErrCodeBadInput, err)
		}
	}
	if facts != nil {
		if err := e.SetFacts(facts); err != nil {
			return formatter.Fail(ExitFailure, ErrCodeBadInput, err)
		}
	}

	formatter.VerboseLog("reasoning over %d rule(s), %d fact(s)", e.NumRules(), e.NumFacts())
	reasonErr := e.Reason(ctx, opts.Limit)

	if sess != nil {
		if err := sess.save(ctx); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err)
		}
	}
	if reasonErr != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, reasonErr)
	}

	result := ReasonResult{
		Changes:  ir.IRObject(e.CollectResultingSlots(initial)),
		Fires:    e.NumFires(),
		Facts:    e.NumFacts(),
		Duration: e.LastReasonDuration().Round(time.Microsecond).String(),
		Session:  opts.Session,
	}
	if opts.Dump {
		result.Dump = e.Dump()
	}
	return outputReason(formatter, result)
}

// session is working memory persisted under an id across reason runs.
type session struct {
	id     string
	engine *engine.Engine
	states pool.StateStore
	close  func() error
}

// restoreSession opens the state store and loads the session's working
// memory into e. The caller must close the returned session.
func restoreSession(ctx context.Context, e *engine.Engine, opts *ReasonOptions) (*session, error) {
	states, closeStore, err := opts.State.Open()
	if err != nil {
		return nil, err
	}

	st, found, err := states.Load(ctx, opts.Session)
	if err != nil {
		closeStore()
		return nil, err
	}
	if found {
		if err := e.Restore(st.Facts); err != nil {
			closeStore()
			return nil, err
		}
	}
	return &session{id: opts.Session, engine: e, states: states, close: closeStore}, nil
}

// save writes the engine's working memory back under the session id.
func (s *session) save(ctx context.Context) error {
	hash, err := s.engine.RuleSetHash()
	if err != nil {
		return err
	}
	next, err := store.NewState(s.id, s.engine.Dump(), hash)
	if err != nil {
		return err
	}
	return s.states.Save(ctx, next)
}

func outputReason(formatter *OutputFormatter, result ReasonResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	formatter.WriteChanges(result.Changes)
	w := formatter.Writer
	fmt.Fprintf(w, "\n%d rule firing(s), %d fact(s) in %s\n", result.Fires, result.Facts, result.Duration)
	if len(result.Dump) > 0 {
		fmt.Fprintln(w, "\nWorking memory:")
		for i, f := range result.Dump {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, f)
		}
	}
	return nil
}
