package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/slotreason/internal/compiler"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Functions []string
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                       `json:"valid"`
	Templates int                        `json:"templates"`
	Rules     int                        `json:"rules"`
	Facts     int                        `json:"facts"`
	Errors    []compiler.ValidationError `json:"errors,omitempty"`
	Warnings  []compiler.CycleWarning    `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <rules-dir>...",
		Short: "Validate rule sets without reasoning",
		Long: `Validate CUE rule sets without running them.

Compiles templates, rules and initial facts, checks every directive
assertion against its required shape and the configured functions, and
reports potential reasoning cycles as warnings.

Exit codes:
  0 - Rule set valid (warnings allowed)
  1 - Directive errors found
  2 - Rule set could not be loaded`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Functions, "functions", []string{"std"}, "function namespaces available to directives")

	return cmd
}

func runValidate(opts *ValidateOptions, dirs []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loaded, err := LoadRules(dirs)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, strings.Join(dirs, ", "))

	resolver, err := ResolveFunctions(opts.Functions)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	p := loaded.Program
	result := ValidationResult{
		Templates: len(p.Templates),
		Rules:     len(p.Rules),
		Facts:     len(p.Facts),
		Errors:    compiler.Validate(p, resolver),
		Warnings:  compiler.AnalyzeCycles(p.Rules),
	}
	result.Valid = len(result.Errors) == 0
	for _, w := range result.Warnings {
		formatter.VerboseLog("cycle: %s", strings.Join(w.Path, " -> "))
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// outputLoadError reports a rule set that could not be loaded (exit code 2).
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		loadErr = &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
	}
	var details interface{}
	if loadErr.Pos.IsValid() {
		details = map[string]interface{}{
			"file": loadErr.Pos.Filename(),
			"line": loadErr.Pos.Line(),
		}
	}
	_ = formatter.Error(loadErr.Code, loadErr.Message, details)
	return WrapExitError(ExitCommandError, loadErr.Code, err)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Rule set valid (%d rule(s), %d template(s), %d fact(s))\n",
		result.Rules, result.Templates, result.Facts)
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn.Message)
	}
	return nil
}

// outputValidationErrors outputs directive errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	w := formatter.Writer
	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, err := range errs {
		fmt.Fprintf(w, "  %s: %s: %s\n", err.Code, err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
