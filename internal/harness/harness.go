package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/slotreason/internal/compiler"
	"github.com/roach88/slotreason/internal/engine"
	"github.com/roach88/slotreason/internal/funcs"
	"github.com/roach88/slotreason/internal/ir"
	"github.com/roach88/slotreason/internal/testutil"
)

// Harness is the test execution engine.
// It drives one engine through a scenario's steps.
type Harness struct {
	engine *engine.Engine
	limit  int
	logger *slog.Logger
}

// Option configures Run.
type Option func(*runOptions)

type runOptions struct {
	catalog *funcs.Catalog
	logger  *slog.Logger
}

// WithCatalog sets the catalog function namespaces are resolved from.
// Defaults to funcs.NewCatalog(), which provides std.
func WithCatalog(c *funcs.Catalog) Option {
	return func(o *runOptions) {
		o.catalog = c
	}
}

// WithLogger sets the logger of the harness and its engine.
// Defaults to discarding logs.
func WithLogger(l *slog.Logger) Option {
	return func(o *runOptions) {
		o.logger = l
	}
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh engine with a fixed engine ID.
//
// Execution flow:
// 1. Load and compile the rule directories
// 2. For each step: apply input, reason, diff slots, check expect clause
// 3. Evaluate assertions against final working memory
// 4. Return result with pass/fail, step transcript, and errors
//
// Rule or function configuration failures are returned as errors; step
// and assertion mismatches are reported in the result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := runOptions{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.catalog == nil {
		o.catalog = funcs.NewCatalog()
	}

	program, err := compiler.LoadProgram(scenario.Rules...)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	resolver, err := o.catalog.Resolver(scenario.Functions...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve functions: %w", err)
	}

	eng, err := engine.New(program, resolver,
		engine.WithLogger(o.logger),
		engine.WithIDGenerator(testutil.NewStaticIDGenerator("scenario-"+scenario.Name)))
	if err != nil {
		return nil, err
	}

	h := &Harness{
		engine: eng,
		limit:  scenario.Limit,
		logger: o.logger,
	}
	if h.limit == 0 {
		h.limit = engine.DefaultReasonLimit
	}

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute step %d: %w", i, err)
		}
	}

	result.Facts = eng.Dump()
	for _, errMsg := range EvaluateAssertions(eng, scenario.Assertions) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeStep applies one step's input, reasons, and checks the outcome.
// Runtime errors become part of the step result; only malformed step
// input that cannot be converted is returned.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	initial := h.engine.Slots()

	err := h.apply(step)
	sr := StepResult{Index: index}
	if err == nil {
		err = h.engine.Reason(ctx, h.limit)
		sr.Fires = h.engine.NumFires()
	}
	if err != nil {
		code := engine.CodeOf(err)
		if code == "" {
			return err
		}
		sr.Error = string(code)
	}
	sr.Changes = ir.IRObject(h.engine.CollectResultingSlots(initial))
	result.AddStep(sr)

	h.logger.Info("scenario step completed",
		"step", index,
		"changes", len(sr.Changes),
		"fires", sr.Fires,
		"error", sr.Error)

	return h.checkExpect(index, step.Expect, sr, result)
}

func (h *Harness) apply(step Step) error {
	for _, name := range step.Retract {
		if _, err := h.engine.RetractSlotsByName(name); err != nil {
			return err
		}
	}
	if step.Replace != nil {
		in, err := convertArgsToIRObject(step.Replace)
		if err != nil {
			return fmt.Errorf("replace: %w", err)
		}
		if err := h.engine.ReplaceSlots(engine.MapInput(in)); err != nil {
			return err
		}
	}
	if step.Slots != nil {
		in, err := convertArgsToIRObject(step.Slots)
		if err != nil {
			return fmt.Errorf("slots: %w", err)
		}
		if err := h.engine.SetSlots(engine.MapInput(in)); err != nil {
			return err
		}
	}
	if step.Facts != nil {
		in, err := convertArgsToIRObject(step.Facts)
		if err != nil {
			return fmt.Errorf("facts: %w", err)
		}
		if err := h.engine.SetFacts(engine.MapInput(in)); err != nil {
			return err
		}
	}
	return nil
}

// checkExpect compares a step result with its expect clause. Without a
// clause the step must succeed.
func (h *Harness) checkExpect(index int, expect *ExpectClause, sr StepResult, result *Result) error {
	if expect == nil {
		if sr.Error != "" {
			result.AddError(fmt.Sprintf("step %d: unexpected error %s", index, sr.Error))
		}
		return nil
	}

	if sr.Error != expect.Error {
		switch {
		case expect.Error == "":
			result.AddError(fmt.Sprintf("step %d: unexpected error %s", index, sr.Error))
		case sr.Error == "":
			result.AddError(fmt.Sprintf("step %d: expected error %s, step succeeded", index, expect.Error))
		default:
			result.AddError(fmt.Sprintf("step %d: expected error %s, got %s", index, expect.Error, sr.Error))
		}
	}

	if expect.Changes != nil {
		want, err := convertArgsToIRObject(expect.Changes)
		if err != nil {
			return fmt.Errorf("expect.changes: %w", err)
		}
		if !ir.Equal(want, sr.Changes) {
			result.AddError(fmt.Sprintf("step %d: changes = %s, want %s",
				index, formatValue(sr.Changes), formatValue(want)))
		}
	}

	if expect.Fires != nil && *expect.Fires != sr.Fires {
		result.AddError(fmt.Sprintf("step %d: fires = %d, want %d", index, sr.Fires, *expect.Fires))
	}
	return nil
}

// convertArgsToIRObject converts a map[string]interface{} to ir.IRObject.
// This handles YAML-parsed values and converts them to proper IRValue types.
// YAML null becomes ir.IRNull.
func convertArgsToIRObject(args map[string]interface{}) (ir.IRObject, error) {
	if args == nil {
		return ir.IRObject{}, nil
	}

	result := make(ir.IRObject, len(args))
	for key, val := range args {
		irVal, err := convertToIRValue(val)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		result[key] = irVal
	}
	return result, nil
}

// convertToIRValue converts a YAML-parsed value to an IRValue.
// Integers stay integers and floats stay floats, so 1 and 1.0 differ.
func convertToIRValue(val interface{}) (ir.IRValue, error) {
	return ir.FromGo(val)
}

func formatValue(v ir.IRValue) string {
	data, err := ir.MarshalIRValue(v)
	if err != nil {
		return fmt.Sprintf("%v", ir.ToGo(v))
	}
	return string(data)
}
