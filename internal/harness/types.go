package harness

import "github.com/roach88/slotreason/internal/ir"

// StepResult records what one scenario step did.
type StepResult struct {
	// Index is the 0-based step number.
	Index int `json:"index"`

	// Changes is the slot diff produced by the step.
	Changes ir.IRObject `json:"changes"`

	// Fires is the number of rule firings while reasoning.
	Fires int `json:"fires"`

	// Error is the runtime error code, empty on success.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Steps contains one entry per executed step, in order.
	Steps []StepResult `json:"steps"`

	// Facts is the final working memory, oldest first.
	Facts []string `json:"facts"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Facts:  []string{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep appends a step result.
func (r *Result) AddStep(s StepResult) {
	r.Steps = append(r.Steps, s)
}
