package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/slotreason/internal/engine"
)

// Scenario defines a reasoning test scenario.
// Scenarios feed slots and facts into a fresh engine step by step, reason
// after each step, and assert on the resulting changes and working memory.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rules lists CUE rule directories, merged in order.
	// Paths are relative to the scenario file location.
	Rules []string `yaml:"rules"`

	// Functions lists the function namespaces available to directives.
	Functions []string `yaml:"functions,omitempty"`

	// Limit is the cycle budget of each reasoning step.
	// Defaults to engine.DefaultReasonLimit.
	Limit int `yaml:"limit,omitempty"`

	// Steps run in order against the same engine.
	Steps []Step `yaml:"steps"`

	// Assertions validate working memory after the last step.
	// Supported types: slot_equals, slot_absent, slot_count, fact_present,
	// fact_absent, fact_count
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step writes input into the engine and reasons once.
//
// Inputs are applied in field order: retract, replace, slots, facts.
type Step struct {
	// Retract removes every slot with the listed names.
	Retract []string `yaml:"retract,omitempty"`

	// Replace overwrites slots by name. A null value only retracts.
	Replace map[string]interface{} `yaml:"replace,omitempty"`

	// Slots asserts slot facts.
	Slots map[string]interface{} `yaml:"slots,omitempty"`

	// Facts asserts generic facts: objects become named facts.
	Facts map[string]interface{} `yaml:"facts,omitempty"`

	// Expect specifies the expected outcome of the step.
	// If nil, the step must reason without error.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected step behavior.
type ExpectClause struct {
	// Changes is the exact slot diff the step must produce.
	// Removed slots are written as null.
	Changes map[string]interface{} `yaml:"changes,omitempty"`

	// Error is the expected error code, e.g. CYCLE_LIMIT_EXCEEDED.
	Error string `yaml:"error,omitempty"`

	// Fires is the expected number of rule firings.
	Fires *int `yaml:"fires,omitempty"`
}

// Assertion validates final working memory.
type Assertion struct {
	// Type specifies the assertion type:
	// - "slot_equals": Slot has the given current value
	// - "slot_absent": No slot with the name exists
	// - "slot_count": Exactly Count slot facts with the name exist
	// - "fact_present": Fact text is in working memory
	// - "fact_absent": Fact text is not in working memory
	// - "fact_count": Exactly Count facts of Template exist
	Type string `yaml:"type"`

	// Slot is the slot name (slot_equals, slot_absent, slot_count).
	Slot string `yaml:"slot,omitempty"`

	// Value is the expected slot value (slot_equals).
	Value interface{} `yaml:"value,omitempty"`

	// Fact is a fact text, e.g. '(slot size "big")' (fact_present, fact_absent).
	Fact string `yaml:"fact,omitempty"`

	// Template is the fact template name (fact_count).
	Template string `yaml:"template,omitempty"`

	// Count is the expected number of facts (slot_count, fact_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertSlotEquals  = "slot_equals"
	AssertSlotAbsent  = "slot_absent"
	AssertSlotCount   = "slot_count"
	AssertFactPresent = "fact_present"
	AssertFactAbsent  = "fact_absent"
	AssertFactCount   = "fact_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Rule paths are resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving rule paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve rule paths relative to base path BEFORE validation
	for i, dir := range scenario.Rules {
		if !filepath.IsAbs(dir) && basePath != "" {
			scenario.Rules[i] = filepath.Join(basePath, dir)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Rules) == 0 {
		return fmt.Errorf("rules list is required and must be non-empty")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if s.Limit < 0 {
		return fmt.Errorf("limit must be non-negative")
	}

	for _, dir := range s.Rules {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("rules directory not found: %s", dir)
		}
	}

	for i, step := range s.Steps {
		if step.Expect != nil && step.Expect.Error != "" && !knownErrorCode(step.Expect.Error) {
			return fmt.Errorf("steps[%d].expect: unknown error code %q", i, step.Expect.Error)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func knownErrorCode(code string) bool {
	for _, c := range engine.ErrorCodes() {
		if string(c) == code {
			return true
		}
	}
	return false
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertSlotEquals:
		if a.Slot == "" {
			return fmt.Errorf("assertions[%d]: slot is required for slot_equals", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for slot_equals", index)
		}
	case AssertSlotAbsent:
		if a.Slot == "" {
			return fmt.Errorf("assertions[%d]: slot is required for slot_absent", index)
		}
	case AssertSlotCount:
		if a.Slot == "" {
			return fmt.Errorf("assertions[%d]: slot is required for slot_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for slot_count", index)
		}
	case AssertFactPresent, AssertFactAbsent:
		if a.Fact == "" {
			return fmt.Errorf("assertions[%d]: fact is required for %s", index, a.Type)
		}
	case AssertFactCount:
		if a.Template == "" {
			return fmt.Errorf("assertions[%d]: template is required for fact_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for fact_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
