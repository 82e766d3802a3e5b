package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/slotreason/internal/ir"
)

// Transcript captures a scenario execution for golden comparison.
// It is serialized with canonical JSON for deterministic output.
type Transcript struct {
	ScenarioName string
	Steps        []StepResult
	Facts        []string
}

// toIR converts a Transcript to an IRObject for canonical JSON serialization.
func (s *Transcript) toIR() ir.IRObject {
	steps := make(ir.IRArray, len(s.Steps))
	for i, step := range s.Steps {
		changes := step.Changes
		if changes == nil {
			changes = ir.IRObject{}
		}
		stepObj := ir.IRObject{
			"index":   ir.IRInt(step.Index),
			"changes": changes,
			"fires":   ir.IRInt(step.Fires),
		}
		if step.Error != "" {
			stepObj["error"] = ir.IRString(step.Error)
		}
		steps[i] = stepObj
	}

	facts := make(ir.IRArray, len(s.Facts))
	for i, f := range s.Facts {
		facts[i] = ir.IRString(f)
	}

	return ir.IRObject{
		"scenario_name": ir.IRString(s.ScenarioName),
		"steps":         steps,
		"facts":         facts,
	}
}

// Marshal renders the transcript as canonical JSON.
func (s *Transcript) Marshal() ([]byte, error) {
	return ir.MarshalCanonical(s.toIR())
}

// RunWithGolden executes a scenario and compares its transcript against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the transcript doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's transcript against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := Transcript{
		ScenarioName: scenarioName,
		Steps:        result.Steps,
		Facts:        result.Facts,
	}
	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
