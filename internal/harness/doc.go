// Package harness runs reasoning scenarios against rule sets.
//
// The harness loads rule directories, feeds each step's slots and facts
// into a fresh engine, reasons, and checks the resulting slot changes and
// final working memory.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: pizza_size
//	description: "A small pizza becomes big"
//	rules:
//	  - rules/pizza
//	functions: [std]
//	limit: 10
//	steps:
//	  - slots: { size: small }
//	    expect:
//	      changes: { size: big }
//	  - replace: { size: null }
//	    expect:
//	      changes: { size: null }
//	assertions:
//	  - type: slot_absent
//	    slot: size
//	  - type: fact_present
//	    fact: '(phase start)'
//
// Step input is applied in the order retract, replace, slots, facts. An
// expect clause may name an error code instead of changes:
//
//	steps:
//	  - slots: { loop: 1 }
//	    expect:
//	      error: CYCLE_LIMIT_EXCEEDED
//
// # Assertion Types
//
//   - slot_equals: the slot's current value equals value
//   - slot_absent: no slot fact with the name exists
//   - slot_count: exactly count slot facts with the name exist
//   - fact_present / fact_absent: a fact text is or is not in working memory
//   - fact_count: exactly count facts of template exist
//
// # Golden Transcripts
//
// RunWithGolden serializes the step results and final working memory as
// canonical JSON and compares them with testdata/golden/<name>.golden.
package harness
