package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/slotreason/internal/ir"
)

// ErrInvalidID is returned when a state id is empty or cannot be used as a
// file name.
var ErrInvalidID = errors.New("invalid state id")

// State is a persisted working memory.
type State struct {
	ID            string   `json:"id" yaml:"id"`
	Facts         []string `json:"facts" yaml:"facts"`
	Hash          string   `json:"hash" yaml:"hash"`
	RuleSet       string   `json:"rule_set,omitempty" yaml:"rule_set,omitempty"`
	EngineVersion string   `json:"engine_version" yaml:"engine_version"`
	StateVersion  string   `json:"state_version" yaml:"state_version"`
	Revision      int64    `json:"revision" yaml:"revision"`
}

// NewState builds a State for facts, as returned by engine.Dump.
// ruleSet is the hash of the rule set the facts were produced under.
func NewState(id string, facts []string, ruleSet string) (State, error) {
	st := State{ID: id, Facts: facts, RuleSet: ruleSet}
	if err := validateID(id); err != nil {
		return State{}, err
	}
	hash, err := ir.StateHash(st.Facts)
	if err != nil {
		return State{}, fmt.Errorf("hash state %s: %w", id, err)
	}
	st.Hash = hash
	return st.normalize(), nil
}

// normalize fills version fields and the hash when they are missing.
func (st State) normalize() State {
	if st.Facts == nil {
		st.Facts = []string{}
	}
	if st.Hash == "" {
		if h, err := ir.StateHash(st.Facts); err == nil {
			st.Hash = h
		}
	}
	if st.EngineVersion == "" {
		st.EngineVersion = ir.EngineVersion
	}
	if st.StateVersion == "" {
		st.StateVersion = ir.StateVersion
	}
	return st
}

func validateID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", ErrInvalidID)
	case id == "." || id == ".." || strings.Contains(id, ".."):
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	case strings.ContainsAny(id, `/\`+"\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidID, id)
	}
	return nil
}
