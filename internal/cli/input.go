package cli

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/slotreason/internal/config"
	"github.com/roach88/slotreason/internal/engine"
	"github.com/roach88/slotreason/internal/ir"
	"github.com/roach88/slotreason/internal/pool"
)

// readInputFile reads slot or fact input from a YAML or JSON file. The
// document is either a mapping of names to values or a list of
// [name, value] pairs. JSON is accepted because it is valid YAML.
func readInputFile(path string) (engine.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw interface{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	doc, err := ir.FromGo(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	in, err := engine.ParseInput(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return in, nil
}

// StateFlags selects a state store from the command line.
type StateFlags struct {
	DB  string // SQLite database path
	Dir string // file store directory
}

// Enabled reports whether a store was selected.
func (f StateFlags) Enabled() bool {
	return f.DB != "" || f.Dir != ""
}

// Open opens the selected store. The closer may be nil.
func (f StateFlags) Open() (pool.StateStore, func() error, error) {
	if f.DB != "" && f.Dir != "" {
		return nil, nil, fmt.Errorf("--db and --state-dir are mutually exclusive")
	}
	cfg := config.Config{}
	switch {
	case f.DB != "":
		cfg.State = config.StateConfig{Backend: config.BackendSQLite, Path: f.DB}
	case f.Dir != "":
		cfg.State = config.StateConfig{Backend: config.BackendFile, Path: f.Dir}
	default:
		return nil, nil, fmt.Errorf("no state store: pass --db or --state-dir")
	}
	states, closer, err := cfg.OpenStateStore()
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() error { return nil }
	if closer != nil {
		closeFn = closer.Close
	}
	return states, closeFn, nil
}
