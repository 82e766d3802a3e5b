package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/slotreason/internal/factstore"
)

// CompileProgram compiles a whole rule set: every field under template,
// every field under rule (in declaration order), and the optional facts
// list of initial fact strings. The result is validated as a unit.
func CompileProgram(v cue.Value) (*factstore.Program, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	p := &factstore.Program{}

	templatesVal := v.LookupPath(cue.ParsePath("template"))
	if templatesVal.Exists() {
		iter, err := templatesVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			tmpl, err := CompileTemplate(iter.Value())
			if err != nil {
				return nil, err
			}
			p.Templates = append(p.Templates, tmpl)
		}
	}

	rulesVal := v.LookupPath(cue.ParsePath("rule"))
	if rulesVal.Exists() {
		iter, err := rulesVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			rule, err := CompileRule(iter.Value())
			if err != nil {
				return nil, err
			}
			p.Rules = append(p.Rules, rule)
		}
	}

	facts, err := stringList(v, "facts", "facts")
	if err != nil {
		return nil, err
	}
	for i, text := range facts {
		if _, err := factstore.ParseFact(text); err != nil {
			return nil, &CompileError{
				Field:   fmt.Sprintf("facts[%d]", i),
				Message: err.Error(),
				Pos:     v.LookupPath(cue.ParsePath("facts")).Pos(),
			}
		}
	}
	p.Facts = facts

	if err := p.Validate(); err != nil {
		return nil, &CompileError{Field: "program", Message: err.Error()}
	}
	return p, nil
}

// LoadDir loads the CUE package in dir and builds its value.
func LoadDir(dir string) (cue.Value, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return cue.Value{}, fmt.Errorf("rules directory: %w", err)
	}
	if !info.IsDir() {
		return cue.Value{}, fmt.Errorf("not a directory: %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return value, nil
}

// LoadProgram loads and compiles each directory in turn and merges the
// results in order. Names must be unique across directories.
func LoadProgram(dirs ...string) (*factstore.Program, error) {
	if len(dirs) == 0 {
		return nil, fmt.Errorf("no rules directories given")
	}
	merged := &factstore.Program{}
	for _, dir := range dirs {
		v, err := LoadDir(dir)
		if err != nil {
			return nil, err
		}
		p, err := CompileProgram(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", dir, err)
		}
		merged.Templates = append(merged.Templates, p.Templates...)
		merged.Rules = append(merged.Rules, p.Rules...)
		merged.Facts = append(merged.Facts, p.Facts...)
	}
	if err := merged.Validate(); err != nil {
		return nil, &CompileError{Field: "program", Message: err.Error()}
	}
	return merged, nil
}
