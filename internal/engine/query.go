package engine

import (
	"fmt"

	"github.com/roach88/slotreason/internal/codec"
	"github.com/roach88/slotreason/internal/factstore"
	"github.com/roach88/slotreason/internal/ir"
)

// Facts returns all facts in working memory, oldest first.
func (e *Engine) Facts() []factstore.Fact {
	return e.facts.Facts()
}

// CollectFactValues returns the decoded values of every fact of template:
// ordered facts as arrays, named facts as objects.
func (e *Engine) CollectFactValues(template string) []ir.IRValue {
	var out []ir.IRValue
	for _, f := range e.facts.Facts() {
		if f.Template == template {
			out = append(out, codec.FactValue(f))
		}
	}
	return out
}

// Dump renders working memory as fact texts, oldest first. Restore reads
// the result back.
func (e *Engine) Dump() []string {
	facts := e.facts.Facts()
	out := make([]string, len(facts))
	for i, f := range facts {
		out[i] = f.String()
	}
	return out
}

// Restore resets the engine and asserts the dumped facts. Facts already
// present after the reset, such as the program's initial facts, are not
// duplicated.
func (e *Engine) Restore(texts []string) error {
	e.Reset()
	for _, text := range texts {
		if _, err := e.facts.AssertString(text); err != nil {
			return fmt.Errorf("restore fact %s: %w", text, err)
		}
	}
	return nil
}
