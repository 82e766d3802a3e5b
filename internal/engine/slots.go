package engine

import (
	"fmt"

	"github.com/roach88/slotreason/internal/codec"
	"github.com/roach88/slotreason/internal/factstore"
	"github.com/roach88/slotreason/internal/ir"
)

// SlotTemplate is the template name of slot facts.
const SlotTemplate = codec.SlotTemplate

// valueText returns the textual form used to compare names: symbols and
// strings by their text, other values by their literal.
func valueText(v factstore.Value) string {
	if s, ok := factstore.Text(v); ok {
		return s
	}
	return v.String()
}

// isSlot reports whether f is a slot fact with a name.
func isSlot(f factstore.Fact) bool {
	return f.Template == SlotTemplate && !f.Named() && len(f.Values) > 0
}

// slotName returns the name of a slot fact.
func slotName(f factstore.Fact) string {
	return valueText(f.Values[0])
}

// slotValue decodes the value of a slot fact.
func slotValue(f factstore.Fact) ir.IRValue {
	return codec.SlotValue(f.Values[1:])
}

// AllSlots returns every slot fact in working memory, oldest first.
func (e *Engine) AllSlots() []factstore.Fact {
	var out []factstore.Fact
	for _, f := range e.facts.Facts() {
		if isSlot(f) {
			out = append(out, f)
		}
	}
	return out
}

// SlotsByName returns the slot facts named name, oldest first.
func (e *Engine) SlotsByName(name string) []factstore.Fact {
	var out []factstore.Fact
	for _, f := range e.facts.Facts() {
		if isSlot(f) && slotName(f) == name {
			out = append(out, f)
		}
	}
	return out
}

// RetractSlotsByName retracts every slot fact named name and returns how
// many were retracted.
func (e *Engine) RetractSlotsByName(name string) (int, error) {
	count := 0
	for _, f := range e.SlotsByName(name) {
		if err := e.facts.Retract(f.ID); err != nil {
			return count, fmt.Errorf("retract slot %s: %w", name, err)
		}
		count++
	}
	return count, nil
}

// Slots returns the current slot values by name. When several facts share a
// name the newest wins.
func (e *Engine) Slots() map[string]ir.IRValue {
	return slotMap(e.AllSlots())
}

func slotMap(facts []factstore.Fact) map[string]ir.IRValue {
	out := make(map[string]ir.IRValue)
	for _, f := range facts {
		if isSlot(f) {
			out[slotName(f)] = slotValue(f)
		}
	}
	return out
}
