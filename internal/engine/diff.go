package engine

import (
	"github.com/roach88/slotreason/internal/codec"
	"github.com/roach88/slotreason/internal/factstore"
	"github.com/roach88/slotreason/internal/ir"
)

// Diff reports how the slots in current differ from initial.
//
// Slots whose value changed or that are absent from initial map to their
// current value. Slots present in initial with a non-null value but missing
// from current map to IRNull. Unchanged slots are omitted. When several
// facts share a name the last one in current wins.
func Diff(initial map[string]ir.IRValue, current []factstore.Fact) map[string]ir.IRValue {
	now := slotMap(current)

	changes := make(map[string]ir.IRValue)
	for name, v := range now {
		old, ok := initial[name]
		if !ok || !sameSlotValue(old, v) {
			changes[name] = v
		}
	}
	for name, v := range initial {
		if _, ok := now[name]; ok || v == nil || isNull(v) {
			continue
		}
		changes[name] = ir.IRNull{}
	}
	return changes
}

// sameSlotValue compares slot values as they read back from facts, so a
// one-element array equals its element. Integers and floats compare by
// numeric value: 2 and 2.0 are the same slot value.
func sameSlotValue(a, b ir.IRValue) bool {
	return numericEqual(codec.Normalize(a), codec.Normalize(b))
}

func numericEqual(a, b ir.IRValue) bool {
	if x, ok := number(a); ok {
		y, ok := number(b)
		return ok && x == y
	}
	av, aok := a.(ir.IRArray)
	bv, bok := b.(ir.IRArray)
	if aok && bok {
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !numericEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	}
	return ir.Equal(a, b)
}

// number widens integers and floats. Booleans are not numbers.
func number(v ir.IRValue) (float64, bool) {
	switch n := v.(type) {
	case ir.IRInt:
		return float64(n), true
	case ir.IRFloat:
		return float64(n), true
	}
	return 0, false
}

// CollectResultingSlots returns the slot changes in working memory relative
// to initial. See Diff.
func (e *Engine) CollectResultingSlots(initial map[string]ir.IRValue) map[string]ir.IRValue {
	return Diff(initial, e.AllSlots())
}
