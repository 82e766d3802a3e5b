package engine

import (
	"github.com/roach88/slotreason/internal/codec"
	"github.com/roach88/slotreason/internal/factstore"
	"github.com/roach88/slotreason/internal/ir"
)

// resolveUnique decides how to make candidate the only value of slot name.
//
// Existing slot facts are visited oldest first. The first one whose value
// equals candidate (see sameSlotValue) is kept; every other fact with the name is returned for
// retraction. needsAssert is true when no existing fact was kept.
func resolveUnique(slots []factstore.Fact, name string, candidate ir.IRValue) (retract []factstore.Fact, needsAssert bool) {
	candidate = codec.Normalize(candidate)
	needsAssert = true
	for _, f := range slots {
		if !isSlot(f) || slotName(f) != name {
			continue
		}
		if needsAssert && sameSlotValue(slotValue(f), candidate) {
			needsAssert = false
			continue
		}
		retract = append(retract, f)
	}
	return retract, needsAssert
}
