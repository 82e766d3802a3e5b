// Package engine implements slot-based reasoning on top of a forward-chaining
// fact store.
//
// An Engine owns one FactStore loaded with a rule program, one optional
// function resolver and a few counters. Callers write slots and facts into
// working memory, call Reason, and read the outcome back either as a slot
// diff or through the fact queries.
//
// REASONING CYCLE:
//
// 1. Run the fact store to its fixpoint.
// 2. Scan working memory once for directive facts (call_f, slot_f,
// unique_slot, unique_slot_f, call_and_assert), calling functions and
// recording the retractions and assertions each directive asks for.
// 3. Apply all retractions, then all assertions.
// 4. Repeat while the scan found any directive.
//
// Every cycle is admitted by a cycle budget; running out of cycles fails the
// call with CYCLE_LIMIT_EXCEEDED. Nothing applied by earlier cycles is rolled
// back when a later cycle fails.
//
// SLOTS:
//
// A slot is an ordered fact (slot <name> <value>...). One value reads back
// as a scalar, several as an array. The unique_slot directives keep at most
// one slot fact per name; plain slot_f directives and AssertSlot do not.
//
// Engines are not safe for concurrent use. Share them through internal/pool.
package engine
