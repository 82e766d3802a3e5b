// Package suggest ranks intents for a user by reasoning over their context.
//
// A ContextAdapter supplies named properties for a user. The Suggester
// asserts them as facts into a pooled engine, reasons, and sums the scores
// of every (slot intent_suggestion <intent> <score>) fact per intent.
package suggest
