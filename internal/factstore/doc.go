// Package factstore is an in-memory working memory with a forward-chaining
// rule matcher.
//
// Facts are either ordered, such as (slot pizza_size "big"), or named against
// a declared template, such as (user (id "42") (requests "a" "b")). Rules hold
// match and absent conditions over fact patterns with joined variables, and
// assert or retract facts when they fire.
//
// Firing follows refraction: an activation (a rule together with the facts
// that satisfied its match conditions) fires at most once while it remains
// valid. Activations are selected by salience, then recency, then rule
// declaration order. Matching is recomputed from working memory on every
// step; there is no Rete network.
//
// A Store is not safe for concurrent use.
package factstore
