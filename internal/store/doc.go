// Package store persists engine working memories by id.
//
// A State is the ordered list of fact texts produced by engine.Dump, plus a
// content hash and the hash of the rule set that produced it. Two backends
// are provided:
//
//   - Store: SQLite, one row per id in the states table
//   - FileStore: one YAML file per id, <dir>/<id>.persist
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Saving an id that already exists replaces its facts and bumps its
// revision. Loading a missing id is not an error: it reports found=false.
package store
