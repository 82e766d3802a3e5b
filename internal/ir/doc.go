// Package ir provides the host-side value model shared by every other package.
//
// ir imports nothing internal. Values form a closed variant: IRNull, IRBool,
// IRInt, IRFloat, IRString, IRArray and IRObject. Slot values are scalars or
// arrays of scalars; named facts are objects whose fields hold scalars or
// arrays of scalars.
//
// Canonical JSON (RFC 8785 key order, NFC strings) backs the content hashes
// used to identify persisted states and rule sets.
package ir
