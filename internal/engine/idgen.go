package engine

import "github.com/google/uuid"

// IDGenerator names engines. Engine IDs appear in log lines, pool metrics
// and persisted sessions.
type IDGenerator interface {
	Generate() string
}

// IDGeneratorFunc adapts a plain function to IDGenerator.
type IDGeneratorFunc func() string

// Generate calls f.
func (f IDGeneratorFunc) Generate() string { return f() }

// UUIDv7Generator is the default: UUIDv7 IDs sort by creation time, so
// sessions listed from the store come back in the order engines were built.
type UUIDv7Generator struct{}

// Generate panics only if the system clock or entropy source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
