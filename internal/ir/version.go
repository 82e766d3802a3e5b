package ir

// Version constants for persisted state and the engine.
const (
	// StateVersion is the persisted working-memory format version.
	StateVersion = "1"

	// EngineVersion is the slotreason engine version.
	EngineVersion = "0.1.0"
)
