package testutil

// StaticIDGenerator returns the same engine ID every time, so scenario
// transcripts that mention engine IDs stay byte-identical across runs.
//
// Thread-safety: StaticIDGenerator is stateless and safe for concurrent use.
type StaticIDGenerator struct {
	id string
}

// NewStaticIDGenerator creates a generator returning id.
// If id is empty, Generate returns "test-engine".
func NewStaticIDGenerator(id string) *StaticIDGenerator {
	if id == "" {
		id = "test-engine"
	}
	return &StaticIDGenerator{id: id}
}

// Generate returns the fixed ID. Implements engine.IDGenerator.
func (g *StaticIDGenerator) Generate() string {
	return g.id
}
