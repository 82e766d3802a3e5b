package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalFacts converts fact texts to JSON TEXT for storage.
// HTML escaping is disabled so quotes and angle brackets in fact strings
// stay readable in the database.
func marshalFacts(facts []string) (string, error) {
	if facts == nil {
		facts = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(facts); err != nil {
		return "", fmt.Errorf("marshal facts: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalFacts parses JSON TEXT to fact texts.
func unmarshalFacts(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return []string{}, nil
	}
	var facts []string
	if err := json.Unmarshal([]byte(data), &facts); err != nil {
		return nil, fmt.Errorf("unmarshal facts: %w", err)
	}
	return facts, nil
}
