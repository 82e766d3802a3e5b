package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainState   = "slotreason/state/v1"
	DomainSlots   = "slotreason/slots/v1"
	DomainRuleSet = "slotreason/ruleset/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// StateHash identifies a persisted working memory by its fact texts.
// Order matters: the same facts asserted in a different order restore
// with different fact IDs and therefore a different agenda.
func StateHash(facts []string) (string, error) {
	arr := make(IRArray, len(facts))
	for i, f := range facts {
		arr[i] = IRString(f)
	}
	canonical, err := MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("StateHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainState, canonical), nil
}

// SlotsHash computes a hash over a slot snapshot. Equal snapshots hash
// equally regardless of map iteration order.
func SlotsHash(slots IRObject) (string, error) {
	canonical, err := MarshalCanonical(slots)
	if err != nil {
		return "", fmt.Errorf("SlotsHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSlots, canonical), nil
}

// RuleSetHash identifies a compiled rule set by its canonical description.
func RuleSetHash(desc IRObject) (string, error) {
	canonical, err := MarshalCanonical(desc)
	if err != nil {
		return "", fmt.Errorf("RuleSetHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRuleSet, canonical), nil
}

// MustSlotsHash is like SlotsHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSlotsHash(slots IRObject) string {
	h, err := SlotsHash(slots)
	if err != nil {
		panic(err)
	}
	return h
}
