// Package sanitize normalizes memory destination components into valid
// collection names for the embedded store.
//
// A validated memory entry carries a proposed destination {scope, location};
// the persistence sink maps that pair onto a collection whose name must match
// ^[a-z0-9_]{1,64}$.
package sanitize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	// MaxCollectionNameLength is the maximum length of a collection name.
	MaxCollectionNameLength = 64

	// hashSuffixLength is the length of the "_<8-char-hash>" suffix added to
	// truncated names.
	hashSuffixLength = 9

	// DefaultComponent is substituted when sanitization empties a component.
	DefaultComponent = "general"
)

// Component sanitizes a single destination component (scope or location).
//
// Rules applied:
//   - lowercase
//   - invalid characters become underscores
//   - runs of underscores collapse, leading/trailing underscores are trimmed
//   - over-long components are truncated with a hash suffix
//   - an empty result becomes DefaultComponent
func Component(s string) string {
	if s == "" {
		return DefaultComponent
	}

	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	sanitized := b.String()
	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, "_")

	if sanitized == "" {
		return DefaultComponent
	}

	if len(sanitized) > MaxCollectionNameLength {
		sanitized = truncateWithHash(sanitized)
	}

	return sanitized
}

// DestinationCollection builds a collection name from a destination's scope
// and location.
//
// Format: {sanitized_scope}_{sanitized_location}
// Example: DestinationCollection("Business", "decisions/2026") -> "business_decisions_2026"
func DestinationCollection(scope, location string) string {
	name := Component(scope) + "_" + Component(location)
	if len(name) > MaxCollectionNameLength {
		name = truncateWithHash(name)
	}
	return name
}

// truncateWithHash shortens a name to fit MaxCollectionNameLength while
// preserving uniqueness via a hash of the original.
func truncateWithHash(s string) string {
	hash := sha256.Sum256([]byte(s))
	suffix := "_" + hex.EncodeToString(hash[:])[:8]

	truncated := s[:MaxCollectionNameLength-hashSuffixLength]
	truncated = strings.TrimRight(truncated, "_")

	return truncated + suffix
}
