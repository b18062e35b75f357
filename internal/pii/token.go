// Package pii masks personally identifying intake fields behind opaque
// placeholder tokens before anything is sent to the drafting provider, and
// reverses the substitution in the provider's output. The token->value map is
// the only bridge between the two; losing it makes masked data unrecoverable.
package pii

import (
	"crypto/rand"
	"fmt"
)

// Category partitions the reversible map. Each category owns a distinct token
// prefix, so tokens can never collide across categories by construction.
type Category string

const (
	CategoryName        Category = "names"
	CategoryValue       Category = "values"
	CategoryDescription Category = "descriptions"
	CategoryDate        Category = "dates"
)

var prefixes = map[Category]string{
	CategoryName:        "PARTY_",
	CategoryValue:       "VALUE_",
	CategoryDescription: "DESC_",
	CategoryDate:        "DATE_",
}

const (
	suffixLen = 6
	alphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// Largest multiple of len(alphabet) that fits in a byte. Bytes at or
	// above it are rejected so every symbol stays equally likely.
	rejectAbove = 256 - 256%len(alphabet)
)

// NewToken mints a placeholder token: category prefix plus a 6-character
// suffix drawn uniformly from a 36-symbol alphabet (~2.2e9 combinations per
// category). Uniqueness is the caller's concern and is scoped to a single map
// build; there is no global registry.
func NewToken(cat Category) (string, error) {
	prefix, ok := prefixes[cat]
	if !ok {
		return "", fmt.Errorf("pii: unknown category %q", cat)
	}
	suffix := make([]byte, 0, suffixLen)
	raw := make([]byte, suffixLen)
	for len(suffix) < suffixLen {
		if _, err := rand.Read(raw); err != nil {
			return "", fmt.Errorf("pii: read randomness: %w", err)
		}
		suffix = appendSymbols(suffix, raw, suffixLen)
	}
	return prefix + string(suffix), nil
}

// appendSymbols maps random bytes onto the alphabet via rejection sampling
// and appends at most want-len(dst) symbols.
func appendSymbols(dst, raw []byte, want int) []byte {
	for _, b := range raw {
		if len(dst) >= want {
			break
		}
		if int(b) >= rejectAbove {
			continue
		}
		dst = append(dst, alphabet[int(b)%len(alphabet)])
	}
	return dst
}
