// Package names derives a stable "Adjective Animal" display name from an
// account identifier. The API service assigns it at registration and chat
// clients fall back to it when no better name is known, so both sides must
// produce the same string for the same identifier.
package names

import "unicode/utf16"

// Hash is a 32-bit rolling hash over the UTF-16 code units of s:
// h = h*31 + unit, wrapping on overflow.
func Hash(s string) int32 {
	var h int32
	for _, unit := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(unit)
	}
	return h
}

// Generate returns the fallback display name for an account identifier.
func Generate(accountID string) string {
	h := Hash(accountID)
	adj := adjectives[abs(h)%int64(len(adjectives))]
	animal := animals[abs(h>>8)%int64(len(animals))]
	return adj + " " + animal
}

// abs widens before negating so math.MinInt32 stays positive.
func abs(v int32) int64 {
	n := int64(v)
	if n < 0 {
		return -n
	}
	return n
}
