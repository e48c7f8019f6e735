package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// NormalizeContent lowercases the text and collapses all whitespace runs to a
// single space, so formatting differences between two extractions of the same
// passage do not produce distinct fingerprints.
func NormalizeContent(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	pendingSpace := false
	for _, r := range strings.ToLower(text) {
		if unicode.IsSpace(r) {
			pendingSpace = true
			continue
		}
		if pendingSpace && b.Len() > 0 {
			b.WriteRune(' ')
		}
		pendingSpace = false
		b.WriteRune(r)
	}

	return b.String()
}

// Fingerprint computes the deterministic content fingerprint of a chunk:
// the SHA-256 hex digest of the normalized text. Fingerprints are unique
// within the knowledge store and drive duplicate detection.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(NormalizeContent(text)))
	return hex.EncodeToString(sum[:])
}
