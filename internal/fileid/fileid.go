// Package fileid derives deterministic passage identifiers.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const passagePrefix = "p:"

// PassageID returns a stable ID for a passage from its identifying parts, typically
// act, section, effective date and text. Re-ingesting the same passage yields the
// same ID so the store upserts instead of duplicating.
func PassageID(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(strings.TrimSpace(p)))
		h.Write([]byte{0})
	}
	return passagePrefix + hex.EncodeToString(h.Sum(nil))[:32]
}
