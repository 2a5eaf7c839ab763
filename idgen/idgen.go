// Package idgen generates short opaque identifiers for request tracing.
// No nanoid-style generator appears anywhere in the reference pack, so this
// builds short IDs from github.com/google/uuid (already used elsewhere in
// the pack) by hex-truncating a fresh UUIDv4 instead of its canonical
// dashed form.
package idgen

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// TraceID returns a 12-hex-character trace identifier.
func TraceID() string {
	return shortHex(12)
}

// RequestID returns an 8-hex-character request identifier.
func RequestID() string {
	return shortHex(8)
}

func shortHex(n int) string {
	id := uuid.New()
	full := hex.EncodeToString(id[:])
	if n > len(full) {
		n = len(full)
	}
	return full[:n]
}
