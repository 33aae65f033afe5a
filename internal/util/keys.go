package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// ResultKey returns prefix + ":" + the first 128 bits of sha256(query) in hex.
// Query text can be arbitrarily long and contain bytes some providers reject
// in keys, so it is never used verbatim.
func ResultKey(prefix, query string) string {
	sum := sha256.Sum256([]byte(query))
	return prefix + ":" + hex.EncodeToString(sum[:16])
}
