package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// GenerateKey hashes the parts into a fixed-length key. Update IDs and
// chat IDs go in raw; the hash keeps Redis keys uniform regardless.
func GenerateKey(parts ...interface{}) string {
	var b strings.Builder
	for _, p := range parts {
		fmt.Fprintf(&b, "%v:", p)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
