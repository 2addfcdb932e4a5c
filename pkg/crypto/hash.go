package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashProof digests a credential proof for use as a de-duplication key.
// The plaintext never leaves the call site.
func HashProof(proof string) string {
	sum := sha256.Sum256([]byte(proof))
	return hex.EncodeToString(sum[:])
}
