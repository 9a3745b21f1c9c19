package cryptoutils

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// CiphertextDigest returns the hex BLAKE2b-256 digest of a stored ciphertext.
// Clients compare it against their own copy to detect transfer corruption.
func CiphertextDigest(ciphertext []byte) string {
	sum := blake2b.Sum256(ciphertext)
	return hex.EncodeToString(sum[:])
}
