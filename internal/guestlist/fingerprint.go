package guestlist

import (
	"crypto/sha256"
	"encoding/hex"
)

const fingerprintPrefix = "sha256:"

// Fingerprint returns a stable content hash of a payload. Identical bytes give identical fingerprints.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return fingerprintPrefix + hex.EncodeToString(sum[:])
}
