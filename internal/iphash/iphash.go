// Package iphash derives a stable, salted identifier from a connecting IP
// address so view rows can be correlated without ever storing the address
// itself.
package iphash

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher computes salted hashes of IP addresses.
type Hasher struct {
	salt string
}

// New constructs a Hasher with the given salt. The salt must stay stable
// across deploys or hashes stop matching historical rows.
func New(salt string) *Hasher {
	return &Hasher{salt: salt}
}

// Hash returns the hex-encoded SHA-256 of salt and address. An empty
// address hashes too, so rows recorded behind a misconfigured proxy still
// group together rather than being dropped.
func (h *Hasher) Hash(ip string) string {
	sum := sha256.Sum256([]byte(h.salt + "|" + ip))
	return hex.EncodeToString(sum[:])
}
