// Package dochash computes and validates content-derived document identities.
package dochash

import (
	"encoding/hex"
	"regexp"

	"golang.org/x/crypto/blake2b"
)

// Length is the hex length of a document hash
const Length = blake2b.Size256 * 2

var hashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Compute returns the BLAKE2b-256 hex digest of content
func Compute(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Valid reports whether hash is a well-formed document hash
func Valid(hash string) bool {
	return hashPattern.MatchString(hash)
}
