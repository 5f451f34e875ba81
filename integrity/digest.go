// Package integrity verifies model artifacts against expected SHA-256 digests
// before they are handed to an inference backend, and keeps the most recent
// mismatch for diagnostics.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strings"
)

// ComputeDigest streams the file at path through SHA-256 and returns the
// lowercase hexadecimal digest.
//
// Parameters:
//   - path: file to hash
//
// Returns:
//   - string: 64 lowercase hex characters, or "" if the file could not be
//     opened or read in full
//
// An empty result is never a valid digest, so callers comparing against an
// expected value fail closed without a separate error path.
func ComputeDigest(path string) string {
	if path == "" {
		return ""
	}

	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return ""
	}

	return hex.EncodeToString(hasher.Sum(nil))
}

// DigestBytes returns the lowercase hex SHA-256 of data.
func DigestBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Normalize trims whitespace and lowercases a hex digest.
func Normalize(digest string) string {
	return strings.ToLower(strings.TrimSpace(digest))
}
