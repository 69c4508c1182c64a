// Package integrity verifies completed downloads against an expected hash.
package integrity

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
)

const copyBufferSize = 4 * 1024 * 1024

// Verifier checks a completed file's hash against an expected value.
type Verifier struct{}

// NewVerifier constructs a Verifier.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify returns an error if the file at path does not hash to expected
// under algo. A blank expected hash is treated as "nothing to verify".
func (v *Verifier) Verify(path, algo, expected string) error {
	if expected == "" {
		return nil
	}
	actual, err := CalculateHash(path, algo)
	if err != nil {
		return err
	}
	if actual != expected {
		return fmt.Errorf("hash mismatch: expected %s, got %s", expected, actual)
	}
	return nil
}

// CalculateHash computes the hex-encoded hash of a file. algorithm must be
// "sha256" or "md5".
func CalculateHash(path, algorithm string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for hashing: %w", err)
	}
	defer f.Close()

	var hasher hash.Hash
	switch algorithm {
	case "sha256", "":
		hasher = sha256.New()
	case "md5":
		hasher = md5.New()
	default:
		return "", fmt.Errorf("unsupported hash algorithm: %s", algorithm)
	}

	buf := make([]byte, copyBufferSize)
	if _, err := io.CopyBuffer(hasher, f, buf); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
