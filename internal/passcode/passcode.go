// Package passcode hashes and verifies entity passcodes.
package passcode

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	iterations = 600_000
	saltLen    = 16
	keyLen     = 32
)

// Hash derives a stored passcode value in the form
// pbkdf2-sha256$iterations$salt$key.
func Hash(passcode string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(passcode), salt, iterations, keyLen, sha256.New)
	return fmt.Sprintf("pbkdf2-sha256$%d$%s$%s",
		iterations,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether the supplied passcode matches the stored hash.
// An empty stored value never matches a non-empty supplied value.
func Verify(supplied, stored string) bool {
	if supplied == "" || stored == "" {
		return false
	}

	parts := strings.Split(stored, "$")
	if len(parts) != 4 || parts[0] != "pbkdf2-sha256" {
		// Legacy plain passcodes compare directly.
		return subtle.ConstantTimeCompare([]byte(supplied), []byte(stored)) == 1
	}

	iters, err := strconv.Atoi(parts[1])
	if err != nil || iters <= 0 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return false
	}

	got := pbkdf2.Key([]byte(supplied), salt, iters, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}
