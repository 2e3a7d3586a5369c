package identity

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost trades hashing time against brute-force resistance; 10 keeps
// logins fast enough for device-bound secrets.
const bcryptCost = 10

// HashSecret generates a bcrypt hash of a login secret.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hash), nil
}

// VerifySecret reports whether the secret matches the stored hash.
func VerifySecret(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
