package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"

	"annuaire/internal/constants"
)

// Hasher turns a plaintext password into an opaque digest and verifies
// candidates against it. The registry only ever sees digests.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) error
}

// BcryptHasher is the default Hasher, backed by bcrypt with a configurable cost.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a bcrypt hasher. Costs outside bcrypt's supported
// range fall back to the default cost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = constants.AuthBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash hashes a plaintext password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Verify checks a plaintext password against a stored digest.
// Returns nil on match, an error on mismatch or malformed digest.
func (h *BcryptHasher) Verify(password, digest string) error {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
}

// GeneratePassword creates a cryptographically secure random password.
// Uses a mix of lowercase, uppercase, digits, and special characters.
func GeneratePassword() (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	length := constants.AuthPasswordGenLength

	password := make([]byte, length)
	charsetLen := big.NewInt(int64(len(charset)))

	for i := range password {
		idx, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		password[i] = charset[idx.Int64()]
	}

	return string(password), nil
}
