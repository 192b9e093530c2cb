package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const DefaultBcryptCost = 12

var (
	ErrPasswordTooShort = errors.New("password is too short")
	ErrPasswordTooWeak  = errors.New("password needs upper and lower case letters, a digit and a symbol")
)

// PasswordPolicy is the rule set a new password must satisfy.
type PasswordPolicy struct {
	MinLength int
	// RequireMixed demands a lower case letter, an upper case letter, a digit
	// and a symbol.
	RequireMixed bool
}

var (
	// RegistrationPolicy applies when an account is created.
	RegistrationPolicy = PasswordPolicy{MinLength: 8}
	// ResetPolicy applies when a password is replaced through a reset link.
	ResetPolicy = PasswordPolicy{MinLength: 8, RequireMixed: true}
)

// Check returns ErrPasswordTooShort or ErrPasswordTooWeak, wrapped with the
// policy's limits.
func (p PasswordPolicy) Check(password string) error {
	if len(password) < p.MinLength {
		return fmt.Errorf("%w: at least %d characters required", ErrPasswordTooShort, p.MinLength)
	}
	if !p.RequireMixed {
		return nil
	}
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	if !lower || !upper || !digit || !symbol {
		return ErrPasswordTooWeak
	}
	return nil
}

// Hasher produces and verifies bcrypt hashes at a fixed cost.
type Hasher struct {
	cost int
}

// NewHasher clamps cost into bcrypt's accepted range.
func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return Hasher{cost: cost}
}

func (h Hasher) Cost() int { return h.cost }

// Hash checks password against policy and hashes it.
func (h Hasher) Hash(password string, policy PasswordPolicy) (string, error) {
	if err := policy.Check(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Matches compares a password with its hash.
func (h Hasher) Matches(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NeedsRehash reports whether hash was produced at a different cost.
func (h Hasher) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	return err == nil && cost != h.cost
}

// HashToken digests a bearer secret for storage.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
