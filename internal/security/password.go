package security

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher wraps bcrypt hashing and verification.
type PasswordHasher struct {
	cost int
}

func NewPasswordHasher(cost int) *PasswordHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

func (h *PasswordHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h *PasswordHasher) Verify(plain, hashed string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// ValidatePassword enforces the signup password policy: 8-14 characters with
// at least one uppercase letter, one digit and one symbol.
func ValidatePassword(plain string) error {
	if len(plain) < 8 || len(plain) > 14 {
		return errors.New("password must be 8-14 characters")
	}
	var upper, digit, symbol bool
	for _, r := range plain {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune("!@#$%^&*()_+-=[]{};':\"\\|,.<>/?", r):
			symbol = true
		}
	}
	if !upper || !digit || !symbol {
		return errors.New("password must include 1 uppercase, 1 number and 1 symbol")
	}
	return nil
}
