package services

import (
	"net/http"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// PasswordService hashes and verifies passwords with bcrypt
type PasswordService struct {
	cost int
}

// NewPasswordService creates a password service with the given bcrypt cost
func NewPasswordService(cost int) *PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordService{cost: cost}
}

// Hash returns the bcrypt hash of the password
func (s *PasswordService) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Compare reports whether the password matches the stored hash
func (s *PasswordService) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidateStrength checks the password policy: at least 8 characters with
// an uppercase letter, a lowercase letter, a digit, and a special
// character.
func (s *PasswordService) ValidateStrength(password string) *Error {
	if len(password) < 8 {
		return NewError("WEAK_PASSWORD", http.StatusBadRequest,
			"Password must be at least 8 characters long")
	}
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !hasSpecial {
		return NewError("WEAK_PASSWORD", http.StatusBadRequest,
			"Password must contain uppercase, lowercase, number and special character")
	}
	return nil
}
