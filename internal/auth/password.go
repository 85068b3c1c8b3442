package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"riteswipe-api/internal/apperr"

	"golang.org/x/crypto/bcrypt"
)

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hashed), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > 254 || !emailRegex.MatchString(email) {
		return apperr.Validation("A valid email address is required")
	}
	return nil
}

// ValidatePassword requires 8-128 characters with at least one letter and one digit.
func ValidatePassword(password string) error {
	if len(password) < 8 || len(password) > 128 {
		return apperr.Validation("Password must be between 8 and 128 characters")
	}
	hasLetter, hasDigit := false, false
	for _, r := range password {
		if unicode.IsLetter(r) {
			hasLetter = true
		}
		if unicode.IsDigit(r) {
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return apperr.Validation("Password must contain a letter and a digit")
	}
	return nil
}

func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if len(name) == 0 || len(name) > 100 {
		return apperr.Validation("Full name must be between 1 and 100 characters")
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ' ' && r != '-' && r != '_' && r != '\'' && r != '.' {
			return apperr.Validation("Full name contains invalid characters")
		}
	}
	return nil
}

// ErrInvalidCredentials is returned for any failed login, without saying which part was wrong.
var ErrInvalidCredentials = apperr.Unauthorized("Invalid email or password")

// IsInvalidCredentials reports whether err is a failed credential check.
func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}
