package auth

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf16"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost matches ten rounds of salting
const DefaultBcryptCost = 10

// MinPasswordLength is the shortest password the policy accepts
const MinPasswordLength = 8

// PasswordRequirements describes the policy for forms and error messages
const PasswordRequirements = "Password must be at least 8 characters and include a digit, a lowercase letter, an uppercase letter and a symbol."

var (
	digitRe  = regexp.MustCompile(`[0-9]`)
	lowerRe  = regexp.MustCompile(`[a-z]`)
	upperRe  = regexp.MustCompile(`[A-Z]`)
	symbolRe = regexp.MustCompile(`\W`)
)

// IsValidPassword reports whether password satisfies the strength policy.
// Length is measured in UTF-16 code units, so a character outside the BMP
// counts twice. Line terminators are rejected outright.
func IsValidPassword(password string) bool {
	if passwordLength(password) < MinPasswordLength {
		return false
	}
	if strings.ContainsAny(password, "\n\r\u2028\u2029") {
		return false
	}
	return digitRe.MatchString(password) &&
		lowerRe.MatchString(password) &&
		upperRe.MatchString(password) &&
		symbolRe.MatchString(password)
}

func passwordLength(password string) int {
	n := 0
	for _, r := range password {
		n += utf16.RuneLen(r)
	}
	return n
}

// HashPassword derives a salted bcrypt hash of password
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares password against a stored bcrypt hash
func VerifyPassword(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
