package user

import (
	"unicode"

	errors "github.com/frahmantamala/support-ticketing/internal"
)

const MinPasswordLength = 8

// PasswordHasher turns a plain password into a stored hash.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// ValidatePassword enforces the password strength rules on field.
func ValidatePassword(field, password string) *errors.AppError {
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	var message string
	switch {
	case len([]rune(password)) < MinPasswordLength:
		message = "password must be at least 8 characters long"
	case !upper:
		message = "password must contain at least one uppercase letter"
	case !lower:
		message = "password must contain at least one lowercase letter"
	case !digit:
		message = "password must contain at least one number"
	default:
		return nil
	}
	return errors.NewValidationFieldError(field, message, errors.ErrCodeWeakPassword)
}
