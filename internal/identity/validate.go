package identity

import (
	"regexp"
	"strings"
	"unicode"

	"project-management-api/internal/apperr"
)

var (
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\(\d{3}\) \d{3}-\d{4}$`)
)

var (
	ErrInvalidEmail     = apperr.New(apperr.ErrValidation, "email address is not valid")
	ErrInvalidPhone     = apperr.New(apperr.ErrValidation, "phone number must look like (XXX) XXX-XXXX")
	ErrPasswordMismatch = apperr.New(apperr.ErrValidation, "passwords do not match")
	ErrWeakPassword     = apperr.New(apperr.ErrValidation, "password needs 8+ characters with upper and lower case letters, a digit and a symbol")
	ErrNameRequired     = apperr.New(apperr.ErrValidation, "first and last name are required")
)

func (r *Registration) normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
}

func (r Registration) validate() error {
	switch {
	case r.FirstName == "" || r.LastName == "":
		return ErrNameRequired
	case !emailPattern.MatchString(r.Email):
		return ErrInvalidEmail
	case !phonePattern.MatchString(r.PhoneNumber):
		return ErrInvalidPhone
	case r.Password != r.PasswordConfirm:
		return ErrPasswordMismatch
	case !strongPassword(r.Password):
		return ErrWeakPassword
	}
	return nil
}

func strongPassword(p string) bool {
	if len([]rune(p)) < 8 {
		return false
	}
	var lower, upper, digit, symbol bool
	for _, c := range p {
		switch {
		case unicode.IsLower(c):
			lower = true
		case unicode.IsUpper(c):
			upper = true
		case unicode.IsDigit(c):
			digit = true
		default:
			symbol = true
		}
	}
	return lower && upper && digit && symbol
}
