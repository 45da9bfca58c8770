package signin

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/fieldflow/internal/model"
)

// DefaultPasswordMinLength is used when the environment does not set one.
const DefaultPasswordMinLength = 8

// ValidationError is a typed form error shown inline.
type ValidationError int

const (
	NoValidationError ValidationError = iota
	EmailEmpty
	EmailInvalid
	PasswordTooShort
)

func (e ValidationError) Error() string {
	switch e {
	case EmailEmpty:
		return "email is required"
	case EmailInvalid:
		return "email is invalid"
	case PasswordTooShort:
		return "password is too short"
	default:
		return ""
	}
}

// NormalizeEmail returns the NFC-normalized, trimmed email.
func NormalizeEmail(s string) model.Email {
	return model.Email(norm.NFC.String(strings.TrimSpace(s)))
}

// Validate checks the form. Email must be a bare address with a dotted
// domain; the password must have at least minLength characters.
func Validate(email model.Email, password string, minLength int) ValidationError {
	if minLength <= 0 {
		minLength = DefaultPasswordMinLength
	}

	e := NormalizeEmail(string(email))
	if e == "" {
		return EmailEmpty
	}
	addr, err := mail.ParseAddress(string(e))
	if err != nil || addr.Name != "" || addr.Address != string(e) {
		return EmailInvalid
	}
	at := strings.LastIndexByte(addr.Address, '@')
	domain := addr.Address[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return EmailInvalid
	}

	if utf8.RuneCountInString(password) < minLength {
		return PasswordTooShort
	}
	return NoValidationError
}
