// Package validation holds the field rules shared by sign-up, reservations
// and the lead forms.
package validation

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	fullnameRe = regexp.MustCompile(`^[\p{L}\s\-'.]+$`)
	phoneRe    = regexp.MustCompile(`^\+?[0-9\s\-().]+$`)
)

const minPasswordLen = 8

// IsValidEmail is a shape check only: local@domain.tld without spaces.
func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsValidPassword wants minPasswordLen characters mixing letters, digits and
// at least one symbol or punctuation mark.
func IsValidPassword(password string) bool {
	if len([]rune(password)) < minPasswordLen {
		return false
	}
	var letter, digit, symbol bool
	for _, r := range password {
		letter = letter || unicode.IsLetter(r)
		digit = digit || unicode.IsDigit(r)
		symbol = symbol || unicode.IsPunct(r) || unicode.IsSymbol(r)
	}
	return letter && digit && symbol
}

// IsValidFullname accepts letters in any script plus spaces, hyphens,
// apostrophes and initials ("María J. Peña").
func IsValidFullname(fullname string) bool {
	return strings.TrimSpace(fullname) != "" && fullnameRe.MatchString(fullname)
}

// CleanPhone trims a contact phone and reports whether it is usable. Empty is
// fine (phone is optional). Otherwise it must carry 8 to 15 digits, as in
// "+56 9 1234 5678", with only the usual separators around them.
func CleanPhone(phone string) (string, bool) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", true
	}
	if !phoneRe.MatchString(phone) {
		return phone, false
	}
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return phone, digits >= 8 && digits <= 15
}
