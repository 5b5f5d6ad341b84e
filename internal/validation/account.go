// Package validation checks user-supplied identifiers and secrets before they reach the store.
package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxUsernameLength = 150
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MaxEmailLength    = 254
)

var usernameRegex = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

// Usernames that would shadow a top-level route.
var reservedUsernames = map[string]struct{}{
	"new":     {},
	"follow":  {},
	"group":   {},
	"auth":    {},
	"admin":   {},
	"media":   {},
	"health":  {},
	"metrics": {},
}

var commonPasswords = map[string]struct{}{
	"password":   {},
	"password1":  {},
	"12345678":   {},
	"123456789":  {},
	"qwertyuiop": {},
	"iloveyou":   {},
	"sunshine":   {},
	"football":   {},
	"baseball":   {},
	"welcome1":   {},
}

var (
	ErrUsernameRequired = errors.New("username is required")
	ErrUsernameTooLong  = fmt.Errorf("username must be at most %d characters", MaxUsernameLength)
	ErrUsernameInvalid  = errors.New("username may contain only letters, digits and @/./+/-/_")
	ErrUsernameReserved = errors.New("username is reserved")
)

// ValidateUsername checks length, character set and reserved route names.
func ValidateUsername(username string) error {
	switch n := utf8.RuneCountInString(username); {
	case n == 0:
		return ErrUsernameRequired
	case n > MaxUsernameLength:
		return ErrUsernameTooLong
	}
	if !usernameRegex.MatchString(username) {
		return ErrUsernameInvalid
	}
	if _, reserved := reservedUsernames[strings.ToLower(username)]; reserved {
		return ErrUsernameReserved
	}
	return nil
}

// ValidatePassword applies the account password policy: minimum length, not
// entirely numeric, not a common password and not derived from the username.
func ValidatePassword(password, username string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if n > MaxPasswordLength {
		return fmt.Errorf("password must be at most %d characters", MaxPasswordLength)
	}
	if strings.Trim(password, "0123456789") == "" {
		return errors.New("password cannot be entirely numeric")
	}
	lower := strings.ToLower(password)
	if _, common := commonPasswords[lower]; common {
		return errors.New("password is too common")
	}
	if username != "" && strings.Contains(lower, strings.ToLower(username)) {
		return errors.New("password is too similar to the username")
	}
	return nil
}

// ValidateEmail accepts an empty address; otherwise the address must parse and fit the column.
func ValidateEmail(email string) error {
	if email == "" {
		return nil
	}
	if len(email) > MaxEmailLength {
		return fmt.Errorf("email must be at most %d characters", MaxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return errors.New("enter a valid email address")
	}
	return nil
}
