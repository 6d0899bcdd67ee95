package auth

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	minPasswordBytes = 6
	// bcrypt ignores input past 72 bytes.
	maxPasswordBytes = 72
	maxNameRunes     = 60
	passwordSpecials = "@$!%*?&#^()_-+="
)

// SignupInput is the signup payload.
type SignupInput struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name,omitempty"`
}

// LoginInput is the login payload.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the signup payload against the account rules.
func (in SignupInput) Validate() error {
	if err := validateEmail(in.Email); err != nil {
		return err
	}
	if err := validatePasswordLength(in.Password); err != nil {
		return err
	}
	if err := validatePasswordStrength(in.Password); err != nil {
		return err
	}
	if in.Name != nil {
		n := utf8.RuneCountInString(*in.Name)
		if n < 1 || n > maxNameRunes {
			return fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidInput, maxNameRunes)
		}
	}
	return nil
}

// Validate checks the login payload shape. Strength rules are not applied.
func (in LoginInput) Validate() error {
	if err := validateEmail(in.Email); err != nil {
		return err
	}
	return validatePasswordLength(in.Password)
}

func validateEmail(email string) error {
	if email == "" || strings.TrimSpace(email) != email {
		return fmt.Errorf("%w: email is malformed", ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email {
		return fmt.Errorf("%w: email is malformed", ErrInvalidInput)
	}
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || !strings.Contains(email[at+1:], ".") {
		return fmt.Errorf("%w: email is malformed", ErrInvalidInput)
	}
	return nil
}

func validatePasswordLength(password string) error {
	if len(password) < minPasswordBytes || len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be %d-%d bytes", ErrInvalidInput, minPasswordBytes, maxPasswordBytes)
	}
	return nil
}

func validatePasswordStrength(password string) error {
	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !lower || !upper || !digit || !special {
		return fmt.Errorf("%w: password needs lowercase, uppercase, digit and special character", ErrInvalidInput)
	}
	return nil
}
