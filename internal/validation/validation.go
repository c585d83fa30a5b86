// Package validation holds the input format rules shared by the account
// registry and the directory service.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"annuaire/internal/constants"
)

var usernameRegex = regexp.MustCompile(constants.AuthUsernameRegex)

// Email requires a non-empty local part, exactly one @, and a non-empty
// domain containing at least one dot.
func Email(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	at := strings.Count(email, "@")
	if at != 1 {
		return fmt.Errorf("email must contain exactly one @")
	}
	parts := strings.SplitN(email, "@", 2)
	local, domain := parts[0], parts[1]
	if local == "" {
		return fmt.Errorf("email local part is empty")
	}
	if domain == "" {
		return fmt.Errorf("email domain is empty")
	}
	if !strings.Contains(domain, ".") {
		return fmt.Errorf("email domain must contain a dot")
	}
	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return fmt.Errorf("email domain must not start or end with a dot")
	}
	return nil
}

// Phone is optional. If present it must be digits only, with an optional
// leading +, and contain 8 to 15 digits.
func Phone(phone string) error {
	if phone == "" {
		return nil
	}
	digits := phone
	if strings.HasPrefix(digits, "+") {
		digits = digits[1:]
	}
	if digits == "" {
		return fmt.Errorf("phone must contain digits")
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return fmt.Errorf("phone may only contain digits after an optional leading +")
		}
	}
	if len(digits) < constants.PhoneMinDigits || len(digits) > constants.PhoneMaxDigits {
		return fmt.Errorf("phone must contain between %d and %d digits",
			constants.PhoneMinDigits, constants.PhoneMaxDigits)
	}
	return nil
}

// Username enforces the account name format: 3-64 characters from
// [a-z0-9_-].
func Username(username string) error {
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username must be 3-64 characters from a-z, 0-9, _ and -")
	}
	return nil
}

// Password enforces the configured minimum length and the fixed maximum.
func Password(password string, minLength int) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	if len(password) < minLength {
		return fmt.Errorf("password must be at least %d characters", minLength)
	}
	if len(password) > constants.AuthMaxPasswordLength {
		return fmt.Errorf("password must be at most %d characters", constants.AuthMaxPasswordLength)
	}
	return nil
}

// PersonName validates a mandatory contact name field (nom or prenom).
func PersonName(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}
	if len(value) > constants.MaxNameLength {
		return fmt.Errorf("%s must be at most %d characters", field, constants.MaxNameLength)
	}
	return nil
}

// Address validates the optional address field.
func Address(address string) error {
	if len(address) > constants.MaxAddressLength {
		return fmt.Errorf("adresse must be at most %d characters", constants.MaxAddressLength)
	}
	return nil
}
