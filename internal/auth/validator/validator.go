// Package validator provides the email-shape check the chat router uses
// to recognise a customer-supplied address inside free text.
package validator

import "regexp"

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// IsValidEmail validates email format.
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}
