// Package validators checks the shape of inbound identity fields.
// Business rules stay inside the aggregates; these guards only reject
// input that could never be valid.
package validators

import (
	"errors"
	"fmt"

	"github.com/asaskevich/govalidator"
)

var (
	// ErrInvalidEmail is returned for a malformed email address.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidUsername is returned for a malformed username.
	ErrInvalidUsername = errors.New("invalid username")
)

// Email validates the address shape. Deliverability is not checked.
func Email(value string) error {
	if value == "" || !govalidator.IsEmail(value) {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, value)
	}
	return nil
}

// Username accepts 3 to 32 printable ASCII characters without spaces.
func Username(value string) error {
	if len(value) < 3 || len(value) > 32 {
		return fmt.Errorf("%w: %q must be 3-32 characters", ErrInvalidUsername, value)
	}
	if !govalidator.IsPrintableASCII(value) || govalidator.HasWhitespace(value) {
		return fmt.Errorf("%w: %q", ErrInvalidUsername, value)
	}
	return nil
}
