// Package password provides bcrypt hashing and strength validation for
// identity credentials.
package password

import (
	"errors"

	passwordvalidator "github.com/wagslane/go-password-validator"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinCost     = bcrypt.MinCost
	MaxCost     = bcrypt.MaxCost
	DefaultCost = 12

	// MaxLength prevents DoS via extremely long passwords.
	MaxLength = 128

	// minEntropyBits is the minimum password entropy accepted at registration.
	minEntropyBits = 60
)

// Compare compares a hashed password with its possible plaintext equivalent
// in constant time.
func Compare(hashed, plain string) error {
	if hashed == "" {
		return errors.New("hashed password cannot be empty")
	}
	if plain == "" {
		return errors.New("password cannot be empty")
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// Option configures hashing.
type Option func(*options)

type options struct {
	cost int
}

// WithCost sets the bcrypt cost factor. Values outside the valid range keep
// the default.
func WithCost(cost int) Option {
	return func(o *options) {
		if cost >= MinCost && cost <= MaxCost {
			o.cost = cost
		}
	}
}

// Hash generates a bcrypt hash of the password.
func Hash(plain string, opts ...Option) (string, error) {
	if plain == "" {
		return "", errors.New("password cannot be empty")
	}
	if len(plain) > MaxLength {
		return "", errors.New("password too long")
	}

	o := &options{cost: DefaultCost}
	for _, opt := range opts {
		opt(o)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), o.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ValidateStrength rejects passwords below the minimum entropy.
func ValidateStrength(plain string) error {
	return passwordvalidator.Validate(plain, minEntropyBits)
}
