// Package identity holds the User aggregate and its commands and events.
package identity

import (
	"fmt"
	"slices"

	"github.com/plaenen/catalog/pkg/domain"
)

// User is the identity aggregate: a principal with credentials and roles.
type User struct {
	domain.AggregateRoot

	email        string
	username     string
	passwordHash string
	roles        []string
}

// NewUser creates a user at version 1 and records UserCreated.
func NewUser(id, email, username, passwordHash string) *User {
	u := &User{
		AggregateRoot: domain.NewAggregateRoot(id),
		email:         email,
		username:      username,
		passwordHash:  passwordHash,
	}
	u.Record(UserCreated{UserID: id, Email: email, Username: username})
	return u
}

// Email returns the user's email address.
func (u *User) Email() string { return u.email }

// Username returns the user's username.
func (u *User) Username() string { return u.username }

// PasswordHash returns the bcrypt hash of the user's password.
func (u *User) PasswordHash() string { return u.passwordHash }

// Roles returns a copy of the user's role list.
func (u *User) Roles() []string {
	return slices.Clone(u.roles)
}

// HasRole reports whether the user holds the given role.
func (u *User) HasRole(role string) bool {
	return slices.Contains(u.roles, role)
}

// AssignRole grants a role. Assigning a role the user already holds records
// nothing.
func (u *User) AssignRole(role string) error {
	if err := u.EnsureActive(); err != nil {
		return err
	}
	if role == "" {
		return fmt.Errorf("assign role: role must not be empty")
	}
	if u.HasRole(role) {
		return nil
	}
	u.roles = append(u.roles, role)
	u.Record(RoleAssigned{UserID: u.ID(), Role: role})
	return nil
}

// RevokeRole removes a role. Revoking a role the user does not hold records
// nothing.
func (u *User) RevokeRole(role string) error {
	if err := u.EnsureActive(); err != nil {
		return err
	}
	if !u.HasRole(role) {
		return nil
	}
	u.roles = slices.DeleteFunc(u.roles, func(r string) bool { return r == role })
	u.Record(RoleRevoked{UserID: u.ID(), Role: role})
	return nil
}

// ChangeEmail updates the user's email address.
func (u *User) ChangeEmail(email string) error {
	if err := u.EnsureActive(); err != nil {
		return err
	}
	if email == u.email {
		return nil
	}
	old := u.email
	u.email = email
	u.Record(UserEmailChanged{UserID: u.ID(), OldEmail: old, NewEmail: email})
	return nil
}

// Deactivate discards the user. All further reads and mutations fail.
func (u *User) Deactivate() error {
	if err := u.EnsureActive(); err != nil {
		return err
	}
	u.Discard()
	u.Record(UserDeactivated{UserID: u.ID()})
	return nil
}
