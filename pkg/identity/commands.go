package identity

import "github.com/plaenen/catalog/pkg/domain"

// CreateUser registers a new user. UserID is optional; the handler assigns
// one when empty.
type CreateUser struct {
	domain.CommandMarker

	UserID   string
	Email    string
	Username string
	Password string
}

func (CreateUser) MessageName() string { return "identity.CreateUser" }

// AssignRole grants a role to an existing user.
type AssignRole struct {
	domain.CommandMarker

	UserID string
	Role   string
}

func (AssignRole) MessageName() string { return "identity.AssignRole" }

// RevokeRole removes a role from an existing user.
type RevokeRole struct {
	domain.CommandMarker

	UserID string
	Role   string
}

func (RevokeRole) MessageName() string { return "identity.RevokeRole" }

// ChangeUserEmail replaces a user's email address.
type ChangeUserEmail struct {
	domain.CommandMarker

	UserID string
	Email  string
}

func (ChangeUserEmail) MessageName() string { return "identity.ChangeUserEmail" }

// DeactivateUser soft-deletes a user.
type DeactivateUser struct {
	domain.CommandMarker

	UserID string
}

func (DeactivateUser) MessageName() string { return "identity.DeactivateUser" }
