package identity

import "github.com/plaenen/catalog/pkg/domain"

// UserCreated is recorded when a user is registered.
type UserCreated struct {
	domain.EventMarker

	UserID   string
	Email    string
	Username string
}

func (UserCreated) MessageName() string { return "identity.UserCreated" }

// RoleAssigned is recorded when a user gains a role.
type RoleAssigned struct {
	domain.EventMarker

	UserID string
	Role   string
}

func (RoleAssigned) MessageName() string { return "identity.RoleAssigned" }

// RoleRevoked is recorded when a user loses a role.
type RoleRevoked struct {
	domain.EventMarker

	UserID string
	Role   string
}

func (RoleRevoked) MessageName() string { return "identity.RoleRevoked" }

// UserEmailChanged is recorded when a user's email address changes.
type UserEmailChanged struct {
	domain.EventMarker

	UserID   string
	OldEmail string
	NewEmail string
}

func (UserEmailChanged) MessageName() string { return "identity.UserEmailChanged" }

// UserDeactivated is recorded when a user is soft-deleted.
type UserDeactivated struct {
	domain.EventMarker

	UserID string
}

func (UserDeactivated) MessageName() string { return "identity.UserDeactivated" }
