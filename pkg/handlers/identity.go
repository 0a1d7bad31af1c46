// Package handlers contains the command handlers and event handlers the
// composition root registers on the bus. Command handlers load aggregates
// through the unit of work, apply the mutation, persist, and commit; event
// handlers project committed facts into the read model or react with their
// own unit of work.
package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/plaenen/catalog/pkg/domain"
	"github.com/plaenen/catalog/pkg/identity"
	"github.com/plaenen/catalog/pkg/password"
	"github.com/plaenen/catalog/pkg/storage"
	"github.com/plaenen/catalog/pkg/unitofwork"
	"github.com/plaenen/catalog/pkg/validators"
)

// ErrEmailTaken is returned when registration reuses an email address.
var ErrEmailTaken = errors.New("email address already registered")

// CreateUser registers a new user after validating the email, username and
// password, and enforcing email uniqueness.
type CreateUser struct{}

func (CreateUser) Handle(ctx context.Context, uow *unitofwork.UnitOfWork, c domain.Command) error {
	cmd, ok := c.(identity.CreateUser)
	if !ok {
		return fmt.Errorf("unexpected command type %T", c)
	}

	if err := validators.Email(cmd.Email); err != nil {
		return err
	}
	if err := validators.Username(cmd.Username); err != nil {
		return err
	}
	if err := password.ValidateStrength(cmd.Password); err != nil {
		return fmt.Errorf("weak password: %w", err)
	}

	_, err := uow.Users().GetBy(ctx, storage.Filter{Field: "email", Value: cmd.Email})
	switch {
	case err == nil, errors.Is(err, domain.ErrMultipleEntitiesFound):
		return fmt.Errorf("%w: %s", ErrEmailTaken, cmd.Email)
	case !errors.Is(err, domain.ErrEntityNotFound):
		return err
	}

	hash, err := password.Hash(cmd.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	id := cmd.UserID
	if id == "" {
		id = uuid.NewString()
	}

	user := identity.NewUser(id, cmd.Email, cmd.Username, hash)
	if err := uow.Users().Add(ctx, user); err != nil {
		return err
	}
	return uow.Commit(ctx)
}

// AssignRole grants a role to an existing user.
type AssignRole struct{}

func (AssignRole) Handle(ctx context.Context, uow *unitofwork.UnitOfWork, c domain.Command) error {
	cmd, ok := c.(identity.AssignRole)
	if !ok {
		return fmt.Errorf("unexpected command type %T", c)
	}
	return mutateUser(ctx, uow, cmd.UserID, func(u *identity.User) error {
		return u.AssignRole(cmd.Role)
	})
}

// RevokeRole removes a role from an existing user.
type RevokeRole struct{}

func (RevokeRole) Handle(ctx context.Context, uow *unitofwork.UnitOfWork, c domain.Command) error {
	cmd, ok := c.(identity.RevokeRole)
	if !ok {
		return fmt.Errorf("unexpected command type %T", c)
	}
	return mutateUser(ctx, uow, cmd.UserID, func(u *identity.User) error {
		return u.RevokeRole(cmd.Role)
	})
}

// ChangeUserEmail replaces a user's email address after validation.
type ChangeUserEmail struct{}

func (ChangeUserEmail) Handle(ctx context.Context, uow *unitofwork.UnitOfWork, c domain.Command) error {
	cmd, ok := c.(identity.ChangeUserEmail)
	if !ok {
		return fmt.Errorf("unexpected command type %T", c)
	}
	if err := validators.Email(cmd.Email); err != nil {
		return err
	}
	return mutateUser(ctx, uow, cmd.UserID, func(u *identity.User) error {
		return u.ChangeEmail(cmd.Email)
	})
}

// DeactivateUser soft-deletes a user. The UserDeactivated event triggers
// offboarding of the products they own.
type DeactivateUser struct{}

func (DeactivateUser) Handle(ctx context.Context, uow *unitofwork.UnitOfWork, c domain.Command) error {
	cmd, ok := c.(identity.DeactivateUser)
	if !ok {
		return fmt.Errorf("unexpected command type %T", c)
	}
	return mutateUser(ctx, uow, cmd.UserID, (*identity.User).Deactivate)
}

func mutateUser(ctx context.Context, uow *unitofwork.UnitOfWork, id string, mutate func(*identity.User) error) error {
	user, err := uow.Users().Get(ctx, id)
	if err != nil {
		return err
	}
	if err := mutate(user); err != nil {
		return err
	}
	if err := uow.Users().Persist(ctx, user); err != nil {
		return err
	}
	return uow.Commit(ctx)
}
