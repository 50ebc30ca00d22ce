// Package user manages staff accounts. All operations are admin only and
// gated at the router.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"

	"github.com/kasapos/backend-kasa/internal/auth"
	"github.com/kasapos/backend-kasa/internal/common"
	"github.com/kasapos/backend-kasa/internal/store"
)

// Service manages staff accounts.
type Service struct {
	St store.Store
}

// CreateInput describes a new staff account.
type CreateInput struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=64"`
	FullName string `json:"fullName" validate:"required,max=255"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=admin market_owner employee"`
}

// UpdateInput patches account profile fields. Nil fields are left unchanged.
type UpdateInput struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Username *string `json:"username" validate:"omitempty,min=3,max=64"`
	FullName *string `json:"fullName" validate:"omitempty,max=255"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin market_owner employee"`
}

// Create registers a new account with a hashed password.
func (s *Service) Create(ctx context.Context, in CreateInput) (auth.SafeUser, error) {
	if s == nil || s.St == nil {
		return auth.SafeUser{}, errors.New("user service not configured")
	}
	hash, err := argon2id.CreateHash(in.Password, argon2id.DefaultParams)
	if err != nil {
		return auth.SafeUser{}, fmt.Errorf("hash password: %w", err)
	}
	created, err := s.St.CreateUser(ctx, store.User{
		Email:          strings.TrimSpace(strings.ToLower(in.Email)),
		Username:       strings.TrimSpace(in.Username),
		FullName:       strings.TrimSpace(in.FullName),
		Role:           common.Role(in.Role),
		Status:         store.UserActive,
		HashedPassword: hash,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return auth.SafeUser{}, common.Conflict("email or username already taken")
		}
		return auth.SafeUser{}, err
	}
	return auth.Safe(created), nil
}

// Get returns a single account.
func (s *Service) Get(ctx context.Context, id int64) (auth.SafeUser, error) {
	if s == nil || s.St == nil {
		return auth.SafeUser{}, errors.New("user service not configured")
	}
	u, err := s.St.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return auth.SafeUser{}, common.NotFound("user not found")
		}
		return auth.SafeUser{}, err
	}
	return auth.Safe(u), nil
}

// List returns every account, deleted ones included so admins can restore
// them.
func (s *Service) List(ctx context.Context) ([]auth.SafeUser, error) {
	if s == nil || s.St == nil {
		return nil, errors.New("user service not configured")
	}
	users, err := s.St.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]auth.SafeUser, 0, len(users))
	for _, u := range users {
		out = append(out, auth.Safe(u))
	}
	return out, nil
}

// Update patches profile fields.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (auth.SafeUser, error) {
	if s == nil || s.St == nil {
		return auth.SafeUser{}, errors.New("user service not configured")
	}
	patch := store.UserPatch{
		Email:    in.Email,
		Username: in.Username,
		FullName: in.FullName,
	}
	if in.Email != nil {
		normalized := strings.TrimSpace(strings.ToLower(*in.Email))
		patch.Email = &normalized
	}
	if in.Role != nil {
		role := common.Role(*in.Role)
		patch.Role = &role
	}
	updated, err := s.St.UpdateUser(ctx, id, patch)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return auth.SafeUser{}, common.NotFound("user not found")
		case errors.Is(err, store.ErrDuplicate):
			return auth.SafeUser{}, common.Conflict("email or username already taken")
		}
		return auth.SafeUser{}, err
	}
	return auth.Safe(updated), nil
}

// SetStatus moves an account between active, disabled and deleted. Leaving
// the active state revokes every refresh token so open sessions die.
func (s *Service) SetStatus(ctx context.Context, id int64, status store.UserStatus, actor common.Actor) (auth.SafeUser, error) {
	if s == nil || s.St == nil {
		return auth.SafeUser{}, errors.New("user service not configured")
	}
	switch status {
	case store.UserActive, store.UserDisabled, store.UserDeleted:
	default:
		return auth.SafeUser{}, common.Validation("invalid status")
	}
	if actor.ID == id && status != store.UserActive {
		return auth.SafeUser{}, common.Conflict("cannot disable your own account")
	}
	var updated store.User
	err := s.St.Atomic(ctx, func(tx store.Store) error {
		var err error
		updated, err = tx.SetUserStatus(ctx, id, status)
		if err != nil {
			return err
		}
		if status != store.UserActive {
			return tx.RevokeUserRefreshTokens(ctx, id)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return auth.SafeUser{}, common.NotFound("user not found")
		}
		return auth.SafeUser{}, err
	}
	return auth.Safe(updated), nil
}

// ResetPassword lets an admin force a new password onto an account.
func (s *Service) ResetPassword(ctx context.Context, id int64, password string) error {
	if s == nil || s.St == nil {
		return errors.New("user service not configured")
	}
	if len(password) < 8 {
		return common.Validation("password must be at least 8 characters")
	}
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.St.Atomic(ctx, func(tx store.Store) error {
		if err := tx.SetUserPassword(ctx, id, hash); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return common.NotFound("user not found")
			}
			return err
		}
		return tx.RevokeUserRefreshTokens(ctx, id)
	})
}
