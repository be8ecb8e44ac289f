// Package service provides application business logic (accounts, listings, swaps, chat).
package service

import (
	"context"

	"rewear/internal/models"
	"rewear/internal/repository"
)

// UserService provides account directory business logic.
type UserService struct {
	userRepo repository.UserRepository
}

// UpdateProfileInput is the input for updating a member profile.
type UpdateProfileInput struct {
	UserID                uint
	Name                  string
	Location              string
	AvatarURL             string
	PreferredMeetingPlace string
}

// NewUserService returns a new UserService.
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.userRepo.List(ctx, limit, offset)
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// IsAdmin reports whether the user holds the admin role. Injected into the
// other services for authorization checks.
func (s *UserService) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsAdmin(), nil
}

// GetPoints returns a member's current wallet balance.
func (s *UserService) GetPoints(ctx context.Context, userID uint) (int, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.Points, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	const maxNameLen = 60
	const maxLocationLen = 120

	if in.Name != "" {
		if len(in.Name) > maxNameLen {
			return nil, models.NewValidationError("Name too long (max 60 characters)")
		}
		user.Name = in.Name
	}
	if in.Location != "" {
		if len(in.Location) > maxLocationLen {
			return nil, models.NewValidationError("Location too long (max 120 characters)")
		}
		user.Location = in.Location
	}
	if in.AvatarURL != "" {
		user.AvatarURL = in.AvatarURL
	}
	if in.PreferredMeetingPlace != "" {
		user.PreferredMeetingPlace = in.PreferredMeetingPlace
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// AdjustPoints applies a signed delta to a member's balance. Admin-only at
// the handler layer; the balance can never go negative.
func (s *UserService) AdjustPoints(ctx context.Context, userID uint, delta int) (*models.User, error) {
	if delta == 0 {
		return nil, models.NewValidationError("Delta must be non-zero")
	}
	if err := s.userRepo.AdjustPoints(ctx, userID, delta); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, userID)
}

// SetRole promotes or demotes a member.
func (s *UserService) SetRole(ctx context.Context, targetID uint, role models.UserRole) (*models.User, error) {
	if role != models.UserRoleMember && role != models.UserRoleAdmin {
		return nil, models.NewValidationError("Invalid role")
	}

	user, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	user.Role = role
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}
