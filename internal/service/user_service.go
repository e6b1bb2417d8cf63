package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"agriconnect/internal/apperr"
	"agriconnect/internal/model"
	"agriconnect/internal/repository"

	"github.com/rs/zerolog"
)

var (
	ErrUserIDRequired = apperr.Validation("userId and verified are required")
	ErrUserNotFound   = apperr.NotFound("User not found")
)

// UserService provides the admin user directory operations
type UserService interface {
	ListUsers(ctx context.Context, filters model.UserFilters) ([]*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	SetVerification(ctx context.Context, id string, verified bool) error
}

type userService struct {
	userRepo repository.UserRepository
	now      func() time.Time
	log      zerolog.Logger
}

// NewUserService creates a new UserService
func NewUserService(userRepo repository.UserRepository, log zerolog.Logger) UserService {
	return &userService{userRepo: userRepo, now: time.Now, log: log}
}

// ListUsers returns users newest first
func (s *userService) ListUsers(ctx context.Context, filters model.UserFilters) ([]*model.User, error) {
	users, err := s.userRepo.List(ctx, filters)
	if err != nil {
		return nil, apperr.Internal("failed to list users", err)
	}
	return users, nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("failed to find user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// SetVerification marks a user verified (stamping verifiedAt) or unverified (clearing it)
func (s *userService) SetVerification(ctx context.Context, id string, verified bool) error {
	if strings.TrimSpace(id) == "" {
		return ErrUserIDRequired
	}

	var verifiedAt *time.Time
	if verified {
		now := s.now().UTC().Truncate(time.Millisecond)
		verifiedAt = &now
	}

	if err := s.userRepo.SetVerification(ctx, id, verified, verifiedAt); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return apperr.Internal("failed to update user verification", err)
	}

	s.log.Info().Str("user_id", id).Bool("verified", verified).Msg("user verification changed")
	return nil
}
