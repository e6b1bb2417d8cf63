package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"agriconnect/internal/apperr"
	"agriconnect/internal/model"
	"agriconnect/internal/repository"
	"agriconnect/internal/utils"

	"github.com/rs/zerolog"
)

const minPasswordLength = 6

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

var (
	ErrFieldsRequired     = apperr.Validation("All fields are required")
	ErrPhoneFormat        = apperr.Validation("Phone number must be 10 digits")
	ErrPasswordTooShort   = apperr.Validation("Password must be at least 6 characters")
	ErrPasswordTooLong    = apperr.Validation("Password must be at most 72 bytes")
	ErrInvalidRole        = apperr.Validation("Invalid role")
	ErrInvalidPhone       = apperr.Validation("Invalid phone number")
	ErrUserAlreadyExists  = apperr.Conflict("User with this phone number already exists")
	ErrInvalidCredentials = apperr.Unauthorized("Invalid credentials or role") // Same for unknown phone, wrong role and wrong password
)

// AuthService provides signup and login
type AuthService interface {
	Signup(ctx context.Context, req model.SignupRequest) (*model.User, string, error)
	Login(ctx context.Context, req model.LoginRequest) (*model.User, string, error)
}

type authService struct {
	userRepo   repository.UserRepository
	jwtUtil    *utils.JWTUtil
	bcryptCost int
	dummyHash  string
	now        func() time.Time
	log        zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repository.UserRepository, jwtUtil *utils.JWTUtil, bcryptCost int, log zerolog.Logger) AuthService {
	// Compared against when no account matches so a miss costs as much as a wrong password.
	dummyHash, _ := utils.HashPasswordWithCost("agriconnect-unused-password", bcryptCost)
	return &authService{
		userRepo:   userRepo,
		jwtUtil:    jwtUtil,
		bcryptCost: bcryptCost,
		dummyHash:  dummyHash,
		now:        time.Now,
		log:        log,
	}
}

// validateSignup applies the checks in order; the first failure wins
func validateSignup(req model.SignupRequest) error {
	if strings.TrimSpace(req.Name) == "" || req.Phone == "" || req.Password == "" || req.Role == "" {
		return ErrFieldsRequired
	}
	if !phonePattern.MatchString(req.Phone) {
		return ErrPhoneFormat
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	if len(req.Password) > utils.MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	if !model.Role(req.Role).Valid() {
		return ErrInvalidRole
	}
	return nil
}

// Signup creates a new account. Admin accounts start verified.
func (s *authService) Signup(ctx context.Context, req model.SignupRequest) (*model.User, string, error) {
	if err := validateSignup(req); err != nil {
		return nil, "", err
	}

	existingUser, err := s.userRepo.FindByPhone(ctx, req.Phone)
	if err != nil {
		return nil, "", apperr.Internal("failed to check existing user", err)
	}
	if existingUser != nil {
		return nil, "", ErrUserAlreadyExists
	}

	hashedPassword, err := utils.HashPasswordWithCost(req.Password, s.bcryptCost)
	if err != nil {
		return nil, "", apperr.Internal("failed to hash password", err)
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	role := model.Role(req.Role)
	user := &model.User{
		Name:         strings.TrimSpace(req.Name),
		Phone:        req.Phone,
		PasswordHash: hashedPassword,
		Role:         role,
		Verified:     role == model.RoleAdmin,
		CreatedAt:    now,
	}
	if user.Verified {
		user.VerifiedAt = &now
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// Lost a race with a concurrent signup for the same phone.
		if errors.Is(err, repository.ErrDuplicatePhone) {
			return nil, "", ErrUserAlreadyExists
		}
		return nil, "", apperr.Internal("failed to create user", err)
	}

	token, err := s.jwtUtil.GenerateToken(user.ID, user.Phone, string(user.Role))
	if err != nil {
		return nil, "", apperr.Internal("user created, but failed to generate token", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user signed up")
	return user, token, nil
}

// Login authenticates a user for the requested role and returns a JWT token
func (s *authService) Login(ctx context.Context, req model.LoginRequest) (*model.User, string, error) {
	if req.Phone == "" || req.Password == "" || req.Role == "" {
		return nil, "", ErrFieldsRequired
	}
	if !phonePattern.MatchString(req.Phone) {
		return nil, "", ErrInvalidPhone
	}

	user, err := s.userRepo.FindByPhoneAndRole(ctx, req.Phone, model.Role(req.Role))
	if err != nil {
		return nil, "", apperr.Internal("error finding user by phone and role", err)
	}
	if user == nil {
		utils.CheckPasswordHash(req.Password, s.dummyHash)
		return nil, "", ErrInvalidCredentials
	}

	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.jwtUtil.GenerateToken(user.ID, user.Phone, string(user.Role))
	if err != nil {
		return nil, "", apperr.Internal("failed to generate token", err)
	}

	return user, token, nil
}
