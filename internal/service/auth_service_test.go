package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"agriconnect/internal/apperr"
	"agriconnect/internal/model"
	"agriconnect/internal/utils"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthService(t *testing.T) (*authService, *fakeUserRepo, *utils.JWTUtil) {
	t.Helper()
	repo := newFakeUserRepo()
	jwtUtil, err := utils.NewJWTUtil("test-secret", utils.DefaultExpirationHours)
	require.NoError(t, err)
	svc := NewAuthService(repo, jwtUtil, bcrypt.MinCost, zerolog.Nop()).(*authService)
	return svc, repo, jwtUtil
}

func signupReq(name, phone, password, role string) model.SignupRequest {
	return model.SignupRequest{Name: name, Phone: phone, Password: password, Role: role}
}

func TestSignup_ValidationOrder(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	cases := []struct {
		name string
		req  model.SignupRequest
		want error
	}{
		{"missing name", signupReq("", "9876543210", "secret12", "farmer"), ErrFieldsRequired},
		{"blank name", signupReq("   ", "9876543210", "secret12", "farmer"), ErrFieldsRequired},
		{"missing role beats bad phone", signupReq("Asha", "123", "secret12", ""), ErrFieldsRequired},
		{"short phone", signupReq("Asha", "98765", "secret12", "farmer"), ErrPhoneFormat},
		{"non-digit phone", signupReq("Asha", "98765abcde", "secret12", "farmer"), ErrPhoneFormat},
		{"bad phone beats short password", signupReq("Asha", "98765", "abc", "farmer"), ErrPhoneFormat},
		{"short password", signupReq("Asha", "9876543210", "abc12", "farmer"), ErrPasswordTooShort},
		{"short password beats bad role", signupReq("Asha", "9876543210", "abc", "wizard"), ErrPasswordTooShort},
		{"bad role", signupReq("Asha", "9876543210", "secret12", "wizard"), ErrInvalidRole},
		{"password over bcrypt limit", signupReq("Asha", "9876543210", strings.Repeat("a", 80), "farmer"), ErrPasswordTooLong},
		{"multibyte password over bcrypt limit", signupReq("Asha", "9876543210", strings.Repeat("й", 40), "farmer"), ErrPasswordTooLong},
		{"long password beats bad role", signupReq("Asha", "9876543210", strings.Repeat("a", 73), "wizard"), ErrPasswordTooLong},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Signup(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestSignup_PasswordAtBcryptLimit(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	password := strings.Repeat("p", 72)

	_, _, err := svc.Signup(context.Background(), signupReq("Asha", "9876543210", password, "farmer"))
	require.NoError(t, err)

	user, _, err := svc.Login(context.Background(), model.LoginRequest{Phone: "9876543210", Password: password, Role: "farmer"})
	require.NoError(t, err)
	assert.Equal(t, "Asha", user.Name)
}

func TestSignup_Success(t *testing.T) {
	svc, repo, jwtUtil := newTestAuthService(t)
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	user, token, err := svc.Signup(context.Background(), signupReq("  Asha  ", "9876543210", "secret12", "farmer"))
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "Asha", user.Name)
	assert.Equal(t, model.RoleFarmer, user.Role)
	assert.False(t, user.Verified)
	assert.Nil(t, user.VerifiedAt)
	assert.Equal(t, fixed, user.CreatedAt)
	assert.NotEqual(t, "secret12", user.PasswordHash)
	assert.True(t, utils.CheckPasswordHash("secret12", user.PasswordHash))

	claims, err := jwtUtil.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "9876543210", claims.Phone)
	assert.Equal(t, "farmer", claims.Role)

	stored, _ := repo.FindByID(context.Background(), user.ID)
	require.NotNil(t, stored)
	assert.Equal(t, user.PasswordHash, stored.PasswordHash)
}

func TestSignup_AdminStartsVerified(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	user, _, err := svc.Signup(context.Background(), signupReq("Root", "9000000000", "secret12", "admin"))
	require.NoError(t, err)
	assert.True(t, user.Verified)
	require.NotNil(t, user.VerifiedAt)
	assert.Equal(t, user.CreatedAt, *user.VerifiedAt)

	consumer, _, err := svc.Signup(context.Background(), signupReq("Meera", "9000000001", "secret12", "consumer"))
	require.NoError(t, err)
	assert.False(t, consumer.Verified)
}

func TestSignup_DuplicatePhone(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)
	_, _, err := svc.Signup(context.Background(), signupReq("Asha", "9876543210", "secret12", "farmer"))
	require.NoError(t, err)

	_, _, err = svc.Signup(context.Background(), signupReq("Other", "9876543210", "another1", "consumer"))
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	users, _ := repo.List(context.Background(), model.UserFilters{})
	assert.Len(t, users, 1)
}

func TestSignup_DuplicateRaceMapsToConflict(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)
	repo.raceOnCreate = true

	_, _, err := svc.Signup(context.Background(), signupReq("Asha", "9876543210", "secret12", "farmer"))
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestSignup_RepositoryFailureIsInternal(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)
	repo.err = errors.New("disk on fire")

	_, _, err := svc.Signup(context.Background(), signupReq("Asha", "9876543210", "secret12", "farmer"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Equal(t, apperr.InternalMessage, apperr.PublicMessage(err))
}

func TestLogin(t *testing.T) {
	svc, _, jwtUtil := newTestAuthService(t)
	created, _, err := svc.Signup(context.Background(), signupReq("Asha", "9876543210", "secret12", "farmer"))
	require.NoError(t, err)

	user, token, err := svc.Login(context.Background(), model.LoginRequest{Phone: "9876543210", Password: "secret12", Role: "farmer"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	claims, err := jwtUtil.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, claims.UserID)
}

func TestLogin_Validation(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	_, _, err := svc.Login(context.Background(), model.LoginRequest{Phone: "9876543210", Role: "farmer"})
	assert.ErrorIs(t, err, ErrFieldsRequired)

	_, _, err = svc.Login(context.Background(), model.LoginRequest{Phone: "12345", Password: "secret12", Role: "farmer"})
	assert.ErrorIs(t, err, ErrInvalidPhone)
}

func TestLogin_WrongRoleAndWrongPasswordIndistinguishable(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	_, _, err := svc.Signup(context.Background(), signupReq("Asha", "9876543210", "secret12", "farmer"))
	require.NoError(t, err)

	_, _, wrongRole := svc.Login(context.Background(), model.LoginRequest{Phone: "9876543210", Password: "secret12", Role: "consumer"})
	_, _, wrongPassword := svc.Login(context.Background(), model.LoginRequest{Phone: "9876543210", Password: "nottheone", Role: "farmer"})
	_, _, unknownPhone := svc.Login(context.Background(), model.LoginRequest{Phone: "9111111111", Password: "secret12", Role: "farmer"})

	for _, err := range []error{wrongRole, wrongPassword, unknownPhone} {
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
		assert.Equal(t, "Invalid credentials or role", apperr.PublicMessage(err))
	}
}
