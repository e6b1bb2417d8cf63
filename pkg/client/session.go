package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSession is returned when no unexpired session is stored
var ErrNoSession = errors.New("no active session")

const (
	RoleFarmer   = "farmer"
	RoleConsumer = "consumer"
	RoleAdmin    = "admin"
)

// User is the sanitized account returned by the API
type User struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Phone      string     `json:"phone"`
	Role       string     `json:"role"`
	Verified   bool       `json:"verified"`
	VerifiedAt *time.Time `json:"verifiedAt"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Session pairs the signed-in user with their bearer token.
// The token's own exp claim decides whether the session is still usable.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// ExpiresAt reads exp from the token without verifying the signature;
// the server remains the authority on validity.
func (s *Session) ExpiresAt() (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, claims); err != nil {
		return time.Time{}, fmt.Errorf("parse session token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("session token has no expiry")
	}
	return claims.ExpiresAt.Time, nil
}

// Valid reports whether the token is present and unexpired at now
func (s *Session) Valid(now time.Time) bool {
	if s == nil || s.Token == "" {
		return false
	}
	exp, err := s.ExpiresAt()
	if err != nil {
		return false
	}
	return now.Before(exp)
}

func (s *Session) HasRole(role string) bool {
	return s != nil && s.User.Role == role
}

// DashboardPath is where a signed-in user lands
func (s *Session) DashboardPath() string {
	switch s.User.Role {
	case RoleFarmer:
		return "/farmer"
	case RoleConsumer:
		return "/consumer"
	case RoleAdmin:
		return "/admin/users"
	}
	return "/"
}
