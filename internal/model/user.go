package model

import "time"

// Role determines dashboard routing and which endpoints a user may call.
type Role string

const (
	RoleFarmer   Role = "farmer"
	RoleConsumer Role = "consumer"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleFarmer, RoleConsumer, RoleAdmin:
		return true
	}
	return false
}

// User represents a registered marketplace account
type User struct {
	ID           string     `json:"id" bson:"_id"`
	Name         string     `json:"name" bson:"name"`
	Phone        string     `json:"phone" bson:"phone"`
	PasswordHash string     `json:"-" bson:"password_hash"` // Never exposed in JSON responses
	Role         Role       `json:"role" bson:"role"`
	Verified     bool       `json:"verified" bson:"verified"`
	VerifiedAt   *time.Time `json:"verifiedAt" bson:"verified_at"`
	CreatedAt    time.Time  `json:"createdAt" bson:"created_at"`
}

// UserFilters narrows the admin user listing. Nil fields are not applied.
type UserFilters struct {
	Role     *Role
	Verified *bool
}

// SignupRequest is the body of POST /auth/signup
type SignupRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// VerifyUserRequest is the body of POST /auth/verify-user
type VerifyUserRequest struct {
	UserID   string `json:"userId" binding:"required"`
	Verified *bool  `json:"verified" binding:"required"` // Pointer so an explicit false is accepted
}

// AuthResponse is returned by signup and login
type AuthResponse struct {
	Message string `json:"message"`
	User    *User  `json:"user"`
	Token   string `json:"token"`
}
