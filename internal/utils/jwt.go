package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingSecret = errors.New("jwt secret key is required")
	ErrInvalidToken  = errors.New("invalid token")
)

// DefaultExpirationHours is the session lifetime: seven days
const DefaultExpirationHours = 7 * 24

// JWTClaims custom claims for JWT
type JWTClaims struct {
	UserID string `json:"id"`
	Phone  string `json:"phone"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTUtil provides JWT generation and validation
type JWTUtil struct {
	secretKey       []byte
	expirationHours int64
}

// NewJWTUtil creates a new JWTUtil. An empty secret is refused; there is no fallback key.
func NewJWTUtil(secretKey string, expirationHours int64) (*JWTUtil, error) {
	if secretKey == "" {
		return nil, ErrMissingSecret
	}
	return &JWTUtil{secretKey: []byte(secretKey), expirationHours: expirationHours}, nil
}

// GenerateToken signs a token carrying the user's id, phone and role
func (ju *JWTUtil) GenerateToken(userID, phone, role string) (string, error) {
	now := time.Now()
	claims := &JWTClaims{
		UserID: userID,
		Phone:  phone,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour * time.Duration(ju.expirationHours))),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(ju.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken verifies signature and expiry. Segments must be canonical base64url,
// so a changed signature character never decodes to the same MAC.
// Every failure wraps ErrInvalidToken.
func (ju *JWTUtil) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ju.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithStrictDecoding())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
