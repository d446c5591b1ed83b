package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the verified claims carried by tokens from the hosted identity provider.
type Claims struct {
	BusinessID string `json:"business_id,omitempty"`
	jwt.RegisteredClaims
}

var (
	// ErrMissingToken is returned when a request carries no bearer token.
	ErrMissingToken = errors.New("auth: missing bearer token")
	// ErrInvalidToken is returned for tokens that fail signature, expiry, or issuer checks.
	ErrInvalidToken = errors.New("auth: invalid or expired token")
)
