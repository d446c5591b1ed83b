package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ledgerly/ledgerly/internal/shared"
)

// Verifier checks HS256 tokens signed with the project's shared secret.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewVerifier constructs a Verifier. An empty secret disables verification.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Enabled reports whether a secret is configured.
func (v *Verifier) Enabled() bool {
	return v != nil && len(v.secret) > 0
}

// Verify parses the token and returns the caller identity.
func (v *Verifier) Verify(raw string) (shared.Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return shared.Identity{}, ErrMissingToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return shared.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return shared.Identity{}, fmt.Errorf("%w: subject is empty", ErrInvalidToken)
	}
	return shared.Identity{UserID: claims.Subject, BusinessID: claims.BusinessID}, nil
}

// Issue signs claims for the given identity. It backs local tooling and tests;
// production tokens come from the hosted provider.
func (v *Verifier) Issue(id shared.Identity, ttl time.Duration) (string, error) {
	now := v.now()
	claims := Claims{
		BusinessID: id.BusinessID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
