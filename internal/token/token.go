// Package token issues and verifies the signed bearer tokens used by the API.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenExpired indicates the token's expiry is in the past.
	ErrTokenExpired = errors.New("token has expired")
	// ErrTokenInvalid indicates a malformed token or a bad signature.
	ErrTokenInvalid = errors.New("token is invalid")
)

// Token kinds. Access and refresh tokens are never interchangeable: the kind
// claim is checked wherever a token is consumed, independent of expiry.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// Claims carries the identity claims embedded in every token.
type Claims struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Kind     string `json:"token_kind"`
	jwt.RegisteredClaims
}

// IsAccess reports whether the claims belong to an access token.
func (c *Claims) IsAccess() bool { return c.Kind == KindAccess }

// IsRefresh reports whether the claims belong to a refresh token.
func (c *Claims) IsRefresh() bool { return c.Kind == KindRefresh }

// Codec signs and verifies tokens with a process-wide symmetric key.
// Rotating the key invalidates every outstanding token.
type Codec struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCodec constructs a Codec. Zero TTLs fall back to 30 minutes for access
// tokens and 7 days for refresh tokens.
func NewCodec(secret, issuer string, accessTTL, refreshTTL time.Duration) *Codec {
	if accessTTL <= 0 {
		accessTTL = 30 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Codec{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssueAccess signs a short-lived access token for the given identity.
func (c *Codec) IssueAccess(userID int64, username, role string) (string, error) {
	return c.issue(userID, username, role, KindAccess, c.accessTTL, "")
}

// IssueRefresh signs a long-lived refresh token for the given identity.
func (c *Codec) IssueRefresh(userID int64, username, role string) (string, error) {
	return c.issue(userID, username, role, KindRefresh, c.refreshTTL, uuid.NewString())
}

func (c *Codec) issue(userID int64, username, role, kind string, ttl time.Duration, jti string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Decode verifies the signature and expiry of a token string and returns its
// claims. Callers are responsible for checking the token kind.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
