// Package auth encodes and verifies the signed session tokens handed out at
// login and refresh. Access and refresh tokens are separate claim sets, each
// tagged with its type, and a token of one type is never accepted as the other.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/credgate/internal/common"
	"github.com/dmitrijs2005/credgate/internal/timex"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType tags every token with the operation it may be used for.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

const issuer = "credgate"

// AccessClaims is carried by short-lived access tokens. They are verified
// from the signature and claims alone.
type AccessClaims struct {
	jwt.RegisteredClaims
	Type TokenType `json:"token_type"`
}

// RefreshClaims is carried by refresh tokens. RegisteredClaims.ID is the jti
// recorded as consumed on rotation.
type RefreshClaims struct {
	jwt.RegisteredClaims
	Type TokenType `json:"token_type"`
}

// JTI returns the unique refresh token identifier.
func (c *RefreshClaims) JTI() string { return c.ID }

// Codec signs and verifies session tokens with HMAC-SHA256.
type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        timex.Clock
}

// NewCodec builds a Codec. A nil clock means the system clock.
func NewCodec(secret []byte, accessTTL, refreshTTL time.Duration, now timex.Clock) *Codec {
	if now == nil {
		now = timex.SystemClock
	}
	return &Codec{secret: secret, accessTTL: accessTTL, refreshTTL: refreshTTL, now: now}
}

func (c *Codec) registered(uid string, ttl time.Duration) jwt.RegisteredClaims {
	now := c.now()
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   uid,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

// IssueAccess returns a signed access token for uid.
func (c *Codec) IssueAccess(uid string) (string, error) {
	claims := AccessClaims{RegisteredClaims: c.registered(uid, c.accessTTL), Type: TypeAccess}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// IssueRefresh returns a signed refresh token for uid along with its claims.
func (c *Codec) IssueRefresh(uid string) (string, *RefreshClaims, error) {
	claims := &RefreshClaims{RegisteredClaims: c.registered(uid, c.refreshTTL), Type: TypeRefresh}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// ParseAccess verifies an access token and returns its claims.
func (c *Codec) ParseAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.parse(token, claims); err != nil {
		return nil, err
	}
	if claims.Type != TypeAccess {
		return nil, fmt.Errorf("%w: not an access token", common.ErrInvalidToken)
	}
	return claims, nil
}

// ParseRefresh verifies a refresh token and returns its claims. It does not
// consult consumption state.
func (c *Codec) ParseRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.parse(token, claims); err != nil {
		return nil, err
	}
	if claims.Type != TypeRefresh {
		return nil, fmt.Errorf("%w: not a refresh token", common.ErrInvalidToken)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing jti", common.ErrInvalidToken)
	}
	return claims, nil
}

func (c *Codec) parse(token string, claims jwt.Claims) error {
	if token == "" {
		return fmt.Errorf("%w: empty token", common.ErrInvalidToken)
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return common.ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return common.ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return fmt.Errorf("%w: missing subject", common.ErrInvalidToken)
	}
	return nil
}
