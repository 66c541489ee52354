package auth

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/credgate/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCodec(secret string) (*Codec, *fakeClock) {
	clk := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	return NewCodec([]byte(secret), 15*time.Minute, 24*time.Hour, clk.Now), clk
}

func TestIssueAndParseAccess_Success(t *testing.T) {
	t.Parallel()

	c, clk := newTestCodec("super-secret")

	tok, err := c.IssueAccess("acc-123")
	if err != nil {
		t.Fatalf("IssueAccess error: %v", err)
	}

	claims, err := c.ParseAccess(tok)
	if err != nil {
		t.Fatalf("ParseAccess error: %v", err)
	}
	if claims.Subject != "acc-123" || claims.Type != TypeAccess {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !claims.IssuedAt.Time.Equal(clk.Now()) {
		t.Fatalf("iat mismatch: %v", claims.IssuedAt)
	}
	if got := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time); got != 15*time.Minute {
		t.Fatalf("access lifetime = %v", got)
	}
}

func TestIssueAndParseRefresh_CarriesUniqueJTI(t *testing.T) {
	t.Parallel()

	c, _ := newTestCodec("k")

	tok1, claims1, err := c.IssueRefresh("acc-1")
	if err != nil {
		t.Fatalf("IssueRefresh error: %v", err)
	}
	tok2, claims2, err := c.IssueRefresh("acc-1")
	if err != nil {
		t.Fatalf("IssueRefresh error: %v", err)
	}
	if tok1 == tok2 || claims1.JTI() == claims2.JTI() {
		t.Fatal("refresh tokens issued at the same instant must still differ")
	}

	parsed, err := c.ParseRefresh(tok1)
	if err != nil {
		t.Fatalf("ParseRefresh error: %v", err)
	}
	if parsed.JTI() != claims1.JTI() || parsed.Subject != "acc-1" || parsed.Type != TypeRefresh {
		t.Fatalf("unexpected claims: %+v", parsed)
	}
}

func TestTypeSeparation(t *testing.T) {
	t.Parallel()

	c, _ := newTestCodec("k")

	access, err := c.IssueAccess("acc-1")
	if err != nil {
		t.Fatalf("IssueAccess error: %v", err)
	}
	refresh, _, err := c.IssueRefresh("acc-1")
	if err != nil {
		t.Fatalf("IssueRefresh error: %v", err)
	}

	if _, err := c.ParseRefresh(access); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("access token accepted as refresh: %v", err)
	}
	if _, err := c.ParseAccess(refresh); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("refresh token accepted as access: %v", err)
	}
}

func TestParse_Expired(t *testing.T) {
	t.Parallel()

	c, clk := newTestCodec("k")

	tok, err := c.IssueAccess("acc-1")
	if err != nil {
		t.Fatalf("IssueAccess error: %v", err)
	}

	clk.Advance(16 * time.Minute)

	_, err = c.ParseAccess(tok)
	if !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expired must also be an invalid token, got %v", err)
	}
}

func TestParse_WrongSecret(t *testing.T) {
	t.Parallel()

	right, _ := newTestCodec("right-secret")
	wrong, _ := newTestCodec("wrong-secret")

	tok, err := right.IssueAccess("acc-1")
	if err != nil {
		t.Fatalf("IssueAccess error: %v", err)
	}
	if _, err := wrong.ParseAccess(tok); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for bad signature, got %v", err)
	}
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	c, _ := newTestCodec("k")
	for _, tok := range []string{"", "not.a.jwt", "abc", strings.Repeat("x", 300)} {
		if _, err := c.ParseAccess(tok); !errors.Is(err, common.ErrInvalidToken) {
			t.Fatalf("ParseAccess(%q): expected ErrInvalidToken, got %v", tok, err)
		}
	}
}

func TestParse_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	c, clk := newTestCodec("k")
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "acc-1",
			IssuedAt:  jwt.NewNumericDate(clk.Now()),
			ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Hour)),
		},
		Type: TypeAccess,
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}
	if _, err := c.ParseAccess(tok); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("HS512 token must be rejected, got %v", err)
	}
}

func TestParse_RequiresExpiryAndSubject(t *testing.T) {
	t.Parallel()

	c, clk := newTestCodec("k")

	noExp := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer, Subject: "acc-1", IssuedAt: jwt.NewNumericDate(clk.Now())},
		Type:             TypeAccess,
	}
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, noExp).SignedString([]byte("k"))
	if _, err := c.ParseAccess(tok); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("token without exp must be rejected, got %v", err)
	}

	noSub := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer, ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Hour))},
		Type:             TypeAccess,
	}
	tok, _ = jwt.NewWithClaims(jwt.SigningMethodHS256, noSub).SignedString([]byte("k"))
	if _, err := c.ParseAccess(tok); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("token without sub must be rejected, got %v", err)
	}
}
