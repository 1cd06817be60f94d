package auth

import (
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func testUser() *domain.User {
	return &domain.User{ID: "user-1", Email: "a@example.com", Role: domain.RoleAgent}
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 2*time.Hour)
	session, err := tm.GenerateToken(testUser())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	identity, ok := tm.Verify(session.Token)
	if !ok {
		t.Fatal("fresh token rejected")
	}
	if identity.UserID != "user-1" || identity.Role != domain.RoleAgent || identity.Email != "a@example.com" {
		t.Errorf("unexpected identity: %+v", identity)
	}
	if identity.TokenID == "" || identity.TokenID != session.TokenID {
		t.Errorf("token id mismatch: %q vs %q", identity.TokenID, session.TokenID)
	}
}

func TestVerifyRejectsWithoutError(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tm := NewTokenManager("secret", 2*time.Hour).WithClock(func() time.Time { return issuedAt })
	session, err := tm.GenerateToken(testUser())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	expired := tm.WithClock(func() time.Time { return issuedAt.Add(2*time.Hour + time.Second) })
	stillValid := tm.WithClock(func() time.Time { return issuedAt.Add(119 * time.Minute) })
	otherSecret := NewTokenManager("other", 2*time.Hour).WithClock(func() time.Time { return issuedAt })

	parts := strings.Split(session.Token, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	cases := []struct {
		name  string
		tm    *TokenManager
		token string
		want  bool
	}{
		{"valid before expiry", stillValid, session.Token, true},
		{"expired", expired, session.Token, false},
		{"bad signature", otherSecret, session.Token, false},
		{"tampered payload", tm, tampered, false},
		{"malformed", tm, "not.a.jwt", false},
		{"empty", tm, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := tc.tm.Verify(tc.token); ok != tc.want {
				t.Fatalf("Verify = %v, want %v", ok, tc.want)
			}
		})
	}
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	claims := &Claims{
		UserID: "user-1",
		Role:   domain.RoleClient,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, ok := tm.Verify(unsigned); ok {
		t.Fatal("alg=none token accepted")
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign hs512: %v", err)
	}
	if _, ok := tm.Verify(hs512); ok {
		t.Fatal("HS512 token accepted")
	}
}

func TestVerifyRequiresExpiryAndRole(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: "u", Role: domain.RoleClient}).SignedString([]byte("secret"))
	if _, ok := tm.Verify(noExpiry); ok {
		t.Error("token without exp accepted")
	}
	badRole, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: "u",
		Role:   "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	if _, ok := tm.Verify(badRole); ok {
		t.Error("token with unknown role accepted")
	}
}
