package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tallyhub/tallyhub/internal/model"
)

// cheap parameters keep the suite fast
var testParams = Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestPasswordHasher_Format(t *testing.T) {
	t.Parallel()

	hash, err := NewPasswordHasher(DefaultParams).Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		t.Fatalf("Hash should have 6 parts, got %d: %s", len(parts), hash)
	}
	if parts[1] != "argon2id" {
		t.Errorf("Expected argon2id algorithm, got: %s", parts[1])
	}
	if parts[2] != "v=19" {
		t.Errorf("Expected v=19, got: %s", parts[2])
	}
	if parts[3] != "m=65536,t=3,p=4" {
		t.Errorf("Expected m=65536,t=3,p=4, got: %s", parts[3])
	}
}

func TestPasswordHasher_Verify(t *testing.T) {
	t.Parallel()

	h := NewPasswordHasher(testParams)
	hash, err := h.Hash("s3cret-pass")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	other, err := h.Hash("s3cret-pass")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if hash == other {
		t.Error("Same password should produce different hashes due to random salt")
	}

	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"correct", "s3cret-pass", true},
		{"wrong", "s3cret-pasS", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := h.Verify(tt.password, hash)
			if err != nil {
				t.Fatalf("Verify error: %v", err)
			}
			if ok != tt.want {
				t.Errorf("Verify(%q) = %v, want %v", tt.password, ok, tt.want)
			}
		})
	}
}

func TestPasswordHasher_VerifyUsesStoredParams(t *testing.T) {
	t.Parallel()

	hash, err := NewPasswordHasher(testParams).Hash("pw")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	ok, err := NewPasswordHasher(testParams).Verify("pw", hash)
	if err != nil || !ok {
		t.Fatalf("Verify = %v, %v; want true, nil", ok, err)
	}
}

func TestPasswordHasher_InvalidHash(t *testing.T) {
	t.Parallel()

	h := NewPasswordHasher(testParams)
	tests := []struct {
		name    string
		encoded string
		wantErr error
	}{
		{"empty", "", ErrInvalidHash},
		{"wrong algorithm", "$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA", ErrInvalidHash},
		{"bad version", "$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$aGFzaA", ErrIncompatibleVersion},
		{"bad params", "$argon2id$v=19$garbage$c2FsdA$aGFzaA", ErrInvalidHash},
		{"bad salt", "$argon2id$v=19$m=8192,t=1,p=1$!!$aGFzaA", ErrInvalidHash},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Verify("pw", tt.encoded)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func newTestIssuer(t *testing.T, now func() time.Time) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(TokenConfig{
		Secret:     []byte(strings.Repeat("k", 32)),
		Issuer:     "tallyhub-test",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		Now:        now,
	})
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	return issuer
}

func TestNewTokenIssuer_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewTokenIssuer(TokenConfig{Secret: []byte("short"), Issuer: "x", AccessTTL: time.Minute, RefreshTTL: time.Minute}); err == nil {
		t.Error("expected error for short secret")
	}
	if _, err := NewTokenIssuer(TokenConfig{Secret: []byte(strings.Repeat("k", 32)), AccessTTL: time.Minute, RefreshTTL: time.Minute}); err == nil {
		t.Error("expected error for missing issuer")
	}
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, time.Now)
	pair, err := issuer.IssuePair("user-1")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	claims, err := issuer.Parse(pair.AccessToken, TokenAccess)
	if err != nil {
		t.Fatalf("Parse access: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", claims.UserID)
	}

	if _, err := issuer.Parse(pair.RefreshToken, TokenRefresh); err != nil {
		t.Fatalf("Parse refresh: %v", err)
	}
}

func TestTokenIssuer_RejectsWrongType(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, time.Now)
	pair, err := issuer.IssuePair("user-1")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	if _, err := issuer.Parse(pair.RefreshToken, TokenAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("refresh token accepted as access: err = %v", err)
	}
}

func TestTokenIssuer_RejectsExpired(t *testing.T) {
	t.Parallel()

	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	pair, err := newTestIssuer(t, func() time.Time { return issued }).IssuePair("user-1")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	later := newTestIssuer(t, func() time.Time { return issued.Add(16 * time.Minute) })
	if _, err := later.Parse(pair.AccessToken, TokenAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token accepted: err = %v", err)
	}
}

func TestTokenIssuer_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, time.Now)
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "tallyhub-test",
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Type: TokenAccess,
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	if _, err := issuer.Parse(raw, TokenAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("unsigned token accepted: err = %v", err)
	}
}

func TestTokenIssuer_RejectsTampered(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t, time.Now)
	pair, err := issuer.IssuePair("user-1")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	suffix := "xx"
	if strings.HasSuffix(pair.AccessToken, suffix) {
		suffix = "yy"
	}
	tampered := pair.AccessToken[:len(pair.AccessToken)-2] + suffix
	if _, err := issuer.Parse(tampered, TokenAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("tampered token accepted: err = %v", err)
	}
}

func TestPrincipalContext(t *testing.T) {
	t.Parallel()

	if p := PrincipalFromContext(context.Background()); p.Authenticated {
		t.Error("empty context should yield anonymous principal")
	}

	want := model.Principal{UserID: "u1", Username: "alice", Authenticated: true}
	got := PrincipalFromContext(ContextWithPrincipal(context.Background(), want))
	if got != want {
		t.Errorf("PrincipalFromContext = %+v, want %+v", got, want)
	}
}
