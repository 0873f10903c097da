package identity_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vaultline/vaultline/internal/identity"
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate test key: %v", err)
	}
	return key
}

func testIssuer(t *testing.T, ttl time.Duration) *identity.TokenIssuer {
	t.Helper()
	return identity.NewTokenIssuer(testKey(t), "http://test", ttl)
}

func TestIssueVerify_roundTrip(t *testing.T) {
	issuer := testIssuer(t, time.Hour)

	tok, err := issuer.Issue("u1", "User One")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := issuer.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "u1" {
		t.Errorf("subject = %q, want u1", claims.Subject)
	}
	if claims.DisplayName != "User One" {
		t.Errorf("display name = %q, want User One", claims.DisplayName)
	}
	if claims.ID == "" {
		t.Error("expected non-empty jti")
	}
}

func TestVerify_expired(t *testing.T) {
	issuer := testIssuer(t, -time.Minute)

	tok, err := issuer.Issue("u1", "User One")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := issuer.Verify(tok)
	if !errors.Is(err, identity.ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
	if claims != nil {
		t.Error("expired token must yield no claims")
	}
}

func TestVerify_tamperedPayload(t *testing.T) {
	issuer := testIssuer(t, time.Hour)

	tok, err := issuer.Issue("alice", "Alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Swap the subject in the payload segment; the signature no longer matches.
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %d segments", len(parts))
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	forged := strings.Replace(string(payload), `"sub":"alice"`, `"sub":"mallory"`, 1)
	if forged == string(payload) {
		t.Fatal("payload substitution did not apply")
	}
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(forged))

	claims, err := issuer.Verify(strings.Join(parts, "."))
	if !errors.Is(err, identity.ErrTokenSignatureInvalid) {
		t.Fatalf("err = %v, want ErrTokenSignatureInvalid", err)
	}
	if claims != nil {
		t.Error("tampered token must yield no claims")
	}
}

func TestVerify_wrongKey(t *testing.T) {
	issuer := testIssuer(t, time.Hour)
	other := testIssuer(t, time.Hour)

	tok, err := other.Issue("u1", "User One")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := issuer.Verify(tok); !errors.Is(err, identity.ErrTokenSignatureInvalid) {
		t.Fatalf("err = %v, want ErrTokenSignatureInvalid", err)
	}
}

func TestVerify_malformed(t *testing.T) {
	issuer := testIssuer(t, time.Hour)

	for _, tok := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		if _, err := issuer.Verify(tok); !errors.Is(err, identity.ErrTokenMalformed) {
			t.Errorf("Verify(%q) err = %v, want ErrTokenMalformed", tok, err)
		}
	}
}

func TestVerify_rejectsHMACToken(t *testing.T) {
	issuer := testIssuer(t, time.Hour)

	// An attacker signing with HS256 must not get past the RSA method check,
	// whatever the claims say.
	claims := jwt.RegisteredClaims{
		Issuer:    "http://test",
		Subject:   "mallory",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	hmacTok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign hmac token: %v", err)
	}

	if _, err := issuer.Verify(hmacTok); err == nil {
		t.Fatal("expected HS256 token to be rejected")
	}
}

func TestVerify_wrongIssuer(t *testing.T) {
	key := testKey(t)
	minting := identity.NewTokenIssuer(key, "http://other", time.Hour)
	verifying := identity.NewTokenIssuer(key, "http://test", time.Hour)

	tok, err := minting.Issue("u1", "User One")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := verifying.Verify(tok); err == nil {
		t.Fatal("expected wrong-issuer token to be rejected")
	}
}
