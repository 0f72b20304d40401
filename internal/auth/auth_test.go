package auth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"quiz-platform/internal/auth"
	"quiz-platform/internal/domain"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims auth.Claims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return raw
}

func validClaims() auth.Claims {
	return auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "kc-1",
			Issuer:    "http://keycloak/realms/quiz",
			Audience:  jwt.ClaimStrings{"api-service"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email:             "ada@example.com",
		PreferredUsername: "ada",
		GivenName:         "Ada",
		FamilyName:        "Lovelace",
		RealmAccess:       auth.RealmAccess{Roles: []string{"user", "admin"}},
	}
}

func TestVerifyHS256(t *testing.T) {
	v, err := auth.NewVerifier(auth.VerifierConfig{
		Issuer:     "http://keycloak/realms/quiz",
		Audience:   "api-service",
		HMACSecret: secret,
	})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	raw := sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims())

	p, err := v.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if p.Subject != "kc-1" || p.Username != "ada" || p.Email != "ada@example.com" {
		t.Fatalf("unexpected principal: %+v", p)
	}
	if !p.HasRole("admin") || p.HasRole("moderator") {
		t.Fatalf("roles not extracted: %v", p.Roles)
	}
	if id := p.Identity(); id.Subject != "kc-1" || id.FirstName != "Ada" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestVerifyRejects(t *testing.T) {
	v, err := auth.NewVerifier(auth.VerifierConfig{Audience: "api-service", HMACSecret: secret})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	wrongAud := validClaims()
	wrongAud.Audience = jwt.ClaimStrings{"other"}
	noSub := validClaims()
	noSub.Subject = ""

	cases := map[string]string{
		"expired":        sign(t, jwt.SigningMethodHS256, []byte(secret), expired),
		"wrong audience": sign(t, jwt.SigningMethodHS256, []byte(secret), wrongAud),
		"missing sub":    sign(t, jwt.SigningMethodHS256, []byte(secret), noSub),
		"wrong secret":   sign(t, jwt.SigningMethodHS256, []byte("nope"), validClaims()),
		"garbage":        "not-a-token",
	}
	for name, raw := range cases {
		if _, err := v.Verify(raw); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("%s: expected unauthorized, got %v", name, err)
		}
	}
}

func TestVerifyRS256WithBareKey(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	v, err := auth.NewVerifier(auth.VerifierConfig{PublicKeyPEM: base64.StdEncoding.EncodeToString(der)})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	if _, err := v.Verify(sign(t, jwt.SigningMethodRS256, key, validClaims())); err != nil {
		t.Fatalf("verify rs256: %v", err)
	}
	// an HS256 token must not be accepted by an RS256 verifier
	if _, err := v.Verify(sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims())); err == nil {
		t.Fatalf("expected algorithm mismatch to fail")
	}
}

func TestNewVerifierRequiresKey(t *testing.T) {
	if _, err := auth.NewVerifier(auth.VerifierConfig{}); err == nil {
		t.Fatalf("expected error without key material")
	}
}

func TestBearerToken(t *testing.T) {
	if tok, ok := auth.BearerToken("Bearer abc"); !ok || tok != "abc" {
		t.Fatalf("unexpected: %q %v", tok, ok)
	}
	for _, h := range []string{"", "Basic abc", "Bearer", "Bearer a b"} {
		if _, ok := auth.BearerToken(h); ok {
			t.Fatalf("expected %q to be rejected", h)
		}
	}
}

func TestExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		want := map[string]string{
			"grant_type":         "urn:ietf:params:oauth:grant-type:token-exchange",
			"subject_token":      "user-token",
			"subject_token_type": "urn:ietf:params:oauth:token-type:access_token",
			"audience":           "feedback-service",
			"client_id":          "api-service",
			"client_secret":      "s3cret",
		}
		for k, v := range want {
			if got := r.PostForm.Get(k); got != v {
				t.Errorf("%s = %q, want %q", k, got, v)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "exchanged",
			"token_type":   "Bearer",
			"expires_in":   300,
		})
	}))
	defer srv.Close()

	ex := auth.NewExchanger(auth.ExchangerConfig{
		TokenURL:        srv.URL,
		ClientID:        "api-service",
		ClientSecret:    "s3cret",
		DefaultAudience: "feedback-service",
	})
	tok, err := ex.Exchange(context.Background(), "user-token", "")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if tok.AccessToken != "exchanged" || tok.TokenType != "Bearer" {
		t.Fatalf("unexpected token: %+v", tok)
	}
	if tok.ExpiresIn < 295 || tok.ExpiresIn > 300 {
		t.Fatalf("unexpected expires_in: %d", tok.ExpiresIn)
	}
}

func TestExchangeNotConfigured(t *testing.T) {
	ex := auth.NewExchanger(auth.ExchangerConfig{})
	if ex.Configured() {
		t.Fatalf("expected unconfigured exchanger")
	}
	if _, err := ex.Exchange(context.Background(), "tok", ""); err == nil {
		t.Fatalf("expected error")
	}
}
