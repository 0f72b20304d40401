// Package auth verifies bearer tokens issued by the identity provider and exchanges
// them for tokens scoped to downstream services.
package auth

import (
	"crypto/rsa"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"

	"quiz-platform/internal/app"
	"quiz-platform/internal/domain"
)

var ErrInvalidToken = domain.Unauthorized("Invalid or expired token")

// Claims is the Keycloak access-token payload.
type Claims struct {
	jwt.RegisteredClaims
	Email             string      `json:"email"`
	PreferredUsername string      `json:"preferred_username"`
	GivenName         string      `json:"given_name"`
	FamilyName        string      `json:"family_name"`
	RealmAccess       RealmAccess `json:"realm_access"`
}

type RealmAccess struct {
	Roles []string `json:"roles"`
}

// Principal is the verified caller. UserID is filled in once the local user is resolved.
type Principal struct {
	UserID    string
	Subject   string
	Email     string
	Username  string
	FirstName string
	LastName  string
	Roles     []string
	Token     string
}

func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (p Principal) Identity() app.Identity {
	return app.Identity{
		Subject:   p.Subject,
		Email:     p.Email,
		Username:  p.Username,
		FirstName: p.FirstName,
		LastName:  p.LastName,
	}
}

type VerifierConfig struct {
	Issuer       string
	Audience     string
	PublicKeyPEM string
	HMACSecret   string
}

// Verifier checks signature, expiry, issuer and audience of bearer tokens.
// An RSA key takes precedence over the shared secret when both are configured.
type Verifier struct {
	issuer   string
	audience string
	method   string
	key      any
}

func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	v := &Verifier{issuer: cfg.Issuer, audience: cfg.Audience}
	switch {
	case cfg.PublicKeyPEM != "":
		key, err := parsePublicKey(cfg.PublicKeyPEM)
		if err != nil {
			return nil, err
		}
		v.method, v.key = jwt.SigningMethodRS256.Alg(), key
	case cfg.HMACSecret != "":
		v.method, v.key = jwt.SigningMethodHS256.Alg(), []byte(cfg.HMACSecret)
	default:
		return nil, errors.New("auth: either public_key_pem or hmac_secret must be configured")
	}
	return v, nil
}

func (v *Verifier) Verify(raw string) (Principal, error) {
	var claims Claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{v.method}))
	_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) { return v.key, nil })
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return Principal{}, ErrInvalidToken
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return Principal{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Principal{}, ErrInvalidToken
	}
	return Principal{
		Subject:   claims.Subject,
		Email:     claims.Email,
		Username:  claims.PreferredUsername,
		FirstName: claims.GivenName,
		LastName:  claims.FamilyName,
		Roles:     claims.RealmAccess.Roles,
		Token:     raw,
	}, nil
}

// parsePublicKey accepts a PEM block or the bare base64 key Keycloak shows in the realm settings.
func parsePublicKey(s string) (*rsa.PublicKey, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "-----BEGIN") {
		s = "-----BEGIN PUBLIC KEY-----\n" + s + "\n-----END PUBLIC KEY-----"
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(s))
	if err != nil {
		return nil, errors.Wrap(err, "auth: parse realm public key")
	}
	return key, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	fields := strings.Fields(header)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
		return "", false
	}
	return fields[1], true
}
