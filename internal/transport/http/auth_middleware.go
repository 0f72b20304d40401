package http

import (
	"context"

	"github.com/labstack/echo/v4"

	"quiz-platform/internal/app"
	"quiz-platform/internal/auth"
	"quiz-platform/internal/domain"
	"quiz-platform/internal/errs"
)

const principalKey = "principal"

var (
	errTokenRequired = errs.NewUnauthorizedError("Access token required", false)
	errNoPermission  = errs.NewForbiddenError("Insufficient permissions", false)
)

type TokenVerifier interface {
	Verify(raw string) (auth.Principal, error)
}

type IdentityProvisioner interface {
	EnsureFromIdentity(ctx context.Context, id app.Identity) (domain.User, error)
}

// AuthMiddleware resolves bearer tokens to local users.
type AuthMiddleware struct {
	verifier  TokenVerifier
	users     IdentityProvisioner
	adminRole string
}

func NewAuthMiddleware(verifier TokenVerifier, users IdentityProvisioner, adminRole string) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, users: users, adminRole: adminRole}
}

// Authenticate rejects requests without a valid token and provisions the caller on first sight.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw, ok := auth.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			return errTokenRequired
		}
		if err := m.resolve(c, raw); err != nil {
			return err
		}
		return next(c)
	}
}

// OptionalAuth resolves the caller when a token is present and lets anonymous requests through.
// A present but invalid token is still rejected.
func (m *AuthMiddleware) OptionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw, ok := auth.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			return next(c)
		}
		if err := m.resolve(c, raw); err != nil {
			return err
		}
		return next(c)
	}
}

// RequireRole must run after Authenticate.
func (m *AuthMiddleware) RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := principalFrom(c)
			if !ok {
				return errTokenRequired
			}
			if !p.HasRole(role) {
				return errNoPermission
			}
			return next(c)
		}
	}
}

func (m *AuthMiddleware) RequireAdmin() echo.MiddlewareFunc {
	return m.RequireRole(m.adminRole)
}

func (m *AuthMiddleware) resolve(c echo.Context, raw string) error {
	p, err := m.verifier.Verify(raw)
	if err != nil {
		return err
	}
	user, err := m.users.EnsureFromIdentity(c.Request().Context(), p.Identity())
	if err != nil {
		return err
	}
	if !user.IsActive {
		return errs.NewForbiddenError("User account is deactivated", false)
	}
	p.UserID = user.ID
	c.Set(principalKey, p)
	c.Set(userIDKey, user.ID)

	log := GetLogger(c).With().Str("user_id", user.ID).Logger()
	setLogger(c, log)
	return nil
}

func principalFrom(c echo.Context) (auth.Principal, bool) {
	p, ok := c.Get(principalKey).(auth.Principal)
	return p, ok
}

// actorFrom builds the service-layer caller. Anonymous requests yield the zero Actor.
func (m *AuthMiddleware) actorFrom(c echo.Context) app.Actor {
	p, ok := principalFrom(c)
	if !ok {
		return app.Actor{}
	}
	return app.Actor{UserID: p.UserID, IsAdmin: p.HasRole(m.adminRole)}
}
