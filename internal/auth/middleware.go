package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/ticket-board/pkg/util"
)

const identityKey = "auth_identity"

// AuthMiddleware resolves the session credential and verifies it. The
// credential source is either the Authorization header or a named session
// cookie, fixed per deployment; one middleware instance never accepts both.
type AuthMiddleware struct {
	verifier      Verifier
	sessionCookie string
}

// NewAuthMiddleware constructs middleware reading bearer tokens from the
// Authorization header.
func NewAuthMiddleware(verifier Verifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// NewCookieAuthMiddleware constructs middleware reading the session JWT
// from the named cookie instead of the Authorization header.
func NewCookieAuthMiddleware(verifier Verifier, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, sessionCookie: cookieName}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	credential, err := m.credential(c)
	if err != nil {
		return err
	}

	identity, err := m.verifier.Verify(c.UserContext(), credential)
	if err != nil {
		return apperrors.MapError(err)
	}

	c.Locals(identityKey, identity)
	return c.Next()
}

func (m *AuthMiddleware) credential(c *fiber.Ctx) (string, error) {
	if m.sessionCookie != "" {
		cookie := c.Cookies(m.sessionCookie)
		if cookie == "" {
			return "", apperrors.NewUnauthorized("missing session cookie")
		}
		return cookie, nil
	}

	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", apperrors.NewUnauthorized("missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", apperrors.NewUnauthorized("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// IdentityFromFiber retrieves the verified identity for the request.
func IdentityFromFiber(c *fiber.Ctx) (*Identity, bool) {
	val := c.Locals(identityKey)
	if val == nil {
		return nil, false
	}
	identity, ok := val.(*Identity)
	return identity, ok
}
