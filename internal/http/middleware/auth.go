package middleware

import (
	"errors"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"invoicevault/internal/service"
)

// Scopes granted to callers through the "scope" claim.
const (
	ScopeWrite  = "invoice:write"
	ScopeRead   = "invoice:read"
	ScopeManage = "invoice:manage"
)

const (
	// ActorLocalKey holds the authenticated subject in Fiber locals.
	ActorLocalKey  = "actor"
	scopesLocalKey = "scopes"
)

var errUnauthorized = errors.New("unauthorized")

// Claims carried by caller tokens. Scope is space separated, as in OAuth2.
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// ParseToken verifies an HMAC signed token and returns its claims.
func ParseToken(raw string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, errUnauthorized
	}
	if claims.Subject == "" {
		return nil, errUnauthorized
	}
	return claims, nil
}

// Auth authenticates Bearer tokens and puts the subject on the request
// context as the acting user. With an empty secret every request passes as
// "anonymous" with all scopes; only development setups should run that way.
func Auth(secret string) fiber.Handler {
	key := []byte(secret)
	return func(c *fiber.Ctx) error {
		if secret == "" {
			setActor(c, "anonymous", []string{ScopeWrite, ScopeRead, ScopeManage})
			return c.Next()
		}

		header := c.Get(fiber.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}
		claims, err := ParseToken(raw, key)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}
		setActor(c, claims.Subject, strings.Fields(claims.Scope))
		return c.Next()
	}
}

// RequireScope rejects callers whose token lacks scope.
func RequireScope(scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scopes, _ := c.Locals(scopesLocalKey).([]string)
		if !slices.Contains(scopes, scope) {
			return fiber.NewError(fiber.StatusForbidden, "missing scope "+scope)
		}
		return c.Next()
	}
}

func setActor(c *fiber.Ctx, actor string, scopes []string) {
	c.Locals(ActorLocalKey, actor)
	c.Locals(scopesLocalKey, scopes)
	c.SetUserContext(service.WithActor(c.UserContext(), actor))
}
