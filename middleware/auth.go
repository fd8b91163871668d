package middleware

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	"Workforce/Models"
)

// CookieName is the cookie carrying the session token.
const CookieName = "jwt"

// TokenLifetime is how long an issued session stays valid.
const TokenLifetime = 24 * time.Hour

// UserSource resolves the user a token was issued to.
type UserSource interface {
	FetchUser(ctx context.Context, id uint) (*Models.User, error)
}

type Authenticator struct {
	Secret []byte
	Users  UserSource
}

func NewAuthenticator(secret string, users UserSource) *Authenticator {
	return &Authenticator{Secret: []byte(secret), Users: users}
}

// IssueToken signs a session token whose issuer is the user id.
func (a *Authenticator) IssueToken(userID uint, now time.Time) (string, error) {
	claims := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    strconv.FormatUint(uint64(userID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(TokenLifetime)),
	})
	return claims.SignedString(a.Secret)
}

// ParseToken validates a session token and returns the user id it names.
func (a *Authenticator) ParseToken(raw string) (uint, error) {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.Secret, nil
	})
	if err != nil {
		return 0, err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return 0, errors.New("invalid token claims")
	}
	id, err := strconv.ParseUint(claims.Issuer, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid token issuer")
	}
	return uint(id), nil
}

// Verify requires a valid session whose role grants at least the given
// permission level. The resolved user is stored in Locals("user").
func (a *Authenticator) Verify(requiredPermission int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cookie := c.Cookies(CookieName)
		if cookie == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Not Logged In.",
			})
		}

		userID, err := a.ParseToken(cookie)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
			})
		}

		user, err := a.Users.FetchUser(c.UserContext(), userID)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "User not found",
			})
		}
		c.Locals("user", *user)

		if user.Role.Permission() == 0 || user.Role.Permission() < requiredPermission {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Insufficient permissions to access this resource",
			})
		}
		return c.Next()
	}
}

// CurrentUser returns the user stored by Verify.
func CurrentUser(c *fiber.Ctx) (Models.User, bool) {
	user, ok := c.Locals("user").(Models.User)
	return user, ok
}
