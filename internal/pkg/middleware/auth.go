package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"golang.org/x/crypto/bcrypt"
)

const adminRealm = "glowfit admin"

// RequireAdmin protects support routes with HTTP basic auth. The password is
// compared against a bcrypt hash; an empty user or hash locks the routes.
func RequireAdmin(user, passwordHash string) fiber.Handler {
	return basicauth.New(basicauth.Config{
		Realm: adminRealm,
		Authorizer: func(u, p string) bool {
			if user == "" || passwordHash == "" {
				return false
			}
			if subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 {
				return false
			}
			return bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(p)) == nil
		},
		Unauthorized: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="`+adminRealm+`"`)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "unauthorized",
				"message": "Missing or invalid credentials",
			})
		},
	})
}

// HashPassword returns the bcrypt hash stored in ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}
