package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/apperr"
)

type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// RateLimit keys quota by client IP within scope. A nil limiter disables it.
func RateLimit(l Limiter, scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if l == nil {
			return c.Next()
		}
		if !l.Allow(c.UserContext(), scope+":"+c.IP()) {
			return apperr.RateLimited()
		}
		return c.Next()
	}
}
