package utils

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// SessionCookie builds the HTTP-only session cookie scoped to the whole site.
func SessionCookie(name, token string, ttl time.Duration, secure bool) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

// ExpiredSessionCookie overwrites the session cookie with one the browser
// drops immediately.
func ExpiredSessionCookie(name string, secure bool) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}
