package middleware

import (
	"context"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/utils"
)

// IdentityLocal is the Locals key holding the verified Identity.
const IdentityLocal = "identity"

// Identity is the verified caller, available to handlers behind Session.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   models.Role
}

func (i Identity) IsAdmin() bool { return i.Role == models.RoleAdmin }

func SetIdentity(c *fiber.Ctx, id Identity) { c.Locals(IdentityLocal, id) }

func CurrentIdentity(c *fiber.Ctx) (Identity, bool) {
	id, ok := c.Locals(IdentityLocal).(Identity)
	return id, ok && id.UserID != uuid.Nil
}

type TokenVerifier interface {
	Verify(token string) *utils.SessionPayload
}

// ActiveUsers reports whether the account behind a verified token may still
// act. A missing account is not active.
type ActiveUsers interface {
	IsActive(ctx context.Context, userID uuid.UUID) (bool, error)
}

type Access int

const (
	AccessProtected Access = iota
	AccessPublic
	AccessAdmin
)

// Rule matches a method and a path pattern. An empty Method matches any
// method. Pattern segments starting with ':' match one segment and a
// trailing '*' matches the rest of the path, including nothing. Literal
// segments compare case-insensitively, like the router.
type Rule struct {
	Method  string
	Pattern string
}

func (r Rule) Match(method, path string) bool {
	if r.Method != "" && !strings.EqualFold(r.Method, method) {
		return false
	}
	pat := splitPath(r.Pattern)
	segs := splitPath(path)
	for i, p := range pat {
		if p == "*" && i == len(pat)-1 {
			return true
		}
		if i >= len(segs) {
			return false
		}
		if strings.HasPrefix(p, ":") {
			continue
		}
		if !strings.EqualFold(p, segs[i]) {
			return false
		}
	}
	return len(segs) == len(pat)
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

type RouteRules struct {
	Public []Rule
	Admin  []Rule
}

// Classify decides how a request is guarded. Anything not listed is protected.
func (r RouteRules) Classify(method, path string) Access {
	if method == fiber.MethodOptions {
		return AccessPublic
	}
	for _, rule := range r.Admin {
		if rule.Match(method, path) {
			return AccessAdmin
		}
	}
	for _, rule := range r.Public {
		if rule.Match(method, path) {
			return AccessPublic
		}
	}
	return AccessProtected
}

// IsAPIPath tells machine calls, which get JSON errors, from browser
// navigation, which gets redirects.
func IsAPIPath(path string) bool {
	path = strings.ToLower(path)
	for _, prefix := range []string{"/api", "/ws"} {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

type SessionConfig struct {
	Tokens     TokenVerifier
	CookieName string
	Secure     bool
	Rules      RouteRules
	// Users, when set, is consulted on every authenticated request so a
	// deactivated account loses access before its token expires.
	Users      ActiveUsers
	LoginPath  string
	HomePath   string
}

// Session classifies, authenticates and authorizes every request once and
// stores the verified Identity for downstream handlers.
func Session(cfg SessionConfig) fiber.Handler {
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.HomePath == "" {
		cfg.HomePath = "/dashboard"
	}
	return func(c *fiber.Ctx) error {
		path := c.Path()
		access := cfg.Rules.Classify(c.Method(), path)
		if access == AccessPublic {
			return c.Next()
		}
		api := IsAPIPath(path)

		token := c.Cookies(cfg.CookieName)
		if token == "" {
			return reject(c, api, cfg.LoginPath)
		}
		payload := cfg.Tokens.Verify(token)
		if payload == nil {
			c.Cookie(utils.ExpiredSessionCookie(cfg.CookieName, cfg.Secure))
			return reject(c, api, cfg.LoginPath)
		}
		if cfg.Users != nil {
			active, err := cfg.Users.IsActive(c.UserContext(), payload.UserID)
			if err != nil {
				return apperr.Internal("check account status", err)
			}
			if !active {
				c.Cookie(utils.ExpiredSessionCookie(cfg.CookieName, cfg.Secure))
				return reject(c, api, cfg.LoginPath)
			}
		}

		if access == AccessAdmin && payload.Role != models.RoleAdmin {
			if api {
				return apperr.Forbidden("admin access required")
			}
			return c.Redirect(cfg.HomePath, fiber.StatusFound)
		}

		SetIdentity(c, Identity{UserID: payload.UserID, Email: payload.Email, Role: payload.Role})
		return c.Next()
	}
}

func reject(c *fiber.Ctx, api bool, loginPath string) error {
	if api {
		return apperr.Unauthenticated("")
	}
	return c.Redirect(loginPath+"?next="+url.QueryEscape(c.OriginalURL()), fiber.StatusFound)
}
