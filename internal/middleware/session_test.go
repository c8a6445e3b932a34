package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/utils"
)

var testRules = RouteRules{
	Public: []Rule{
		{Method: fiber.MethodGet, Pattern: "/api/projects"},
		{Method: fiber.MethodGet, Pattern: "/api/projects/:id"},
		{Pattern: "/api/auth/google/*"},
		{Pattern: "/login"},
	},
	Admin: []Rule{
		{Pattern: "/api/admin/*"},
		{Pattern: "/admin/*"},
	},
}

func newTestApp(t *testing.T) (*fiber.App, *utils.TokenService) {
	t.Helper()
	tokens := utils.NewTokenService("middleware-secret", time.Hour)
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zerolog.Nop())})
	app.Use(Session(SessionConfig{
		Tokens:     tokens,
		CookieName: "auth-token",
		Rules:      testRules,
	}))
	echo := func(c *fiber.Ctx) error {
		id, ok := CurrentIdentity(c)
		if !ok {
			return c.SendString("anonymous")
		}
		return c.SendString(id.UserID.String() + "|" + string(id.Role) + "|" + id.Email)
	}
	app.Get("/api/projects", echo)
	app.Get("/api/projects/:id", echo)
	app.Post("/api/projects", RequireRoles(models.RoleClient, models.RoleAdmin), echo)
	app.Get("/api/admin/users", echo)
	app.Get("/admin/users", echo)
	app.Get("/dashboard", echo)
	return app, tokens
}

func issue(t *testing.T, tokens *utils.TokenService, role models.Role) (string, uuid.UUID) {
	t.Helper()
	uid := uuid.New()
	tok, err := tokens.Issue(utils.SessionPayload{UserID: uid, Email: "u@example.com", Role: role})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok, uid
}

func do(t *testing.T, app *fiber.App, method, path, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "auth-token", Value: token})
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s %s: %v", method, path, err)
	}
	return resp
}

func TestRuleMatch(t *testing.T) {
	cases := []struct {
		rule   Rule
		method string
		path   string
		want   bool
	}{
		{Rule{Method: "GET", Pattern: "/api/projects/:id"}, "GET", "/api/projects/123", true},
		{Rule{Method: "GET", Pattern: "/api/projects/:id"}, "PATCH", "/api/projects/123", false},
		{Rule{Method: "GET", Pattern: "/api/projects/:id"}, "GET", "/api/projects/123/proposals", false},
		{Rule{Pattern: "/api/admin/*"}, "DELETE", "/api/admin/users/1", true},
		{Rule{Pattern: "/api/admin/*"}, "GET", "/api/admin", true},
		{Rule{Pattern: "/api/admin/*"}, "GET", "/api/administrators", false},
		{Rule{Pattern: "/"}, "GET", "/", true},
		{Rule{Pattern: "/"}, "GET", "/dashboard", false},
		{Rule{Pattern: "/api/admin/*"}, "GET", "/API/ADMIN/USERS", true},
		{Rule{Pattern: "/api/admin/*"}, "PATCH", "/Api/Admin/users/1/status", true},
		{Rule{Method: "GET", Pattern: "/api/projects/:id"}, "get", "/API/Projects/ABC", true},
	}
	for _, tc := range cases {
		if got := tc.rule.Match(tc.method, tc.path); got != tc.want {
			t.Fatalf("%+v %s %s: expected %v, got %v", tc.rule, tc.method, tc.path, tc.want, got)
		}
	}
}

func TestPublicRoutePassesWithoutCookie(t *testing.T) {
	app, _ := newTestApp(t)
	resp := do(t, app, "GET", "/api/projects", "")
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "anonymous" {
		t.Fatalf("expected public pass-through, got %d %s", resp.StatusCode, body)
	}
}

func TestProtectedAPIWithoutCookieIs401(t *testing.T) {
	app, _ := newTestApp(t)
	resp := do(t, app, "POST", "/api/projects", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body["error"] != "authentication required" || body["success"] != false {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestTamperedTokenIs401AndClearsCookie(t *testing.T) {
	app, tokens := newTestApp(t)
	tok, _ := issue(t, tokens, models.RoleClient)
	forged := tok[:strings.LastIndex(tok, ".")+1] + "forgedsignature"

	resp := do(t, app, "POST", "/api/projects", forged)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	cleared := false
	for _, ck := range resp.Cookies() {
		if ck.Name == "auth-token" && ck.Value == "" && ck.Expires.Before(time.Now()) {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("expected session cookie to be cleared, got %v", resp.Header.Values("Set-Cookie"))
	}
}

func TestExpiredTokenIs401(t *testing.T) {
	app, _ := newTestApp(t)
	expired := utils.NewTokenService("middleware-secret", -time.Minute)
	tok, _ := issue(t, expired, models.RoleClient)
	if resp := do(t, app, "POST", "/api/projects", tok); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", resp.StatusCode)
	}
}

func TestBrowserNavigationRedirectsToLogin(t *testing.T) {
	app, _ := newTestApp(t)
	resp := do(t, app, "GET", "/dashboard?tab=projects", "")
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/login?next=%2Fdashboard%3Ftab%3Dprojects" {
		t.Fatalf("unexpected location %q", loc)
	}
}

func TestAdminOnly(t *testing.T) {
	app, tokens := newTestApp(t)
	clientTok, _ := issue(t, tokens, models.RoleClient)
	adminTok, adminID := issue(t, tokens, models.RoleAdmin)

	if resp := do(t, app, "GET", "/api/admin/users", clientTok); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin API call, got %d", resp.StatusCode)
	}
	resp := do(t, app, "GET", "/admin/users", clientTok)
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/dashboard" {
		t.Fatalf("expected redirect to dashboard, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp = do(t, app, "GET", "/api/admin/users", adminTok)
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(string(body), adminID.String()+"|admin|") {
		t.Fatalf("expected admin identity, got %d %s", resp.StatusCode, body)
	}
}

func TestAdminRuleIgnoresPathCase(t *testing.T) {
	app, tokens := newTestApp(t)
	studentTok, _ := issue(t, tokens, models.RoleStudent)

	for _, path := range []string{"/API/ADMIN/USERS", "/Api/Admin/users", "/api/ADMIN/users"} {
		resp := do(t, app, "GET", path, studentTok)
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("%s: expected 403 for student, got %d", path, resp.StatusCode)
		}
	}
	if resp := do(t, app, "GET", "/Admin/Users", studentTok); resp.StatusCode != http.StatusFound {
		t.Fatalf("expected browser redirect for mixed-case admin page, got %d", resp.StatusCode)
	}
}

type activeSet map[uuid.UUID]bool

func (s activeSet) IsActive(_ context.Context, id uuid.UUID) (bool, error) {
	return s[id], nil
}

func TestInactiveAccountLosesSession(t *testing.T) {
	tokens := utils.NewTokenService("middleware-secret", time.Hour)
	activeTok, activeID := issue(t, tokens, models.RoleClient)
	inactiveTok, _ := issue(t, tokens, models.RoleClient)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zerolog.Nop())})
	app.Use(Session(SessionConfig{
		Tokens:     tokens,
		CookieName: "auth-token",
		Rules:      testRules,
		Users:      activeSet{activeID: true},
	}))
	app.Post("/api/projects", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/dashboard", func(c *fiber.Ctx) error { return c.SendString("ok") })

	if resp := do(t, app, "POST", "/api/projects", activeTok); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected active account to pass, got %d", resp.StatusCode)
	}

	resp := do(t, app, "POST", "/api/projects", inactiveTok)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for inactive account, got %d", resp.StatusCode)
	}
	cleared := false
	for _, ck := range resp.Cookies() {
		if ck.Name == "auth-token" && ck.Value == "" {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("expected session cookie to be cleared, got %v", resp.Header.Values("Set-Cookie"))
	}

	resp = do(t, app, "GET", "/dashboard", inactiveTok)
	if resp.StatusCode != http.StatusFound || !strings.HasPrefix(resp.Header.Get("Location"), "/login") {
		t.Fatalf("expected redirect to login, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestIdentityInjectedAndRoleGate(t *testing.T) {
	app, tokens := newTestApp(t)
	clientTok, clientID := issue(t, tokens, models.RoleClient)
	studentTok, _ := issue(t, tokens, models.RoleStudent)

	resp := do(t, app, "POST", "/api/projects", clientTok)
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != clientID.String()+"|client|u@example.com" {
		t.Fatalf("unexpected response %d %s", resp.StatusCode, body)
	}
	if resp := do(t, app, "POST", "/api/projects", studentTok); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for student, got %d", resp.StatusCode)
	}
}

func TestIsAPIPath(t *testing.T) {
	for path, want := range map[string]bool{
		"/api":          true,
		"/api/projects": true,
		"/API/projects": true,
		"/WS/messages":  true,
		"/ws/messages":  true,
		"/apiary":       false,
		"/dashboard":    false,
		"/login":        false,
	} {
		if IsAPIPath(path) != want {
			t.Fatalf("%s: expected %v", path, want)
		}
	}
}
