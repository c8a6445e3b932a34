package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/middleware"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/testutil"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/utils"
)

type fakeGoogle struct {
	srv  *httptest.Server
	info googleUserInfo
}

func newFakeGoogle(t *testing.T, info googleUserInfo) *fakeGoogle {
	t.Helper()
	fg := &fakeGoogle{info: info}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-123","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"email":          fg.info.Email,
			"verified_email": fg.info.VerifiedEmail,
			"given_name":     fg.info.GivenName,
			"family_name":    fg.info.FamilyName,
			"picture":        fg.info.Picture,
		})
	})
	fg.srv = httptest.NewServer(mux)
	t.Cleanup(fg.srv.Close)
	return fg
}

type googleHarness struct {
	app    *fiber.App
	h      *GoogleOAuthHandler
	events *testutil.Recorder
	google *fakeGoogle
}

func newGoogleHarness(t *testing.T, info googleUserInfo) *googleHarness {
	t.Helper()
	fg := newFakeGoogle(t, info)
	rec := &testutil.Recorder{}
	h := &GoogleOAuthHandler{
		DB:         testutil.NewDB(t),
		Tokens:     utils.NewTokenService("google-test-secret", time.Hour),
		CookieName: "auth-token",
		OAuth: &oauth2.Config{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "http://api.test/api/auth/google/callback",
			Endpoint: oauth2.Endpoint{
				AuthURL:   fg.srv.URL + "/auth",
				TokenURL:  fg.srv.URL + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: []string{"email"},
		},
		UserInfoURL:     fg.srv.URL + "/userinfo",
		FrontendBaseURL: "http://localhost:3000",
		Events:          rec,
		Log:             zerolog.Nop(),
	}
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(zerolog.Nop())})
	app.Get("/start", h.GoogleStart)
	app.Get("/callback", h.GoogleCallback)
	return &googleHarness{app: app, h: h, events: rec, google: fg}
}

func cookieMap(resp *http.Response) map[string]string {
	out := map[string]string{}
	for _, c := range resp.Cookies() {
		out[c.Name] = c.Value
	}
	return out
}

func (g *googleHarness) start(t *testing.T, query string) map[string]string {
	t.Helper()
	resp, err := g.app.Test(httptest.NewRequest(http.MethodGet, "/start"+query, nil), -1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("expected redirect to consent, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); !strings.HasPrefix(loc, g.google.srv.URL+"/auth?") {
		t.Fatalf("unexpected consent url %q", loc)
	}
	return cookieMap(resp)
}

func (g *googleHarness) callback(t *testing.T, code, state string, cookies map[string]string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/callback?code="+code+"&state="+state, nil)
	for name, value := range cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	resp, err := g.app.Test(req, -1)
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	return resp
}

func TestGoogleSignInCreatesAccount(t *testing.T) {
	g := newGoogleHarness(t, googleUserInfo{
		Email: "Nina@Example.com", VerifiedEmail: true,
		GivenName: "Nina", FamilyName: "Park", Picture: "https://img.example.com/nina.png",
	})

	cookies := g.start(t, "?role=freelancer&next=/dashboard")
	if cookies[oauthRoleCookie] != "freelancer" || cookies[oauthNextCookie] != "/dashboard" || cookies[oauthStateCookie] == "" {
		t.Fatalf("unexpected temp cookies %v", cookies)
	}

	resp := g.callback(t, "good-code", cookies[oauthStateCookie], cookies)
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("expected redirect, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "http://localhost:3000/dashboard" {
		t.Fatalf("unexpected location %q", loc)
	}
	token := cookieMap(resp)["auth-token"]
	payload := g.h.Tokens.Verify(token)
	if payload == nil || payload.Role != models.RoleFreelancer || payload.Email != "nina@example.com" {
		t.Fatalf("unexpected session %+v", payload)
	}

	var u models.User
	if err := g.h.DB.First(&u, "email = ?", "nina@example.com").Error; err != nil {
		t.Fatalf("user not created: %v", err)
	}
	if u.FirstName != "Nina" || u.AvatarURL == "" || u.Availability != models.AvailabilityAvailable {
		t.Fatalf("unexpected user %+v", u)
	}
	if !g.events.Has("user.registered") {
		t.Fatalf("expected user.registered, got %v", g.events.Keys())
	}
}

func TestGoogleSignInExistingAccountKeepsRole(t *testing.T) {
	g := newGoogleHarness(t, googleUserInfo{})
	existing := testutil.CreateUser(t, g.h.DB, models.RoleStudent)
	g.google.info = googleUserInfo{Email: existing.Email, VerifiedEmail: true, GivenName: "Other"}

	cookies := g.start(t, "?role=admin")
	if cookies[oauthRoleCookie] != string(models.RoleClient) {
		t.Fatalf("admin must never be requested, got %q", cookies[oauthRoleCookie])
	}
	resp := g.callback(t, "good-code", cookies[oauthStateCookie], cookies)
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("expected redirect, got %d", resp.StatusCode)
	}
	payload := g.h.Tokens.Verify(cookieMap(resp)["auth-token"])
	if payload == nil || payload.UserID != existing.ID || payload.Role != models.RoleStudent {
		t.Fatalf("expected the existing student session, got %+v", payload)
	}
	if g.events.Has("user.registered") {
		t.Fatalf("existing accounts are not registrations")
	}
}

func TestGoogleCallbackRejections(t *testing.T) {
	g := newGoogleHarness(t, googleUserInfo{Email: "x@example.com", VerifiedEmail: false})
	cookies := g.start(t, "")

	if resp := g.callback(t, "good-code", "forged-state", cookies); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("state mismatch: expected 400, got %d", resp.StatusCode)
	}
	if resp := g.callback(t, "bad-code", cookies[oauthStateCookie], cookies); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("failed exchange: expected 401, got %d", resp.StatusCode)
	}
	if resp := g.callback(t, "good-code", cookies[oauthStateCookie], cookies); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unverified email: expected 401, got %d", resp.StatusCode)
	}
}

func TestGoogleDeactivatedAccountRedirectsToLogin(t *testing.T) {
	g := newGoogleHarness(t, googleUserInfo{})
	u := testutil.CreateUser(t, g.h.DB, models.RoleClient)
	if err := g.h.DB.Model(u).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	g.google.info = googleUserInfo{Email: u.Email, VerifiedEmail: true}

	cookies := g.start(t, "")
	resp := g.callback(t, "good-code", cookies[oauthStateCookie], cookies)
	if loc := resp.Header.Get("Location"); !strings.HasPrefix(loc, "http://localhost:3000/login?err=") {
		t.Fatalf("unexpected location %q", loc)
	}
	if _, ok := cookieMap(resp)["auth-token"]; ok {
		t.Fatalf("deactivated accounts must not get a session")
	}
}

func TestSafeNext(t *testing.T) {
	cases := map[string]string{
		"/courses":          "/courses",
		"//evil.example":    "/",
		"https://evil.test": "/",
		"":                  "/",
	}
	for in, want := range cases {
		if got := safeNext(in); got != want {
			t.Fatalf("safeNext(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGoogleStartWithoutConfig(t *testing.T) {
	h := &GoogleOAuthHandler{}
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(zerolog.Nop())})
	app.Get("/start", h.GoogleStart)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/start", nil), -1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
