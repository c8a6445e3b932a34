package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/db"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/events"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/utils"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

	oauthStateCookie = "oauth_state"
	oauthNextCookie  = "oauth_next"
	oauthRoleCookie  = "oauth_role"
	oauthCookieTTL   = 10 * 60
)

type GoogleOAuthHandler struct {
	DB              *gorm.DB
	Tokens          *utils.TokenService
	CookieName      string
	Secure          bool
	OAuth           *oauth2.Config
	UserInfoURL     string
	FrontendBaseURL string
	Events          events.Publisher
	Log             zerolog.Logger
}

func NewGoogleOAuthConfig(clientID, secret, redirect string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: secret,
		RedirectURL:  redirect,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"openid", "email", "profile"},
	}
}

func randomState(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// safeNext only allows same-site absolute paths.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}

func (h *GoogleOAuthHandler) tempCookie(name, value string, maxAge int) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

// GoogleStart redirects to the consent screen. The optional role query
// parameter only applies when the callback creates a new account.
func (h *GoogleOAuthHandler) GoogleStart(c *fiber.Ctx) error {
	if h.OAuth == nil || h.OAuth.ClientID == "" {
		return apperr.NotFound("google sign-in is not configured")
	}
	role := models.RoleClient
	if r, ok := models.ParseRole(c.Query("role")); ok && r != models.RoleAdmin {
		role = r
	}
	st := randomState(32)

	c.Cookie(h.tempCookie(oauthStateCookie, st, oauthCookieTTL))
	c.Cookie(h.tempCookie(oauthNextCookie, safeNext(c.Query("next", "/")), oauthCookieTTL))
	c.Cookie(h.tempCookie(oauthRoleCookie, string(role), oauthCookieTTL))

	return c.Redirect(h.OAuth.AuthCodeURL(st, oauth2.AccessTypeOffline), http.StatusTemporaryRedirect)
}

type googleUserInfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (g googleUserInfo) names() (string, string) {
	if g.GivenName != "" {
		return g.GivenName, g.FamilyName
	}
	first, last, _ := strings.Cut(strings.TrimSpace(g.Name), " ")
	return first, strings.TrimSpace(last)
}

func (h *GoogleOAuthHandler) GoogleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		return apperr.Field("state", "missing code or state")
	}
	if st := c.Cookies(oauthStateCookie); st == "" || st != state {
		return apperr.Field("state", "is invalid")
	}
	next := safeNext(c.Cookies(oauthNextCookie))
	role := models.RoleClient
	if r, ok := models.ParseRole(c.Cookies(oauthRoleCookie)); ok && r != models.RoleAdmin {
		role = r
	}

	gu, err := h.fetchUserInfo(c, code)
	if err != nil {
		h.Log.Warn().Err(err).Msg("google sign-in failed")
		return apperr.Unauthenticated("google sign-in failed")
	}
	email := strings.ToLower(strings.TrimSpace(gu.Email))
	if email == "" || !gu.VerifiedEmail {
		return apperr.Unauthenticated("google account has no verified email")
	}

	u, isNew, err := h.upsertUser(c, email, role, gu)
	if err != nil {
		return err
	}

	for _, name := range []string{oauthStateCookie, oauthNextCookie, oauthRoleCookie} {
		c.Cookie(h.tempCookie(name, "", -1))
	}

	if !u.IsActive {
		return c.Redirect(h.FrontendBaseURL+"/login?err="+url.QueryEscape("account is deactivated"), http.StatusTemporaryRedirect)
	}

	token, err := h.Tokens.Issue(utils.SessionPayload{UserID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return apperr.Internal("issue token", err)
	}
	c.Cookie(utils.SessionCookie(h.CookieName, token, h.Tokens.TTL(), h.Secure))

	if isNew {
		events.Emit(c.UserContext(), h.Events, h.Log, events.UserRegistered, fiber.Map{
			"user_id":  u.ID,
			"email":    u.Email,
			"role":     u.Role,
			"provider": "google",
		})
	}
	return c.Redirect(h.FrontendBaseURL+next, http.StatusTemporaryRedirect)
}

func (h *GoogleOAuthHandler) fetchUserInfo(c *fiber.Ctx, code string) (*googleUserInfo, error) {
	tok, err := h.OAuth.Exchange(c.UserContext(), code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	infoURL := h.UserInfoURL
	if infoURL == "" {
		infoURL = googleUserInfoURL
	}
	resp, err := h.OAuth.Client(c.UserContext(), tok).Get(infoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}

	var gu googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &gu, nil
}

// upsertUser finds the account by email or creates one with an unusable
// random password.
func (h *GoogleOAuthHandler) upsertUser(c *fiber.Ctx, email string, role models.Role, gu *googleUserInfo) (*models.User, bool, error) {
	tx := h.DB.WithContext(c.UserContext())

	var u models.User
	err := tx.Where("email = ?", email).First(&u).Error
	if err == nil {
		if u.AvatarURL == "" && gu.Picture != "" {
			if err := tx.Model(&u).Update("avatar_url", gu.Picture).Error; err != nil {
				return nil, false, db.Wrap(err, "update avatar")
			}
		}
		return &u, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, db.Wrap(err, "load user")
	}

	hashed, err := utils.HashPassword(randomState(24))
	if err != nil {
		return nil, false, apperr.Internal("hash password", err)
	}
	first, last := gu.names()
	if first == "" {
		first, _, _ = strings.Cut(email, "@")
	}
	u = models.User{
		Email:     email,
		Password:  hashed,
		FirstName: first,
		LastName:  last,
		Role:      role,
		IsActive:  true,
		AvatarURL: gu.Picture,
	}
	if role == models.RoleFreelancer {
		u.Availability = models.AvailabilityAvailable
	}
	if err := tx.Create(&u).Error; err != nil {
		return nil, false, db.Write(err, "create user", "email already registered")
	}
	return &u, true, nil
}
