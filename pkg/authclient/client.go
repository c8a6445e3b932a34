// Package authclient is the client-side auth context: it keeps the signed-in
// user obtained from the API and decides whether a page may render.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	LoginPath = "/login"
	HomePath  = "/dashboard"
)

// User mirrors the summary returned by the auth endpoints.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	AvatarURL string `json:"avatar_url"`
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusUnauthorized
}

// Client talks to the API with a cookie jar, so the session cookie set by
// login or register is replayed on every later call.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu       sync.RWMutex
	user     *User
	resolved bool
}

func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
	}, nil
}

// User returns a copy of the cached user, nil when signed out or unresolved.
func (c *Client) User() *User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

// Loading is true until the first Refresh, Login or Register settles.
func (c *Client) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.resolved
}

func (c *Client) set(u *User) {
	c.mu.Lock()
	c.user = u
	c.resolved = true
	c.mu.Unlock()
}

// Refresh asks the API who the session belongs to. A 401 clears the cache
// and is not an error; other failures leave the cache untouched.
func (c *Client) Refresh(ctx context.Context) (*User, error) {
	var out userEnvelope
	err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", nil, &out)
	if IsUnauthorized(err) {
		c.set(nil)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.set(&out.Data.User)
	return c.User(), nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	payload := map[string]string{"action": "login", "email": email, "password": password}
	return c.authenticate(ctx, payload)
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

func (c *Client) Register(ctx context.Context, in RegisterInput) (*User, error) {
	payload := map[string]string{
		"action":    "register",
		"email":     in.Email,
		"password":  in.Password,
		"firstName": in.FirstName,
		"lastName":  in.LastName,
		"role":      in.Role,
	}
	return c.authenticate(ctx, payload)
}

func (c *Client) authenticate(ctx context.Context, payload map[string]string) (*User, error) {
	var out userEnvelope
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth", payload, &out); err != nil {
		return nil, err
	}
	c.set(&out.Data.User)
	return c.User(), nil
}

// Logout drops the session and returns the route to navigate to. The cache
// is cleared even when the API call fails.
func (c *Client) Logout(ctx context.Context) (string, error) {
	err := c.doJSON(ctx, http.MethodDelete, "/api/auth", nil, nil)
	c.set(nil)
	return "/", err
}

type Action int

const (
	Pending Action = iota
	Render
	RedirectLogin
	RedirectHome
)

func (a Action) String() string {
	switch a {
	case Render:
		return "render"
	case RedirectLogin:
		return "redirect-login"
	case RedirectHome:
		return "redirect-home"
	default:
		return "pending"
	}
}

type Decision struct {
	Action   Action
	Location string
}

// Gate decides what a protected page at path should do. With no allowed
// roles any signed-in user may render it.
func (c *Client) Gate(path string, allowed ...string) Decision {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.resolved {
		return Decision{Action: Pending}
	}
	if c.user == nil {
		return Decision{Action: RedirectLogin, Location: LoginPath + "?next=" + url.QueryEscape(path)}
	}
	if len(allowed) > 0 && !contains(allowed, c.user.Role) {
		return Decision{Action: RedirectHome, Location: HomePath}
	}
	return Decision{Action: Render}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

type userEnvelope struct {
	Data struct {
		User User `json:"user"`
	} `json:"data"`
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Error
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
