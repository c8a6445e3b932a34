package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/db"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/events"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/utils"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/validate"
)

type AuthHandler struct {
	DB         *gorm.DB
	Tokens     *utils.TokenService
	CookieName string
	Secure     bool
	Events     events.Publisher
	Log        zerolog.Logger
}

type authRequest struct {
	Action    string `json:"action"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"firstName" validate:"required,max=80"`
	LastName  string `json:"lastName" validate:"max=80"`
	Role      string `json:"role" validate:"required,oneof=client freelancer student"`
}

var errBadCredentials = apperr.Unauthenticated("invalid email or password")

// Handle serves POST /api/auth and dispatches on the "action" field.
func (h *AuthHandler) Handle(c *fiber.Ctx) error {
	var req authRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	switch req.Action {
	case "login":
		return h.login(c, loginRequest{Email: req.Email, Password: req.Password})
	case "register":
		return h.register(c, registerRequest{
			Email:     req.Email,
			Password:  req.Password,
			FirstName: strings.TrimSpace(req.FirstName),
			LastName:  strings.TrimSpace(req.LastName),
			Role:      strings.ToLower(strings.TrimSpace(req.Role)),
		})
	default:
		return apperr.Field("action", "must be one of: login, register")
	}
}

func (h *AuthHandler) register(c *fiber.Ctx, req registerRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}

	var count int64
	if err := h.DB.WithContext(c.UserContext()).Model(&models.User{}).
		Where("email = ?", req.Email).Count(&count).Error; err != nil {
		return db.Wrap(err, "check email")
	}
	if count > 0 {
		return apperr.Conflict("email already registered")
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return apperr.Internal("hash password", err)
	}

	role, _ := models.ParseRole(req.Role)
	u := models.User{
		Email:     req.Email,
		Password:  hash,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      role,
		IsActive:  true,
	}
	if role == models.RoleFreelancer {
		u.Availability = models.AvailabilityAvailable
	}
	if err := h.DB.WithContext(c.UserContext()).Create(&u).Error; err != nil {
		return db.Write(err, "create user", "email already registered")
	}

	if err := h.startSession(c, &u); err != nil {
		return err
	}
	events.Emit(c.UserContext(), h.Events, h.Log, events.UserRegistered, fiber.Map{
		"user_id": u.ID,
		"email":   u.Email,
		"role":    u.Role,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Registration successful",
		"data":    fiber.Map{"user": u.Summary()},
	})
}

func (h *AuthHandler) login(c *fiber.Ctx, req loginRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}

	var u models.User
	err := h.DB.WithContext(c.UserContext()).Where("email = ?", req.Email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errBadCredentials
	}
	if err != nil {
		return db.Wrap(err, "load user")
	}
	if !utils.CheckPassword(u.Password, req.Password) {
		return errBadCredentials
	}
	if !u.IsActive {
		return apperr.Forbidden("account is deactivated")
	}

	if err := h.startSession(c, &u); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Login successful",
		"data":    fiber.Map{"user": u.Summary()},
	})
}

func (h *AuthHandler) startSession(c *fiber.Ctx, u *models.User) error {
	token, err := h.Tokens.Issue(utils.SessionPayload{UserID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return apperr.Internal("issue token", err)
	}
	c.Cookie(utils.SessionCookie(h.CookieName, token, h.Tokens.TTL(), h.Secure))
	return nil
}

// Logout serves DELETE /api/auth. It always succeeds.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(utils.ExpiredSessionCookie(h.CookieName, h.Secure))
	return c.JSON(fiber.Map{"success": true, "message": "Logged out"})
}

// Me returns the current user. A token whose user has since been removed or
// deactivated is treated as no session at all.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var u models.User
	err = h.DB.WithContext(c.UserContext()).First(&u, "id = ?", actor.ID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Wrap(err, "load user")
	}
	if err != nil || !u.IsActive {
		c.Cookie(utils.ExpiredSessionCookie(h.CookieName, h.Secure))
		return apperr.Unauthenticated("")
	}
	return ok(c, fiber.Map{"user": u.Summary()})
}
