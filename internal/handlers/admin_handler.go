package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/db"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/models"
)

type AdminHandler struct {
	DB  *gorm.DB
	Log zerolog.Logger
}

type adminUserView struct {
	*models.User
	Name string `json:"name"`
}

// ListUsers query: q, role, page, limit.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	paging := pagingFrom(c)
	q := h.DB.WithContext(c.UserContext()).Model(&models.User{})
	if term := strings.ToLower(strings.TrimSpace(c.Query("q"))); term != "" {
		like := "%" + term + "%"
		q = q.Where("LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", like, like, like)
	}
	if r := c.Query("role"); r != "" {
		role, ok := models.ParseRole(r)
		if !ok {
			return apperr.Field("role", "must be one of: client, freelancer, student, admin")
		}
		q = q.Where("role = ?", role)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return db.Wrap(err, "count users")
	}
	var users []models.User
	if err := q.Order("created_at DESC").Offset(paging.Offset()).Limit(paging.Limit).Find(&users).Error; err != nil {
		return db.Wrap(err, "list users")
	}

	out := make([]adminUserView, 0, len(users))
	for i := range users {
		out = append(out, adminUserView{User: &users[i], Name: users[i].FullName()})
	}
	return ok(c, paged(out, total, paging))
}

type userStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// SetUserStatus activates or deactivates an account. Deactivated users keep
// their data but can no longer sign in.
func (h *AdminHandler) SetUserStatus(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req userStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if id == actor.ID && !*req.IsActive {
		return apperr.Conflict("cannot deactivate your own account")
	}

	tx := h.DB.WithContext(c.UserContext())
	res := tx.Model(&models.User{}).Where("id = ?", id).Update("is_active", *req.IsActive)
	if res.Error != nil {
		return db.Wrap(res.Error, "update user status")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user not found")
	}

	var u models.User
	if err := tx.First(&u, "id = ?", id).Error; err != nil {
		return db.Lookup(err, "load user", "user not found")
	}
	h.Log.Info().
		Str("admin_id", actor.ID.String()).
		Str("user_id", u.ID.String()).
		Bool("is_active", u.IsActive).
		Msg("user status changed")
	return ok(c, adminUserView{User: &u, Name: u.FullName()})
}
