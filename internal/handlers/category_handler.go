package handlers

import (
	"sort"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/db"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/models"
)

type CategoryHandler struct {
	DB *gorm.DB
}

func NewCategoryHandler(db *gorm.DB) *CategoryHandler {
	return &CategoryHandler{DB: db}
}

// GetCategories lists the categories that currently have visible listings.
func (h *CategoryHandler) GetCategories(c *fiber.Ctx) error {
	var projects, courses []string

	err := h.DB.WithContext(c.UserContext()).
		Model(&models.Project{}).
		Where("status = ? AND category <> ''", models.ProjectOpen).
		Distinct("category").
		Pluck("category", &projects).
		Error
	if err != nil {
		return db.Wrap(err, "list project categories")
	}

	err = h.DB.WithContext(c.UserContext()).
		Model(&models.Course{}).
		Where("is_published = ? AND category <> ''", true).
		Distinct("category").
		Pluck("category", &courses).
		Error
	if err != nil {
		return db.Wrap(err, "list course categories")
	}

	sort.Strings(projects)
	sort.Strings(courses)
	if projects == nil {
		projects = []string{}
	}
	if courses == nil {
		courses = []string{}
	}
	return ok(c, fiber.Map{"projects": projects, "courses": courses})
}
