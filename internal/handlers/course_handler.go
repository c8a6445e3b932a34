package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/services/learning"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/validate"
)

type CourseHandler struct {
	Svc *learning.Service
}

// ListPublic lists published courses. Query: q, category, level,
// sort (rating|latest|price), page, limit.
func (h *CourseHandler) ListPublic(c *fiber.Ctx) error {
	f := learning.CourseFilter{
		Query:    c.Query("q"),
		Category: c.Query("category"),
		Level:    c.Query("level"),
		Sort:     c.Query("sort"),
		Paging:   pagingFrom(c),
	}
	items, total, err := h.Svc.ListPublishedCourses(c.UserContext(), f)
	if err != nil {
		return err
	}
	return ok(c, paged(viewCourses(items), total, f.Paging))
}

func (h *CourseHandler) GetPublic(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	course, err := h.Svc.GetPublishedCourse(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, viewCourse(course))
}

func (h *CourseHandler) ListTeaching(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	items, err := h.Svc.ListTeaching(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return ok(c, viewCourses(items))
}

func (h *CourseHandler) Create(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var in learning.CourseInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	in.Level = strings.ToUpper(strings.TrimSpace(in.Level))
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = "IDR"
	}
	if err := validate.Struct(in); err != nil {
		return err
	}
	course, err := h.Svc.CreateCourse(c.UserContext(), actor, in)
	if err != nil {
		return err
	}
	return created(c, viewCourse(course))
}

func (h *CourseHandler) Update(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var in learning.CoursePatch
	if err := parseBody(c, &in); err != nil {
		return err
	}
	if in.Level != nil {
		lvl := strings.ToUpper(strings.TrimSpace(*in.Level))
		in.Level = &lvl
	}
	if err := validate.Struct(in); err != nil {
		return err
	}
	course, err := h.Svc.UpdateCourse(c.UserContext(), actor, id, in)
	if err != nil {
		return err
	}
	return ok(c, viewCourse(course))
}

func (h *CourseHandler) Delete(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Svc.DeleteCourse(c.UserContext(), actor, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Course deleted"})
}
