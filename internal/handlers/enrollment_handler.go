package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/events"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/services/learning"
)

type EnrollmentHandler struct {
	Svc    *learning.Service
	Events events.Publisher
	Notify *Notifications
	Log    zerolog.Logger
}

func (h *EnrollmentHandler) Enroll(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	courseID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	e, err := h.Svc.Enroll(c.UserContext(), actor, courseID)
	if err != nil {
		return err
	}

	events.Emit(c.UserContext(), h.Events, h.Log, events.EnrollmentCreated, fiber.Map{
		"enrollment_id": e.ID,
		"course_id":     e.CourseID,
		"user_id":       e.UserID,
	})
	if e.Course != nil {
		h.Notify.Send(c.UserContext(), e.Course.InstructorID, "enrollment.created", fiber.Map{
			"course_id": e.CourseID,
			"title":     e.Course.Title,
		})
	}
	return created(c, viewEnrollment(e))
}

func (h *EnrollmentHandler) Unenroll(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	courseID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Svc.Unenroll(c.UserContext(), actor, courseID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Unenrolled"})
}

type progressRequest struct {
	Progress *int `json:"progress" validate:"required,gte=0,lte=100"`
}

func (h *EnrollmentHandler) UpdateProgress(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	courseID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req progressRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	e, err := h.Svc.UpdateProgress(c.UserContext(), actor, courseID, *req.Progress)
	if err != nil {
		return err
	}
	return ok(c, viewEnrollment(e))
}

func (h *EnrollmentHandler) ListMine(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	items, err := h.Svc.ListMyEnrollments(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return ok(c, viewEnrollments(items))
}
