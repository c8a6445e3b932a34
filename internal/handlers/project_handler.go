package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/events"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/services/marketplace"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/validate"
)

type ProjectHandler struct {
	Svc    *marketplace.Service
	Events events.Publisher
	Notify *Notifications
	Log    zerolog.Logger
}

// ListPublic serves the marketplace listing. Query: q, category, min, max,
// sort (latest|budget_high|budget_low), page, limit.
func (h *ProjectHandler) ListPublic(c *fiber.Ctx) error {
	f := marketplace.ProjectFilter{
		Query:    c.Query("q"),
		Category: c.Query("category"),
		Min:      int64(c.QueryInt("min")),
		Max:      int64(c.QueryInt("max")),
		Sort:     c.Query("sort"),
		Paging:   pagingFrom(c),
	}
	items, total, err := h.Svc.ListOpenProjects(c.UserContext(), f)
	if err != nil {
		return err
	}
	return ok(c, paged(viewProjects(items), total, f.Paging))
}

func (h *ProjectHandler) GetPublic(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.Svc.GetPublicProject(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, viewProject(p))
}

func (h *ProjectHandler) ListMine(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	items, err := h.Svc.ListMyProjects(c.UserContext(), actor, c.Query("status"))
	if err != nil {
		return err
	}
	return ok(c, viewProjects(items))
}

func (h *ProjectHandler) Create(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var in marketplace.ProjectInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	in.BudgetType = strings.ToUpper(strings.TrimSpace(in.BudgetType))
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	in.Status = strings.ToUpper(strings.TrimSpace(in.Status))
	if in.BudgetType == "" {
		in.BudgetType = string(models.BudgetFixed)
	}
	if in.Currency == "" {
		in.Currency = "IDR"
	}
	if err := validate.Struct(in); err != nil {
		return err
	}

	p, err := h.Svc.CreateProject(c.UserContext(), actor, in)
	if err != nil {
		return err
	}
	return created(c, viewProject(p))
}

func (h *ProjectHandler) Update(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var in marketplace.ProjectPatch
	if err := bind(c, &in); err != nil {
		return err
	}
	p, err := h.Svc.UpdateProject(c.UserContext(), actor, id, in)
	if err != nil {
		return err
	}
	return ok(c, viewProject(p))
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=DRAFT OPEN IN_PROGRESS IN_REVIEW COMPLETED CANCELLED PAUSED"`
}

// UpdateStatus moves a project through its lifecycle.
func (h *ProjectHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req statusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
	if err := validate.Struct(req); err != nil {
		return err
	}

	res, err := h.Svc.TransitionProject(c.UserContext(), actor, id, models.ProjectStatus(req.Status))
	if err != nil {
		return err
	}

	p := res.Project
	if res.Completed {
		events.Emit(c.UserContext(), h.Events, h.Log, events.ProjectCompleted, fiber.Map{
			"project_id":    p.ID,
			"client_id":     p.ClientID,
			"freelancer_id": p.FreelancerID,
			"amount":        res.Paid,
			"currency":      p.Currency,
		})
	}
	// tell the other side of the contract
	if p.FreelancerID != nil {
		other := *p.FreelancerID
		if actor.ID == other {
			other = p.ClientID
		}
		h.Notify.Send(c.UserContext(), other, "project.status", fiber.Map{
			"project_id": p.ID,
			"title":      p.Title,
			"status":     p.Status,
		})
	}
	return ok(c, viewProject(p))
}

func (h *ProjectHandler) Delete(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Svc.DeleteProject(c.UserContext(), actor, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Project deleted"})
}
