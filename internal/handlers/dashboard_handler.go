package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/services/dashboard"
)

type DashboardHandler struct {
	Svc *dashboard.Service
}

type dashboardResponse struct {
	Role models.Role `json:"role"`
	Data any         `json:"data"`
}

func wrapDashboard[T dashboard.Dashboard](d T) dashboardResponse {
	return dashboardResponse{Role: d.Role(), Data: d}
}

// Get builds the dashboard variant for the caller's role.
func (h *DashboardHandler) Get(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	d, err := h.Svc.Build(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return ok(c, dashboard.Match(d,
		wrapDashboard[*dashboard.ClientDashboard],
		wrapDashboard[*dashboard.FreelancerDashboard],
		wrapDashboard[*dashboard.StudentDashboard],
		wrapDashboard[*dashboard.AdminDashboard],
	))
}
