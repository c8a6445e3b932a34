package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/middleware"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/models"
)

// currentActor re-checks what the session middleware established; a route
// wired without it fails closed.
func currentActor(c *fiber.Ctx) (models.Actor, error) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return models.Actor{}, apperr.Unauthenticated("")
	}
	return models.Actor{ID: id.UserID, Role: id.Role}, nil
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.Field(name, "must be a valid UUID")
	}
	return id, nil
}
