package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/utils"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/validate"
)

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{"success": true, "data": data})
}

func created(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": data})
}

type page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

func paged[T any](items []T, total int64, p utils.Paging) page[T] {
	if items == nil {
		items = []T{}
	}
	return page[T]{Items: items, Total: total, Page: p.Page, Limit: p.Limit}
}

func pagingFrom(c *fiber.Ctx) utils.Paging {
	return utils.NewPaging(c.QueryInt("page", 1), c.QueryInt("limit", 20))
}

func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.Field("body", "must be a valid JSON object")
	}
	return nil
}

// bind parses the JSON body into dst and validates its struct tags.
func bind(c *fiber.Ctx, dst any) error {
	if err := parseBody(c, dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}
