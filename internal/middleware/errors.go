package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/apperr"
)

// StatusOf maps a handler error onto the HTTP status it will be sent with.
func StatusOf(err error) int {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Status()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders every error returned by a handler as
// {"success": false, "error": ..., "details": [...]}. Internal errors are
// logged and replaced by a generic message.
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		body := fiber.Map{"success": false}
		status := StatusOf(err)

		var ae *apperr.Error
		var fe *fiber.Error
		switch {
		case errors.As(err, &ae):
			body["error"] = ae.PublicMessage()
			if len(ae.Details) > 0 {
				body["details"] = ae.Details
			}
		case errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError:
			body["error"] = fe.Message
		default:
			body["error"] = "internal server error"
		}

		if status >= fiber.StatusInternalServerError {
			log.Error().Err(err).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
				Msg("request failed")
		}
		return c.Status(status).JSON(body)
	}
}
