package utils

import "github.com/gofiber/fiber/v2"

// JSONSuccess wraps a payload in the envelope every route returns:
// {"success": true, "data": ...}.
func JSONSuccess(c *fiber.Ctx, status int, payload interface{}) error {
	return c.Status(status).JSON(fiber.Map{"success": true, "data": payload})
}

func JSONError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "error": msg})
}
