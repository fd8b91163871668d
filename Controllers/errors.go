package Controllers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-pkgz/lgr"
	"github.com/gofiber/fiber/v2"

	"Workforce/Lifecycle"
)

// respondError maps lifecycle errors onto HTTP statuses. Every body carries
// an "error" message; policy and validation failures add detail fields.
func respondError(c *fiber.Ctx, err error) error {
	var (
		authErr    *Lifecycle.AuthorizationError
		stateErr   *Lifecycle.InvalidStateError
		violation  *Lifecycle.PolicyViolation
		validation *Lifecycle.ValidationError
		transient  *Lifecycle.TransientIOError
	)

	switch {
	case errors.As(err, &validation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  validation.Error(),
			"fields": validation.Fields,
		})
	case errors.As(err, &authErr):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": authErr.Error()})
	case errors.As(err, &violation):
		return c.Status(fiber.StatusLocked).JSON(fiber.Map{
			"error":   violation.Error(),
			"day":     violation.Day,
			"missing": violation.Missing,
		})
	case errors.As(err, &stateErr):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":  stateErr.Error(),
			"status": stateErr.Status,
		})
	case errors.Is(err, Lifecycle.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	case errors.As(err, &transient):
		lgr.Printf("[WARN] %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Storage is temporarily unavailable, try again"})
	}

	lgr.Printf("[ERROR] %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}

var errInvalidUserID = errors.New("Invalid user_id")

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}

// paramID parses a positive numeric route parameter.
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("Invalid %s", name)
	}
	return uint(id), nil
}
