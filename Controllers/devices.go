package Controllers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"Workforce/Lifecycle"
	"Workforce/Models"
)

// DeviceTokens stores push registration tokens.
type DeviceTokens interface {
	SaveDeviceToken(ctx context.Context, userID uint, value string) error
	DeleteDeviceToken(ctx context.Context, value string) error
}

type DeviceController struct {
	Tokens DeviceTokens
}

func NewDeviceController(tokens DeviceTokens) *DeviceController {
	return &DeviceController{Tokens: tokens}
}

// RegisterDevice binds an FCM token to the caller so reminders reach their
// phone.
func (d *DeviceController) RegisterDevice(c *fiber.Ctx) error {
	var input Models.UpdateTokenRequest
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}
	input.Value = strings.TrimSpace(input.Value)
	if err := Lifecycle.Validate(input); err != nil {
		return respondError(c, err)
	}
	if err := d.Tokens.SaveDeviceToken(c.UserContext(), actor(c).ID, input.Value); err != nil {
		return respondError(c, &Lifecycle.TransientIOError{Op: "save device token", Err: err})
	}
	return c.JSON(fiber.Map{"message": "Token Updated Successfully"})
}

func (d *DeviceController) UnregisterDevice(c *fiber.Ctx) error {
	var input Models.UpdateTokenRequest
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}
	input.Value = strings.TrimSpace(input.Value)
	if err := Lifecycle.Validate(input); err != nil {
		return respondError(c, err)
	}
	if err := d.Tokens.DeleteDeviceToken(c.UserContext(), input.Value); err != nil {
		return respondError(c, &Lifecycle.TransientIOError{Op: "delete device token", Err: err})
	}
	return c.JSON(fiber.Map{"message": "Token Removed"})
}
