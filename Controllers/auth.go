package Controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"Workforce/Lifecycle"
	"Workforce/Models"
	"Workforce/middleware"
)

// Accounts is the user persistence the auth and personnel handlers need.
type Accounts interface {
	FetchUser(ctx context.Context, id uint) (*Models.User, error)
	FetchUserByEmail(ctx context.Context, email string) (*Models.User, error)
	FetchUsers(ctx context.Context) ([]Models.User, error)
	CreateUser(ctx context.Context, user *Models.User) error
	UpdateUser(ctx context.Context, user *Models.User) error
}

type AuthController struct {
	Users Accounts
	Auth  *middleware.Authenticator
	Now   func() time.Time
}

func NewAuthController(users Accounts, auth *middleware.Authenticator) *AuthController {
	return &AuthController{Users: users, Auth: auth, Now: time.Now}
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login checks the credentials and sets the session cookie.
func (a *AuthController) Login(c *fiber.Ctx) error {
	var input loginInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := Lifecycle.Validate(input); err != nil {
		return respondError(c, err)
	}

	user, err := a.Users.FetchUserByEmail(c.UserContext(), input.Email)
	if errors.Is(err, Models.ErrRecordNotFound) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Incorrect email or password"})
	}
	if err != nil {
		return respondError(c, &Lifecycle.TransientIOError{Op: "load user", Err: err})
	}
	if err := bcrypt.CompareHashAndPassword(user.Password, []byte(input.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Incorrect email or password"})
	}

	now := a.Now()
	token, err := a.Auth.IssueToken(user.ID, now)
	if err != nil {
		lgr.Printf("[ERROR] could not sign token for user %d: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not log in"})
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Expires:  now.Add(middleware.TokenLifetime),
		HTTPOnly: true,
		SameSite: "Lax",
	})
	lgr.Printf("[INFO] user %d logged in", user.ID)
	return c.JSON(fiber.Map{"message": "success", "user": user})
}

// User returns the account behind the session cookie.
func (a *AuthController) User(c *fiber.Ctx) error {
	userID, err := a.Auth.ParseToken(c.Cookies(middleware.CookieName))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not Logged In."})
	}
	user, err := a.Users.FetchUser(c.UserContext(), userID)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}
	return c.JSON(fiber.Map{
		"user":                  user,
		"permission":            user.Role.Permission(),
		"can_manage_attendance": user.CanManageAttendance(),
	})
}

func (a *AuthController) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Expires:  a.Now().Add(-time.Hour),
		HTTPOnly: true,
	})
	return c.JSON(fiber.Map{"message": "success"})
}
