package Controllers

import (
	"context"
	"errors"
	"strings"

	"github.com/go-pkgz/lgr"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"Workforce/Lifecycle"
	"Workforce/Models"
	"Workforce/Store"
)

// UserController is the admin-only personnel management.
type UserController struct {
	Users Accounts
}

func NewUserController(users Accounts) *UserController {
	return &UserController{Users: users}
}

type registerInput struct {
	Name                string      `json:"name" validate:"required,max=255"`
	Email               string      `json:"email" validate:"required,email,max=255"`
	Password            string      `json:"password" validate:"required,min=6,max=72"`
	Role                Models.Role `json:"role" validate:"required,oneof=admin leader staff"`
	Team                *string     `json:"team" validate:"omitempty,max=255"`
	CanManageAttendance bool        `json:"can_manage_attendance"`
}

type updateUserInput struct {
	Name                *string      `json:"name" validate:"omitempty,min=1,max=255"`
	Role                *Models.Role `json:"role" validate:"omitempty,oneof=admin leader staff"`
	Team                *string      `json:"team" validate:"omitempty,max=255"`
	CanManageAttendance *bool        `json:"can_manage_attendance"`
}

func (u *UserController) RegisterUser(c *fiber.Ctx) error {
	var input registerInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}
	input.Name = strings.TrimSpace(input.Name)
	if err := Lifecycle.Validate(input); err != nil {
		return respondError(c, err)
	}

	user, err := NewAccount(input.Name, input.Email, input.Password, input.Role)
	if err != nil {
		lgr.Printf("[ERROR] could not hash password: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not register user"})
	}
	user.Team = input.Team
	user.ManageAttendance = input.CanManageAttendance

	if err := u.Users.CreateUser(c.UserContext(), user); err != nil {
		if errors.Is(err, Store.ErrDuplicateEmail) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "A user with this email already exists"})
		}
		return respondError(c, &Lifecycle.TransientIOError{Op: "create user", Err: err})
	}
	lgr.Printf("[INFO] user %d (%s) registered as %s", user.ID, user.Email, user.Role)
	return c.Status(fiber.StatusCreated).JSON(user)
}

func (u *UserController) FetchUsers(c *fiber.Ctx) error {
	users, err := u.Users.FetchUsers(c.UserContext())
	if err != nil {
		return respondError(c, &Lifecycle.TransientIOError{Op: "load users", Err: err})
	}
	return c.JSON(users)
}

func (u *UserController) UpdateUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var input updateUserInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := Lifecycle.Validate(input); err != nil {
		return respondError(c, err)
	}

	user, err := u.Users.FetchUser(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, Models.ErrRecordNotFound) {
			return respondError(c, Lifecycle.ErrNotFound)
		}
		return respondError(c, &Lifecycle.TransientIOError{Op: "load user", Err: err})
	}

	if input.Name != nil {
		user.Name = strings.TrimSpace(*input.Name)
	}
	if input.Role != nil {
		user.Role = *input.Role
	}
	if input.Team != nil {
		user.Team = input.Team
		if strings.TrimSpace(*input.Team) == "" {
			user.Team = nil
		}
	}
	if input.CanManageAttendance != nil {
		user.ManageAttendance = *input.CanManageAttendance
	}

	if err := u.Users.UpdateUser(c.UserContext(), user); err != nil {
		return respondError(c, &Lifecycle.TransientIOError{Op: "update user", Err: err})
	}
	lgr.Printf("[INFO] user %d updated, role=%s", user.ID, user.Role)
	return c.JSON(user)
}

// NewAccount builds a user with a bcrypt-hashed password.
func NewAccount(name, email, password string, role Models.Role) (*Models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &Models.User{
		Name:     strings.TrimSpace(name),
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: hash,
		Role:     role,
	}, nil
}

// SeedAccounts creates the given accounts unless their email is already
// registered. It is used to bootstrap the first admin.
func SeedAccounts(ctx context.Context, users Accounts, accounts []*Models.User) error {
	for _, account := range accounts {
		if _, err := users.FetchUserByEmail(ctx, account.Email); err == nil {
			continue
		} else if !errors.Is(err, Models.ErrRecordNotFound) {
			return err
		}
		if err := users.CreateUser(ctx, account); err != nil && !errors.Is(err, Store.ErrDuplicateEmail) {
			return err
		}
		lgr.Printf("[INFO] seeded %s account %s", account.Role, account.Email)
	}
	return nil
}
