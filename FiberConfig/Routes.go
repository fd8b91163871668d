package FiberConfig

import (
	"errors"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"Workforce/Controllers"
	"Workforce/Lifecycle"
	"Workforce/Models"
	"Workforce/Store"
	"Workforce/middleware"
)

// Dependencies is everything the HTTP layer is built from.
type Dependencies struct {
	Service    *Lifecycle.Service
	Store      *Store.Store
	Auth       *middleware.Authenticator
	RequestLog middleware.LogConfig
	Location   *time.Location
}

// NewApp builds the fiber app with global middleware and all routes.
func NewApp(deps Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "workforce",
		ErrorHandler: errorHandler,
	})
	app.Use(middleware.RequestLogger(deps.RequestLog))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true,
		MaxAge:           300,
	}))

	SetupRoutes(app, deps)
	return app
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	authController := Controllers.NewAuthController(deps.Store, deps.Auth)
	userController := Controllers.NewUserController(deps.Store)
	taskController := Controllers.NewTaskController(deps.Service)
	rankingController := Controllers.NewRankingController(deps.Service)
	deviceController := Controllers.NewDeviceController(deps.Store)
	activityController := Controllers.NewActivityController(deps.RequestLog.LogFilePath, deps.Location)

	staff := deps.Auth.Verify(Models.PermissionStaff)
	leader := deps.Auth.Verify(Models.PermissionLeader)
	admin := deps.Auth.Verify(Models.PermissionAdmin)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Post("/api/Login", authController.Login)
	app.Get("/api/User", authController.User)
	app.Post("/api/Logout", authController.Logout)

	// Personnel
	users := app.Group("/api/users", admin)
	users.Get("/", userController.FetchUsers)
	users.Post("/", userController.RegisterUser)
	users.Patch("/:id", userController.UpdateUser)

	// Tasks. Static paths go before /:id.
	tasks := app.Group("/api/tasks", staff)
	tasks.Get("/", taskController.FetchTasks)
	tasks.Post("/", leader, taskController.CreateTask)
	tasks.Get("/groups", taskController.Groups)
	tasks.Post("/import", admin, taskController.Import)
	tasks.Get("/:id", taskController.FetchTask)
	tasks.Patch("/:id", leader, taskController.UpdateTask)
	tasks.Post("/:id/accept", taskController.Accept)
	tasks.Get("/:id/reports", taskController.TaskReports)
	tasks.Post("/:id/reports", taskController.SubmitReport)
	tasks.Post("/:id/complete", taskController.SubmitCompletion)
	tasks.Post("/:id/approve", leader, taskController.Approve)
	tasks.Post("/:id/reject", leader, taskController.Reject)

	app.Get("/api/reports", staff, taskController.UserReports)
	app.Get("/api/gate", staff, taskController.Gate)

	app.Get("/api/ranking", staff, rankingController.Ranking)
	app.Get("/api/ranking/export", leader, rankingController.Export)

	app.Post("/api/devices", staff, deviceController.RegisterDevice)
	app.Delete("/api/devices", staff, deviceController.UnregisterDevice)

	app.Get("/api/logs", admin, activityController.Activity)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		lgr.Printf("[ERROR] %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
