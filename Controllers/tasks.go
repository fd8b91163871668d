package Controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"Workforce/Lifecycle"
	"Workforce/Models"
	"Workforce/middleware"
)

// TaskController exposes the task lifecycle over HTTP. Every handler runs
// behind middleware.Verify, so the acting user is always in Locals.
type TaskController struct {
	Service *Lifecycle.Service
}

func NewTaskController(service *Lifecycle.Service) *TaskController {
	return &TaskController{Service: service}
}

// taskView is a task plus the actions the caller may take on it now.
type taskView struct {
	Models.Task
	Actions []Lifecycle.Event `json:"actions"`
}

func views(tasks []Models.Task, actor Models.User) []taskView {
	out := make([]taskView, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, taskView{Task: task, Actions: Lifecycle.Actions(task, actor)})
	}
	return out
}

func actor(c *fiber.Ctx) Models.User {
	user, _ := middleware.CurrentUser(c)
	return user
}

func (t *TaskController) FetchTasks(c *fiber.Ctx) error {
	user := actor(c)
	tasks, err := t.Service.FetchTasks(c.UserContext(), user.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(views(tasks, user))
}

func (t *TaskController) FetchTask(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	user := actor(c)
	task, err := t.Service.FetchTask(c.UserContext(), id, user.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(taskView{Task: *task, Actions: Lifecycle.Actions(*task, user)})
}

// Groups returns the dashboard buckets for the caller's visible tasks.
func (t *TaskController) Groups(c *fiber.Ctx) error {
	groups, err := t.Service.Groups(c.UserContext(), actor(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(groups)
}

func (t *TaskController) CreateTask(c *fiber.Ctx) error {
	var input Lifecycle.NewTask
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}
	task, err := t.Service.Create(c.UserContext(), actor(c).ID, input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

func (t *TaskController) Accept(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	task, err := t.Service.Accept(c.UserContext(), id, actor(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(task)
}

func (t *TaskController) SubmitReport(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var input Lifecycle.ReportInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}
	input.TaskID = id
	report, err := t.Service.SubmitReport(c.UserContext(), actor(c).ID, input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

func (t *TaskController) SubmitCompletion(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var input Lifecycle.CompletionInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}
	task, err := t.Service.SubmitCompletion(c.UserContext(), id, actor(c).ID, input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(task)
}

func (t *TaskController) Approve(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var input Lifecycle.ApproveInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}
	task, err := t.Service.Approve(c.UserContext(), id, actor(c).ID, input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(task)
}

func (t *TaskController) Reject(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var input Lifecycle.RejectInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}
	task, err := t.Service.Reject(c.UserContext(), id, actor(c).ID, input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(task)
}

// UpdateTask is the administrative edit; it may set any status.
func (t *TaskController) UpdateTask(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var patch Lifecycle.TaskPatch
	if err := c.BodyParser(&patch); err != nil {
		return badRequest(c, "Invalid request body")
	}
	task, err := t.Service.UpdateDetails(c.UserContext(), id, actor(c).ID, patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(task)
}

// TaskReports lists a task's reports, optionally for one author
// (?user_id=).
func (t *TaskController) TaskReports(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	author, err := queryUserID(c, 0)
	if err != nil {
		return badRequest(c, err.Error())
	}
	reports, err := t.Service.FetchReportsByTask(c.UserContext(), actor(c).ID, id, author)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reports)
}

// UserReports lists a user's report history, the caller's own by default.
func (t *TaskController) UserReports(c *fiber.Ctx) error {
	user := actor(c)
	target, err := queryUserID(c, user.ID)
	if err != nil {
		return badRequest(c, err.Error())
	}
	reports, err := t.Service.FetchReportsByUser(c.UserContext(), user.ID, target)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reports)
}

// Gate reports whether the caller (or, for leaders and admins, ?user_id=)
// is currently blocked from accepting tasks.
func (t *TaskController) Gate(c *fiber.Ctx) error {
	user := actor(c)
	target, err := queryUserID(c, user.ID)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if target != user.ID && user.Role == Models.RoleStaff {
		return respondError(c, &Lifecycle.AuthorizationError{ActorID: user.ID, Action: "read the gate of another user"})
	}
	result, err := t.Service.GateStatus(c.UserContext(), target)
	if err != nil {
		return respondError(c, err)
	}

	missing := make([]Lifecycle.MissingReport, 0, len(result.Missing))
	for _, task := range result.Missing {
		missing = append(missing, Lifecycle.MissingReport{TaskID: task.ID, Title: task.Title})
	}
	return c.JSON(fiber.Map{
		"locked":    result.Locked,
		"yesterday": result.Yesterday,
		"missing":   missing,
	})
}

type importInput struct {
	Tasks   []map[string]any `json:"tasks"`
	Reports []map[string]any `json:"reports"`
}

// Import loads tasks and reports exported by another system. Field names
// are normalized here, once, before anything reaches the lifecycle.
func (t *TaskController) Import(c *fiber.Ctx) error {
	var input importInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}

	tasks := make([]Models.Task, 0, len(input.Tasks))
	for i, raw := range input.Tasks {
		task, err := Models.NormalizeTask(raw)
		if err != nil {
			return badRequest(c, "task "+strconv.Itoa(i+1)+": "+err.Error())
		}
		tasks = append(tasks, task)
	}
	reports := make([]Models.Report, 0, len(input.Reports))
	for i, raw := range input.Reports {
		report, err := Models.NormalizeReport(raw)
		if err != nil {
			return badRequest(c, "report "+strconv.Itoa(i+1)+": "+err.Error())
		}
		reports = append(reports, report)
	}

	result, err := t.Service.Import(c.UserContext(), actor(c).ID, tasks, reports)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

func queryUserID(c *fiber.Ctx, fallback uint) (uint, error) {
	raw := c.Query("user_id")
	if raw == "" {
		return fallback, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidUserID
	}
	return uint(id), nil
}
