// Package Lifecycle enforces who may move a task between statuses and when.
//
// Each operation validates its input, loads the task and actor, checks the
// transition table and the actor's relationship to the task, and then asks
// the repository for a single conditional write. Nothing is retried here: a
// store failure comes back as a TransientIOError and retrying is the caller's
// decision.
package Lifecycle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"

	"Workforce/Models"
	"Workforce/ReportingGate"
	"Workforce/Scoring"
)

// Repository is the persistence the lifecycle needs.
type Repository interface {
	FetchUser(ctx context.Context, id uint) (*Models.User, error)
	FetchTask(ctx context.Context, id uint) (*Models.Task, error)
	FetchTasks(ctx context.Context, scope Models.Scope) ([]Models.Task, error)
	FetchAcceptedTasks(ctx context.Context, userID uint) ([]Models.Task, error)
	FetchReportsByUser(ctx context.Context, userID uint) ([]Models.Report, error)
	FetchReportsByTask(ctx context.Context, taskID, userID uint) ([]Models.Report, error)
	CreateTask(ctx context.Context, task *Models.Task) error
	CreateReport(ctx context.Context, report *Models.Report) error
	TransitionTask(ctx context.Context, task *Models.Task, from Models.TaskStatus) error
	SaveTaskDetails(ctx context.Context, task *Models.Task) error
	Directory(ctx context.Context) (Models.NameDirectory, error)
	WithinTransaction(ctx context.Context, fn func(Models.RecordWriter) error) error
}

type Service struct {
	repo Repository
	now  func() time.Time
	loc  *time.Location
}

type Option func(*Service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the timezone that defines calendar days for the
// reporting gate.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now, loc: time.Local}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) actor(ctx context.Context, actorID uint, action string) (*Models.User, error) {
	actor, err := s.repo.FetchUser(ctx, actorID)
	if errors.Is(err, Models.ErrRecordNotFound) {
		return nil, &AuthorizationError{ActorID: actorID, Action: action}
	}
	if err != nil {
		return nil, storeError("load actor", err)
	}
	return actor, nil
}

func (s *Service) task(ctx context.Context, taskID uint) (*Models.Task, error) {
	task, err := s.repo.FetchTask(ctx, taskID)
	if err != nil {
		return nil, storeError("load task", err)
	}
	return task, nil
}

// guard loads task and actor and checks that actor may apply event to the
// task in its current status.
func (s *Service) guard(ctx context.Context, taskID, actorID uint, event Event) (*Models.Task, *Models.User, Models.TaskStatus, error) {
	task, err := s.task(ctx, taskID)
	if err != nil {
		return nil, nil, "", err
	}
	actor, err := s.actor(ctx, actorID, string(event))
	if err != nil {
		return nil, nil, "", err
	}
	if !Permitted(*task, *actor, event) {
		return nil, nil, "", &AuthorizationError{ActorID: actorID, TaskID: taskID, Action: string(event)}
	}
	next, ok := Next(task.Status, event)
	if !ok {
		return nil, nil, "", &InvalidStateError{TaskID: taskID, Status: task.Status, Event: event}
	}
	return task, actor, next, nil
}

// commit writes a transition. A concurrent change of status between load and
// write is reported as an InvalidStateError.
func (s *Service) commit(ctx context.Context, task *Models.Task, from Models.TaskStatus, event Event) error {
	err := s.repo.TransitionTask(ctx, task, from)
	if errors.Is(err, Models.ErrStatusChanged) {
		current := from
		if fresh, ferr := s.repo.FetchTask(ctx, task.ID); ferr == nil {
			current = fresh.Status
		}
		return &InvalidStateError{TaskID: task.ID, Status: current, Event: event}
	}
	if err != nil {
		return storeError("save task", err)
	}
	return nil
}

// Create adds a task in status new. Only admins and leaders assign work; the
// leader defaults to the creator.
func (s *Service) Create(ctx context.Context, actorID uint, input NewTask) (*Models.Task, error) {
	input.Title = strings.TrimSpace(input.Title)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	actor, err := s.actor(ctx, actorID, "create tasks")
	if err != nil {
		return nil, err
	}
	if actor.Role != Models.RoleAdmin && actor.Role != Models.RoleLeader {
		return nil, &AuthorizationError{ActorID: actorID, Action: "create tasks"}
	}

	leaderID := input.LeaderID
	if leaderID == 0 {
		leaderID = actor.ID
	}
	if input.AssigneeID == leaderID {
		return nil, newValidationError("assignee_id", "assignee_id must differ from the approving leader")
	}
	if _, err := s.existingUser(ctx, "assignee_id", input.AssigneeID); err != nil {
		return nil, err
	}
	leader, err := s.existingUser(ctx, "leader_id", leaderID)
	if err != nil {
		return nil, err
	}
	if leader.Role != Models.RoleAdmin && leader.Role != Models.RoleLeader {
		return nil, newValidationError("leader_id", "leader_id must name a leader or an admin")
	}

	task := &Models.Task{
		Title:      input.Title,
		Objective:  input.Objective,
		Content:    input.Content,
		AssignerID: actor.ID,
		LeaderID:   leaderID,
		AssigneeID: input.AssigneeID,
		Deadline:   input.Deadline,
		Weight:     input.Weight,
		Status:     Models.StatusNew,
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return nil, storeError("create task", err)
	}
	lgr.Printf("[INFO] task %d created by user %d for user %d", task.ID, actor.ID, task.AssigneeID)
	return task, nil
}

func (s *Service) existingUser(ctx context.Context, field string, id uint) (*Models.User, error) {
	user, err := s.repo.FetchUser(ctx, id)
	if errors.Is(err, Models.ErrRecordNotFound) {
		return nil, newValidationError(field, field+" does not name an existing user")
	}
	if err != nil {
		return nil, storeError("load user", err)
	}
	return user, nil
}

// Accept moves a new task to accepted. The assignee must not be locked by
// the reporting gate for any other task they already hold.
func (s *Service) Accept(ctx context.Context, taskID, actorID uint) (*Models.Task, error) {
	task, actor, next, err := s.guard(ctx, taskID, actorID, EventAccept)
	if err != nil {
		return nil, err
	}

	gate, err := s.gate(ctx, actor.ID, task.ID)
	if err != nil {
		return nil, err
	}
	if gate.Locked {
		violation := &PolicyViolation{Day: gate.Yesterday}
		for _, missing := range gate.Missing {
			violation.Missing = append(violation.Missing, MissingReport{TaskID: missing.ID, Title: missing.Title})
		}
		lgr.Printf("[INFO] user %d blocked from accepting task %d, missing reports on %v", actor.ID, task.ID, violation.TaskIDs())
		return nil, violation
	}

	from := task.Status
	now := s.now()
	task.Status = next
	task.AcceptedAt = &now
	if err := s.commit(ctx, task, from, EventAccept); err != nil {
		return nil, err
	}
	lgr.Printf("[INFO] task %d accepted by user %d", task.ID, actor.ID)
	return task, nil
}

// SubmitReport appends a progress report to an accepted task.
func (s *Service) SubmitReport(ctx context.Context, actorID uint, input ReportInput) (*Models.Report, error) {
	input.Result = strings.TrimSpace(input.Result)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	date, err := Models.ParseCalendarDate(input.Date)
	if err != nil {
		return nil, newValidationError("date", "date must be a calendar date in YYYY-MM-DD form")
	}

	task, actor, _, err := s.guard(ctx, input.TaskID, actorID, EventReport)
	if err != nil {
		return nil, err
	}

	report := &Models.Report{
		UserID:         actor.ID,
		TaskID:         task.ID,
		Date:           date,
		Result:         input.Result,
		AttachmentPath: Models.JoinAttachments(Models.SplitAttachments(input.AttachmentPath)),
	}
	if err := s.repo.CreateReport(ctx, report); err != nil {
		return nil, storeError("create report", err)
	}
	lgr.Printf("[INFO] report %d for %s filed on task %d by user %d", report.ID, report.Day(), task.ID, actor.ID)
	return report, nil
}

// SubmitCompletion hands an accepted task over for approval. Content is not
// checked; judging completeness is the approving leader's job.
func (s *Service) SubmitCompletion(ctx context.Context, taskID, actorID uint, input CompletionInput) (*Models.Task, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	task, actor, next, err := s.guard(ctx, taskID, actorID, EventComplete)
	if err != nil {
		return nil, err
	}

	from := task.Status
	task.Status = next
	task.CompletionNote = strings.TrimSpace(input.Note)
	task.CompletionLink = strings.TrimSpace(input.Link)
	task.CompletionFilePath = strings.TrimSpace(input.FilePath)
	task.RejectReason = ""
	if err := s.commit(ctx, task, from, EventComplete); err != nil {
		return nil, err
	}
	lgr.Printf("[INFO] task %d submitted for approval by user %d", task.ID, actor.ID)
	return task, nil
}

// Approve completes a task awaiting approval and records its quality.
func (s *Service) Approve(ctx context.Context, taskID, actorID uint, input ApproveInput) (*Models.Task, error) {
	if input.Quality != nil && math.IsNaN(*input.Quality) {
		return nil, newValidationError("quality", "quality must be a number between 0 and 1")
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	task, actor, next, err := s.guard(ctx, taskID, actorID, EventApprove)
	if err != nil {
		return nil, err
	}

	from := task.Status
	now := s.now()
	task.Status = next
	task.CompletedAt = &now
	task.Quality = input.Quality
	if err := s.commit(ctx, task, from, EventApprove); err != nil {
		return nil, err
	}
	lgr.Printf("[INFO] task %d approved by user %d", task.ID, actor.ID)
	return task, nil
}

// Reject sends a task awaiting approval back to the assignee.
func (s *Service) Reject(ctx context.Context, taskID, actorID uint, input RejectInput) (*Models.Task, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	task, actor, next, err := s.guard(ctx, taskID, actorID, EventReject)
	if err != nil {
		return nil, err
	}

	from := task.Status
	task.Status = next
	task.RejectReason = strings.TrimSpace(input.Reason)
	if err := s.commit(ctx, task, from, EventReject); err != nil {
		return nil, err
	}
	lgr.Printf("[INFO] task %d rejected by user %d", task.ID, actor.ID)
	return task, nil
}

// UpdateDetails is the administrative override: it writes the given fields,
// status included, without consulting the transition table.
func (s *Service) UpdateDetails(ctx context.Context, taskID, actorID uint, patch TaskPatch) (*Models.Task, error) {
	for field, v := range map[string]*float64{"weight": patch.Weight, "quality": patch.Quality} {
		if v != nil && math.IsNaN(*v) {
			return nil, newValidationError(field, field+" must be a number between 0 and 1")
		}
	}
	if err := validateInput(patch); err != nil {
		return nil, err
	}

	task, err := s.task(ctx, taskID)
	if err != nil {
		return nil, err
	}
	actor, err := s.actor(ctx, actorID, "edit")
	if err != nil {
		return nil, err
	}
	if actor.Role != Models.RoleAdmin && actor.Role != Models.RoleLeader {
		return nil, &AuthorizationError{ActorID: actorID, TaskID: taskID, Action: "edit"}
	}

	if patch.Title != nil {
		task.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Objective != nil {
		task.Objective = *patch.Objective
	}
	if patch.Content != nil {
		task.Content = *patch.Content
	}
	if patch.ClearDeadline {
		task.Deadline = nil
	} else if patch.Deadline != nil {
		task.Deadline = patch.Deadline
	}
	if patch.Weight != nil {
		task.Weight = patch.Weight
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.ClearQuality {
		task.Quality = nil
	} else if patch.Quality != nil {
		task.Quality = patch.Quality
	}

	if err := s.repo.SaveTaskDetails(ctx, task); err != nil {
		return nil, storeError("save task", err)
	}
	lgr.Printf("[INFO] task %d edited by user %d, status=%s", task.ID, actor.ID, task.Status)
	return task, nil
}

// FetchTasks returns the tasks visible to the actor's role.
func (s *Service) FetchTasks(ctx context.Context, actorID uint) ([]Models.Task, error) {
	actor, err := s.actor(ctx, actorID, "list tasks")
	if err != nil {
		return nil, err
	}
	tasks, err := s.repo.FetchTasks(ctx, Models.Scope{ActorID: actor.ID, Role: actor.Role})
	if err != nil {
		return nil, storeError("load tasks", err)
	}
	return tasks, nil
}

// FetchTask returns one task if the actor is allowed to see it.
func (s *Service) FetchTask(ctx context.Context, taskID, actorID uint) (*Models.Task, error) {
	task, err := s.task(ctx, taskID)
	if err != nil {
		return nil, err
	}
	actor, err := s.actor(ctx, actorID, "view")
	if err != nil {
		return nil, err
	}
	if !canView(*task, *actor) {
		return nil, &AuthorizationError{ActorID: actorID, TaskID: taskID, Action: "view"}
	}
	return task, nil
}

func canView(task Models.Task, actor Models.User) bool {
	return actor.IsAdmin() || actor.ID == task.AssigneeID || actor.ID == task.LeaderID || actor.ID == task.AssignerID
}

// Groups buckets the actor's visible tasks for the dashboard.
func (s *Service) Groups(ctx context.Context, actorID uint) (Groups, error) {
	tasks, err := s.FetchTasks(ctx, actorID)
	if err != nil {
		return Groups{}, err
	}
	return Group(tasks, s.now()), nil
}

// FetchReportsByUser returns a user's report history. Staff may only read
// their own.
func (s *Service) FetchReportsByUser(ctx context.Context, actorID, userID uint) ([]Models.Report, error) {
	actor, err := s.actor(ctx, actorID, "read reports")
	if err != nil {
		return nil, err
	}
	if actor.ID != userID && actor.Role == Models.RoleStaff {
		return nil, &AuthorizationError{ActorID: actorID, Action: "read reports of another user"}
	}
	reports, err := s.repo.FetchReportsByUser(ctx, userID)
	if err != nil {
		return nil, storeError("load reports", err)
	}
	return reports, nil
}

// FetchReportsByTask returns the task's reports, optionally for one author.
func (s *Service) FetchReportsByTask(ctx context.Context, actorID, taskID, userID uint) ([]Models.Report, error) {
	if _, err := s.FetchTask(ctx, taskID, actorID); err != nil {
		return nil, err
	}
	reports, err := s.repo.FetchReportsByTask(ctx, taskID, userID)
	if err != nil {
		return nil, storeError("load reports", err)
	}
	return reports, nil
}

// GateStatus evaluates the reporting gate for a user at the current time.
func (s *Service) GateStatus(ctx context.Context, userID uint) (ReportingGate.Result, error) {
	return s.gate(ctx, userID, 0)
}

// gate evaluates the reporting gate, leaving out the task being accepted.
func (s *Service) gate(ctx context.Context, userID, excludeTaskID uint) (ReportingGate.Result, error) {
	accepted, err := s.repo.FetchAcceptedTasks(ctx, userID)
	if err != nil {
		return ReportingGate.Result{}, storeError("load accepted tasks", err)
	}
	reports, err := s.repo.FetchReportsByUser(ctx, userID)
	if err != nil {
		return ReportingGate.Result{}, storeError("load reports", err)
	}

	held := accepted[:0:0]
	for _, t := range accepted {
		if t.ID != excludeTaskID {
			held = append(held, t)
		}
	}
	return ReportingGate.Evaluate(ReportingGate.Snapshot{Reports: reports, Accepted: held}, s.now(), s.loc), nil
}

// Ranking scores the actor's visible tasks and ranks their assignees.
func (s *Service) Ranking(ctx context.Context, actorID uint) ([]Scoring.Row, error) {
	tasks, err := s.FetchTasks(ctx, actorID)
	if err != nil {
		return nil, err
	}
	directory, err := s.repo.Directory(ctx)
	if err != nil {
		return nil, storeError("load users", err)
	}
	return Scoring.ComputeRanking(tasks, directory), nil
}

// ImportResult reports what an import created. TaskIDs maps source task ids
// to the ids assigned here.
type ImportResult struct {
	Tasks   int           `json:"tasks"`
	Reports int           `json:"reports"`
	TaskIDs map[uint]uint `json:"task_ids"`
}

// importedTask and importedReport hold the same rules NewTask and ReportInput
// apply, for rows that arrive already normalized.
type importedTask struct {
	Title      string            `json:"title" validate:"required,max=255"`
	AssigneeID uint              `json:"assignee_id" validate:"required"`
	Weight     *float64          `json:"weight" validate:"omitempty,gte=0,lte=1"`
	Quality    *float64          `json:"quality" validate:"omitempty,gte=0,lte=1"`
	Status     Models.TaskStatus `json:"status" validate:"omitempty,oneof=new accepted pending_approval completed paused"`
}

type importedReport struct {
	UserID         uint   `json:"user_id" validate:"required"`
	TaskID         uint   `json:"task_id" validate:"required"`
	Result         string `json:"result" validate:"min=10,max=20000"`
	AttachmentPath string `json:"attachment_path" validate:"max=2048"`
}

// validateRow checks one imported row and keys failures as kind[i].field.
func validateRow(kind string, i int, row any) error {
	err := validateInput(row)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	keyed := &ValidationError{Fields: make(map[string]string, len(verr.Fields))}
	for field, message := range verr.Fields {
		keyed.Fields[fmt.Sprintf("%s[%d].%s", kind, i, field)] = fmt.Sprintf("%s row %d: %s", kind, i+1, message)
	}
	return keyed
}

func validateImport(tasks []Models.Task, reports []Models.Report) error {
	for i := range tasks {
		task := &tasks[i]
		task.Title = strings.TrimSpace(task.Title)
		for field, v := range map[string]*float64{"weight": task.Weight, "quality": task.Quality} {
			if v != nil && math.IsNaN(*v) {
				return newValidationError(fmt.Sprintf("tasks[%d].%s", i, field),
					fmt.Sprintf("tasks row %d: %s must be a number between 0 and 1", i+1, field))
			}
		}
		row := importedTask{Title: task.Title, AssigneeID: task.AssigneeID, Weight: task.Weight, Quality: task.Quality, Status: task.Status}
		if err := validateRow("tasks", i, row); err != nil {
			return err
		}
	}
	for i := range reports {
		report := &reports[i]
		report.Result = strings.TrimSpace(report.Result)
		if time.Time(report.Date).IsZero() {
			return newValidationError(fmt.Sprintf("reports[%d].date", i), fmt.Sprintf("reports row %d: date is required", i+1))
		}
		row := importedReport{UserID: report.UserID, TaskID: report.TaskID, Result: report.Result, AttachmentPath: report.AttachmentPath}
		if err := validateRow("reports", i, row); err != nil {
			return err
		}
	}
	return nil
}

// Import stores tasks and reports already normalized from another system.
// Only admins may import. Every row is validated before anything is written
// and the rows are written in one transaction. Imported rows keep their
// status and timestamps but get fresh ids; reports pointing at an imported
// task are re-linked.
func (s *Service) Import(ctx context.Context, actorID uint, tasks []Models.Task, reports []Models.Report) (ImportResult, error) {
	actor, err := s.actor(ctx, actorID, "import")
	if err != nil {
		return ImportResult{}, err
	}
	if !actor.IsAdmin() {
		return ImportResult{}, &AuthorizationError{ActorID: actorID, Action: "import"}
	}

	tasks = append([]Models.Task(nil), tasks...)
	reports = append([]Models.Report(nil), reports...)
	if err := validateImport(tasks, reports); err != nil {
		return ImportResult{}, err
	}

	var result ImportResult
	err = s.repo.WithinTransaction(ctx, func(w Models.RecordWriter) error {
		result = ImportResult{TaskIDs: make(map[uint]uint)}
		for _, task := range tasks {
			sourceID := task.ID
			task.ID = 0
			if task.AssignerID == 0 {
				task.AssignerID = actor.ID
			}
			if task.LeaderID == 0 {
				task.LeaderID = task.AssignerID
			}
			if err := w.CreateTask(ctx, &task); err != nil {
				return storeError("import task", err)
			}
			if sourceID != 0 {
				result.TaskIDs[sourceID] = task.ID
			}
			result.Tasks++
		}
		for _, report := range reports {
			report.ID = 0
			if mapped, ok := result.TaskIDs[report.TaskID]; ok {
				report.TaskID = mapped
			}
			if err := w.CreateReport(ctx, &report); err != nil {
				return storeError("import report", err)
			}
			result.Reports++
		}
		return nil
	})
	if err != nil {
		var transient *TransientIOError
		if errors.As(err, &transient) || errors.Is(err, ErrNotFound) {
			return ImportResult{}, err
		}
		return ImportResult{}, storeError("commit import", err)
	}

	lgr.Printf("[INFO] user %d imported %d tasks and %d reports", actor.ID, result.Tasks, result.Reports)
	return result, nil
}
