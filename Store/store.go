package Store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"Workforce/Models"
)

// Store is the gorm-backed persistence for users, tasks and reports.
type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// Columns written by a lifecycle transition. Everything else on the task is
// left alone so a concurrent administrative edit of the title survives.
var transitionColumns = []string{
	"status",
	"accepted_at",
	"completed_at",
	"quality",
	"completion_note",
	"completion_link",
	"completion_file_path",
	"reject_reason",
}

var detailColumns = []string{
	"title",
	"objective",
	"content",
	"deadline",
	"weight",
	"status",
	"quality",
}

func wrap(err error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("could not %s: %w", action, Models.ErrRecordNotFound)
	}
	return fmt.Errorf("could not %s: %w", action, err)
}

// FetchTasks returns the tasks visible to the scope: admins see all, leaders
// see what they lead or perform, staff see what they perform.
func (s *Store) FetchTasks(ctx context.Context, scope Models.Scope) ([]Models.Task, error) {
	query := s.DB.WithContext(ctx).Model(&Models.Task{})
	switch scope.Role {
	case Models.RoleAdmin:
	case Models.RoleLeader:
		query = query.Where("leader_id = ? OR assignee_id = ?", scope.ActorID, scope.ActorID)
	default:
		query = query.Where("assignee_id = ?", scope.ActorID)
	}

	var tasks []Models.Task
	if err := query.Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, wrap(err, "fetch tasks")
	}
	return tasks, nil
}

func (s *Store) FetchTask(ctx context.Context, id uint) (*Models.Task, error) {
	var task Models.Task
	if err := s.DB.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, wrap(err, "fetch task")
	}
	return &task, nil
}

// FetchAcceptedTasks returns the user's tasks currently in status accepted.
func (s *Store) FetchAcceptedTasks(ctx context.Context, userID uint) ([]Models.Task, error) {
	var tasks []Models.Task
	err := s.DB.WithContext(ctx).
		Where("assignee_id = ? AND status = ?", userID, Models.StatusAccepted).
		Order("id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, wrap(err, "fetch accepted tasks")
	}
	return tasks, nil
}

// WithinTransaction runs fn against a store bound to one database
// transaction. Everything fn wrote is rolled back if it returns an error.
func (s *Store) WithinTransaction(ctx context.Context, fn func(Models.RecordWriter) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

func (s *Store) CreateTask(ctx context.Context, task *Models.Task) error {
	if err := s.DB.WithContext(ctx).Create(task).Error; err != nil {
		return wrap(err, "create task")
	}
	return nil
}

// TransitionTask persists the lifecycle columns of task only if the stored
// status still equals from. A lost race surfaces as Models.ErrStatusChanged.
func (s *Store) TransitionTask(ctx context.Context, task *Models.Task, from Models.TaskStatus) error {
	result := s.DB.WithContext(ctx).
		Model(task).
		Where("status = ?", from).
		Select(transitionColumns).
		Updates(task)
	if result.Error != nil {
		return wrap(result.Error, "update task status")
	}
	if result.RowsAffected == 0 {
		if _, err := s.FetchTask(ctx, task.ID); err != nil {
			return err
		}
		return fmt.Errorf("could not move task %d out of %s: %w", task.ID, from, Models.ErrStatusChanged)
	}
	return nil
}

// SaveTaskDetails overwrites the administratively editable columns.
func (s *Store) SaveTaskDetails(ctx context.Context, task *Models.Task) error {
	result := s.DB.WithContext(ctx).Model(task).Select(detailColumns).Updates(task)
	if result.Error != nil {
		return wrap(result.Error, "update task details")
	}
	if result.RowsAffected == 0 {
		return wrap(gorm.ErrRecordNotFound, "update task details")
	}
	return nil
}

func (s *Store) CreateReport(ctx context.Context, report *Models.Report) error {
	if err := s.DB.WithContext(ctx).Create(report).Error; err != nil {
		return wrap(err, "create report")
	}
	return nil
}

func (s *Store) FetchReportsByUser(ctx context.Context, userID uint) ([]Models.Report, error) {
	var reports []Models.Report
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date ASC, id ASC").
		Find(&reports).Error
	if err != nil {
		return nil, wrap(err, "fetch reports")
	}
	return reports, nil
}

// FetchReportsByTask returns the task's reports, narrowed to one author when
// userID is non-zero.
func (s *Store) FetchReportsByTask(ctx context.Context, taskID, userID uint) ([]Models.Report, error) {
	query := s.DB.WithContext(ctx).Where("task_id = ?", taskID)
	if userID != 0 {
		query = query.Where("user_id = ?", userID)
	}

	var reports []Models.Report
	if err := query.Order("date ASC, id ASC").Find(&reports).Error; err != nil {
		return nil, wrap(err, "fetch task reports")
	}
	return reports, nil
}
