package Models

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type TaskStatus string

const (
	StatusNew             TaskStatus = "new"
	StatusAccepted        TaskStatus = "accepted"
	StatusPendingApproval TaskStatus = "pending_approval"
	StatusCompleted       TaskStatus = "completed"
	StatusPaused          TaskStatus = "paused"
)

// TaskStatuses lists every status an administrative edit may set.
var TaskStatuses = []TaskStatus{
	StatusNew,
	StatusAccepted,
	StatusPendingApproval,
	StatusCompleted,
	StatusPaused,
}

func (s TaskStatus) Valid() bool {
	for _, status := range TaskStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Task is a unit of work created by an assigner, executed by an assignee and
// signed off by a leader.
type Task struct {
	gorm.Model
	Title     string `json:"title" gorm:"size:255;not null"`
	Objective string `json:"objective" gorm:"type:text"`
	Content   string `json:"content" gorm:"type:text"`

	AssignerID uint `json:"assigner_id" gorm:"not null;index"`
	LeaderID   uint `json:"leader_id" gorm:"not null;index"`
	AssigneeID uint `json:"assignee_id" gorm:"not null;index"`

	Deadline *time.Time `json:"deadline"`
	Weight   *float64   `json:"weight"`
	Quality  *float64   `json:"quality"`
	Status   TaskStatus `json:"status" gorm:"size:32;not null;default:new;index"`

	AcceptedAt  *time.Time `json:"accepted_at"`
	CompletedAt *time.Time `json:"completed_at"`

	// Set when the assignee submits completion.
	CompletionNote     string `json:"completion_note" gorm:"type:text"`
	CompletionLink     string `json:"completion_link" gorm:"size:1024"`
	CompletionFilePath string `json:"completion_file_path" gorm:"size:1024"`

	RejectReason string `json:"reject_reason" gorm:"type:text"`
}

// TaskIDs returns the ids in input order.
func TaskIDs(tasks []Task) []uint {
	ids := make([]uint, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return ids
}

// RecordWriter creates tasks and reports. A store and each of its
// transactions implement it.
type RecordWriter interface {
	CreateTask(ctx context.Context, task *Task) error
	CreateReport(ctx context.Context, report *Report) error
}
