package Lifecycle

import (
	"time"

	"Workforce/Models"
)

// Event is a lifecycle action requested by a user.
type Event string

const (
	EventAccept   Event = "accept"
	EventReport   Event = "report"
	EventComplete Event = "complete"
	EventApprove  Event = "approve"
	EventReject   Event = "reject"
)

// transitions lists every legal (status, event) pair. Paused and completed
// have no outgoing events; only an administrative edit moves them.
var transitions = map[Models.TaskStatus]map[Event]Models.TaskStatus{
	Models.StatusNew: {
		EventAccept: Models.StatusAccepted,
	},
	Models.StatusAccepted: {
		EventReport:   Models.StatusAccepted,
		EventComplete: Models.StatusPendingApproval,
	},
	Models.StatusPendingApproval: {
		EventApprove: Models.StatusCompleted,
		EventReject:  Models.StatusAccepted,
	},
}

// Next returns the status reached by applying event to from.
func Next(from Models.TaskStatus, event Event) (Models.TaskStatus, bool) {
	to, ok := transitions[from][event]
	return to, ok
}

// CanTransition reports whether event is legal from the given status.
func CanTransition(from Models.TaskStatus, event Event) bool {
	_, ok := Next(from, event)
	return ok
}

// Permitted reports whether actor may trigger event on task, ignoring the
// task's status.
func Permitted(task Models.Task, actor Models.User, event Event) bool {
	switch event {
	case EventAccept, EventReport, EventComplete:
		return actor.ID == task.AssigneeID
	case EventApprove, EventReject:
		return actor.IsAdmin() || actor.ID == task.LeaderID
	}
	return false
}

// Actions lists the events actor can trigger on task right now, in a fixed
// order suitable for rendering buttons.
func Actions(task Models.Task, actor Models.User) []Event {
	var actions []Event
	for _, event := range []Event{EventAccept, EventReport, EventComplete, EventApprove, EventReject} {
		if CanTransition(task.Status, event) && Permitted(task, actor, event) {
			actions = append(actions, event)
		}
	}
	return actions
}

// Groups are the dashboard buckets derived from a task list.
type Groups struct {
	Overdue    []Models.Task `json:"overdue"`
	InProgress []Models.Task `json:"in_progress"`
	Backlog    []Models.Task `json:"backlog"`
}

// IsOverdue is true for tasks still being worked on whose deadline has
// passed. Pending approval counts as delivered.
func IsOverdue(task Models.Task, now time.Time) bool {
	switch task.Status {
	case Models.StatusCompleted, Models.StatusPaused, Models.StatusPendingApproval:
		return false
	}
	return task.Deadline != nil && task.Deadline.Before(now)
}

// Group buckets tasks in a single pass. A task is in progress only if it was
// not already classified overdue, so the two never overlap.
func Group(tasks []Models.Task, now time.Time) Groups {
	var g Groups
	for _, task := range tasks {
		if IsOverdue(task, now) {
			g.Overdue = append(g.Overdue, task)
		} else if task.Status == Models.StatusAccepted {
			g.InProgress = append(g.InProgress, task)
		}
		if task.Status == Models.StatusNew || task.Status == Models.StatusAccepted {
			g.Backlog = append(g.Backlog, task)
		}
	}
	return g
}
