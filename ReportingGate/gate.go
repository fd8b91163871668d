// Package ReportingGate decides whether a staff member may accept new work.
//
// A user who carried accepted tasks into today must have filed at least one
// report dated yesterday for each of them. Evaluation is pure and always
// derives "yesterday" from the now it is given, so crossing midnight can flip
// the result without any stored data changing.
package ReportingGate

import (
	"time"

	"Workforce/Models"
)

// Snapshot is the input for one evaluation: the user's whole report history
// and the tasks they currently hold in status accepted.
type Snapshot struct {
	Reports  []Models.Report
	Accepted []Models.Task
}

// Result is the outcome of Evaluate. Missing keeps the order of
// Snapshot.Accepted.
type Result struct {
	Locked    bool          `json:"locked"`
	Yesterday string        `json:"yesterday"`
	Missing   []Models.Task `json:"missing"`
}

func (r Result) MissingIDs() []uint {
	return Models.TaskIDs(r.Missing)
}

// StartOfDay is midnight of now's calendar day in loc.
func StartOfDay(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// Yesterday is the calendar date before now in loc, as YYYY-MM-DD.
func Yesterday(now time.Time, loc *time.Location) string {
	return StartOfDay(now, loc).AddDate(0, 0, -1).Format(Models.DateLayout)
}

// Today is now's calendar date in loc, as YYYY-MM-DD.
func Today(now time.Time, loc *time.Location) string {
	return StartOfDay(now, loc).Format(Models.DateLayout)
}

// owesReport reports whether the task was already accepted before today
// began. Tasks accepted today carry no obligation for yesterday. A task with
// no recorded acceptance falls back to its creation time; if neither is
// known it is treated as carried over.
func owesReport(task Models.Task, startOfToday time.Time) bool {
	if task.Status != Models.StatusAccepted {
		return false
	}
	since := task.CreatedAt
	if task.AcceptedAt != nil {
		since = *task.AcceptedAt
	}
	if since.IsZero() {
		return true
	}
	return since.Before(startOfToday)
}

// Evaluate computes the lock state for one user at now.
func Evaluate(snapshot Snapshot, now time.Time, loc *time.Location) Result {
	result := Result{Yesterday: Yesterday(now, loc)}
	if len(snapshot.Accepted) == 0 {
		return result
	}

	reported := make(map[uint]bool)
	for _, r := range snapshot.Reports {
		if r.Day() == result.Yesterday {
			reported[r.TaskID] = true
		}
	}

	startOfToday := StartOfDay(now, loc)
	for _, task := range snapshot.Accepted {
		if owesReport(task, startOfToday) && !reported[task.ID] {
			result.Missing = append(result.Missing, task)
		}
	}
	result.Locked = len(result.Missing) > 0
	return result
}
