package Models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Field aliases seen in imported task and report payloads. The first key
// present wins.
var (
	taskIDKeys        = []string{"id", "ID", "taskId", "task_id"}
	taskTitleKeys     = []string{"title", "name"}
	taskObjectiveKeys = []string{"objective", "goal"}
	taskContentKeys   = []string{"content", "description"}
	taskAssignerKeys  = []string{"assignerId", "assigner_id", "creatorId", "created_by"}
	taskLeaderKeys    = []string{"leaderId", "leader_id", "approverId", "approver_id"}
	taskAssigneeKeys  = []string{"assigneeId", "assignee_id", "performerId", "performer_id"}
	taskDeadlineKeys  = []string{"deadline", "dueDate", "due_date", "due"}
	taskWeightKeys    = []string{"weight"}
	taskQualityKeys   = []string{"quality"}
	taskStatusKeys    = []string{"status", "state"}
	taskCreatedKeys   = []string{"createdAt", "created_at"}
	taskAcceptedKeys  = []string{"acceptedAt", "accepted_at"}
	taskCompletedKeys = []string{"completedAt", "completed_at", "finishedAt"}
	taskNoteKeys      = []string{"completionNote", "completion_note"}
	taskLinkKeys      = []string{"completionLink", "completion_link"}
	taskFileKeys      = []string{"completionFilePath", "completion_file_path", "completionFile"}
	reportUserKeys    = []string{"userId", "user_id", "reporterId"}
	reportDateKeys    = []string{"date", "reportDate", "report_date"}
	reportResultKeys  = []string{"result", "content", "text"}
	reportAttachKeys  = []string{"attachmentPath", "attachment_path", "attachments"}
	timestampLayouts  = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", DateLayout}
)

// ParseTimestamp accepts RFC3339 and the space-separated "YYYY-MM-DD hh:mm:ss"
// form (by swapping the first space for a 'T'). Values without a zone are
// read in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	s = strings.Replace(s, " ", "T", 1)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// NormalizeStatus folds "Pending Approval", "pending-approval" and friends
// onto the canonical status values.
func NormalizeStatus(s string) (TaskStatus, error) {
	folded := strings.ToLower(strings.TrimSpace(s))
	folded = strings.NewReplacer(" ", "_", "-", "_").Replace(folded)
	status := TaskStatus(folded)
	if !status.Valid() {
		return "", fmt.Errorf("unknown task status %q", s)
	}
	return status, nil
}

// NormalizeTask maps a loosely shaped task payload onto Task. It is the only
// place where alternate field names are understood.
func NormalizeTask(raw map[string]any) (Task, error) {
	var task Task

	if id, ok, err := uintField(raw, taskIDKeys); err != nil {
		return task, err
	} else if ok {
		task.ID = id
	}
	task.Title = stringField(raw, taskTitleKeys)
	task.Objective = stringField(raw, taskObjectiveKeys)
	task.Content = stringField(raw, taskContentKeys)
	task.CompletionNote = stringField(raw, taskNoteKeys)
	task.CompletionLink = stringField(raw, taskLinkKeys)
	task.CompletionFilePath = stringField(raw, taskFileKeys)

	ids := []struct {
		keys []string
		dst  *uint
	}{
		{taskAssignerKeys, &task.AssignerID},
		{taskLeaderKeys, &task.LeaderID},
		{taskAssigneeKeys, &task.AssigneeID},
	}
	for _, f := range ids {
		id, _, err := uintField(raw, f.keys)
		if err != nil {
			return task, err
		}
		*f.dst = id
	}

	var err error
	if task.Weight, err = floatField(raw, taskWeightKeys); err != nil {
		return task, err
	}
	if task.Quality, err = floatField(raw, taskQualityKeys); err != nil {
		return task, err
	}

	times := []struct {
		keys []string
		dst  **time.Time
	}{
		{taskDeadlineKeys, &task.Deadline},
		{taskAcceptedKeys, &task.AcceptedAt},
		{taskCompletedKeys, &task.CompletedAt},
	}
	for _, f := range times {
		if *f.dst, err = timeField(raw, f.keys); err != nil {
			return task, err
		}
	}
	created, err := timeField(raw, taskCreatedKeys)
	if err != nil {
		return task, err
	}
	if created != nil {
		task.CreatedAt = *created
	}

	task.Status = StatusNew
	if s := stringField(raw, taskStatusKeys); s != "" {
		if task.Status, err = NormalizeStatus(s); err != nil {
			return task, err
		}
	}
	return task, nil
}

// NormalizeReport maps a loosely shaped report payload onto Report.
func NormalizeReport(raw map[string]any) (Report, error) {
	var report Report

	if id, ok, err := uintField(raw, []string{"id", "ID"}); err != nil {
		return report, err
	} else if ok {
		report.ID = id
	}
	var err error
	if report.UserID, _, err = uintField(raw, reportUserKeys); err != nil {
		return report, err
	}
	if report.TaskID, _, err = uintField(raw, []string{"taskId", "task_id"}); err != nil {
		return report, err
	}

	day := stringField(raw, reportDateKeys)
	if day == "" {
		return report, fmt.Errorf("report date is required")
	}
	// A timestamp is accepted but only its calendar date is kept.
	if len(day) > len(DateLayout) {
		day = day[:len(DateLayout)]
	}
	if report.Date, err = ParseCalendarDate(day); err != nil {
		return report, fmt.Errorf("invalid report date %q: %w", day, err)
	}

	report.Result = stringField(raw, reportResultKeys)
attachments:
	for _, key := range reportAttachKeys {
		switch v := raw[key].(type) {
		case string:
			report.AttachmentPath = JoinAttachments(SplitAttachments(v))
		case []any:
			paths := make([]string, 0, len(v))
			for _, p := range v {
				paths = append(paths, fmt.Sprint(p))
			}
			report.AttachmentPath = JoinAttachments(paths)
		default:
			continue
		}
		break attachments
	}
	return report, nil
}

func lookup(raw map[string]any, keys []string) (any, bool) {
	for _, key := range keys {
		if v, ok := raw[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringField(raw map[string]any, keys []string) string {
	v, ok := lookup(raw, keys)
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func uintField(raw map[string]any, keys []string) (uint, bool, error) {
	v, ok := lookup(raw, keys)
	if !ok {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		if n < 0 || n != math.Trunc(n) {
			return 0, false, fmt.Errorf("invalid identifier %v for %s", n, keys[0])
		}
		return uint(n), true, nil
	case int:
		if n < 0 {
			return 0, false, fmt.Errorf("invalid identifier %d for %s", n, keys[0])
		}
		return uint(n), true, nil
	case uint:
		return n, true, nil
	case json.Number:
		id, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("invalid identifier %q for %s", n, keys[0])
		}
		return uint(id), true, nil
	case string:
		if strings.TrimSpace(n) == "" {
			return 0, false, nil
		}
		id, err := strconv.ParseUint(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("invalid identifier %q for %s", n, keys[0])
		}
		return uint(id), true, nil
	}
	return 0, false, fmt.Errorf("invalid identifier type %T for %s", v, keys[0])
}

// floatField keeps unparsable numbers as NaN so that import validation can
// reject the row by field name.
func floatField(raw map[string]any, keys []string) (*float64, error) {
	v, ok := lookup(raw, keys)
	if !ok {
		return nil, nil
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			parsed = math.NaN()
		}
		f = parsed
	case string:
		if strings.TrimSpace(n) == "" {
			return nil, nil
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			parsed = math.NaN()
		}
		f = parsed
	default:
		return nil, fmt.Errorf("invalid numeric type %T for %s", v, keys[0])
	}
	return &f, nil
}

func timeField(raw map[string]any, keys []string) (*time.Time, error) {
	s := stringField(raw, keys)
	if s == "" {
		return nil, nil
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", keys[0], err)
	}
	return &t, nil
}
