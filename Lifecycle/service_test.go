package Lifecycle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Workforce/Models"
	"Workforce/Store"
)

var (
	cairo = time.FixedZone("EET", 2*60*60)
	// 10:00 on 2024-03-15 in Cairo.
	clock = time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
)

type fixture struct {
	store   *Store.Store
	service *Service
	admin   Models.User
	leader  Models.User
	staff   Models.User
	other   Models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := Models.Connect(Models.DatabaseConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	f := &fixture{store: Store.New(db)}
	f.service = NewService(f.store, WithClock(func() time.Time { return clock }), WithLocation(cairo))

	ctx := context.Background()
	for _, u := range []*Models.User{
		{Name: "Admin", Email: "admin@example.com", Role: Models.RoleAdmin},
		{Name: "Leila", Email: "leila@example.com", Role: Models.RoleLeader},
		{Name: "Sami", Email: "sami@example.com", Role: Models.RoleStaff},
		{Name: "Omar", Email: "omar@example.com", Role: Models.RoleStaff},
	} {
		require.NoError(t, f.store.CreateUser(ctx, u))
	}
	users, err := f.store.FetchUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 4)
	f.admin, f.leader, f.staff, f.other = users[0], users[1], users[2], users[3]
	return f
}

// seed inserts a task for the staff member directly, bypassing the lifecycle.
func (f *fixture) seed(t *testing.T, status Models.TaskStatus, acceptedAt *time.Time) *Models.Task {
	t.Helper()
	task := &Models.Task{
		Title:      "Prepare quarterly audit",
		AssignerID: f.admin.ID,
		LeaderID:   f.leader.ID,
		AssigneeID: f.staff.ID,
		Status:     status,
		AcceptedAt: acceptedAt,
	}
	require.NoError(t, f.store.CreateTask(context.Background(), task))
	return task
}

func ptr[T any](v T) *T { return &v }

func TestCreateTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task, err := f.service.Create(ctx, f.leader.ID, NewTask{Title: "  Inventory  ", AssigneeID: f.staff.ID, Weight: ptr(0.5)})
	require.NoError(t, err)
	assert.Equal(t, "Inventory", task.Title)
	assert.Equal(t, Models.StatusNew, task.Status)
	assert.Equal(t, f.leader.ID, task.LeaderID)
	assert.Equal(t, f.leader.ID, task.AssignerID)

	_, err = f.service.Create(ctx, f.staff.ID, NewTask{Title: "x", AssigneeID: f.other.ID})
	var authErr *AuthorizationError
	assert.ErrorAs(t, err, &authErr)

	_, err = f.service.Create(ctx, f.leader.ID, NewTask{Title: "x", AssigneeID: 999})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "assignee_id")

	_, err = f.service.Create(ctx, f.leader.ID, NewTask{AssigneeID: f.staff.ID, Weight: ptr(1.5)})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "title")
	assert.Contains(t, verr.Fields, "weight")

	_, err = f.service.Create(ctx, f.admin.ID, NewTask{Title: "x", AssigneeID: f.staff.ID, LeaderID: f.other.ID})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "leader_id", "staff cannot be the approving leader")

	delegated, err := f.service.Create(ctx, f.admin.ID, NewTask{Title: "x", AssigneeID: f.staff.ID, LeaderID: f.leader.ID})
	require.NoError(t, err)
	assert.Equal(t, f.leader.ID, delegated.LeaderID)
}

func TestFullLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.seed(t, Models.StatusNew, nil)

	accepted, err := f.service.Accept(ctx, task.ID, f.staff.ID)
	require.NoError(t, err)
	assert.Equal(t, Models.StatusAccepted, accepted.Status)
	require.NotNil(t, accepted.AcceptedAt)
	assert.True(t, accepted.AcceptedAt.Equal(clock))

	_, err = f.service.SubmitReport(ctx, f.staff.ID, ReportInput{
		TaskID:         task.ID,
		Date:           "2024-03-15",
		Result:         "Collected the ledgers from every branch",
		AttachmentPath: "a.pdf| |b.pdf",
	})
	require.NoError(t, err)

	submitted, err := f.service.SubmitCompletion(ctx, task.ID, f.staff.ID, CompletionInput{Note: "done", Link: "https://example.com/audit"})
	require.NoError(t, err)
	assert.Equal(t, Models.StatusPendingApproval, submitted.Status)

	rejected, err := f.service.Reject(ctx, task.ID, f.leader.ID, RejectInput{Reason: "missing branch 4"})
	require.NoError(t, err)
	assert.Equal(t, Models.StatusAccepted, rejected.Status)
	assert.Equal(t, "missing branch 4", rejected.RejectReason)

	_, err = f.service.SubmitCompletion(ctx, task.ID, f.staff.ID, CompletionInput{Note: "branch 4 added"})
	require.NoError(t, err)

	approved, err := f.service.Approve(ctx, task.ID, f.leader.ID, ApproveInput{Quality: ptr(0.8)})
	require.NoError(t, err)
	assert.Equal(t, Models.StatusCompleted, approved.Status)
	require.NotNil(t, approved.CompletedAt)
	assert.InDelta(t, 0.8, *approved.Quality, 1e-9)

	stored, err := f.store.FetchTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, Models.StatusCompleted, stored.Status)
	assert.Equal(t, "branch 4 added", stored.CompletionNote)
	assert.Empty(t, stored.RejectReason)

	reports, err := f.service.FetchReportsByTask(ctx, f.leader.ID, task.ID, 0)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, reports[0].Attachments())
	assert.Equal(t, "2024-03-15", reports[0].Day())
	assert.Equal(t, "Collected the ledgers from every branch", reports[0].Result)
}

func TestOnlyAssigneeMayAccept(t *testing.T) {
	f := newFixture(t)
	task := f.seed(t, Models.StatusNew, nil)

	for _, actor := range []Models.User{f.admin, f.leader, f.other} {
		_, err := f.service.Accept(context.Background(), task.ID, actor.ID)
		var authErr *AuthorizationError
		assert.ErrorAs(t, err, &authErr, actor.Name)
	}

	stored, err := f.store.FetchTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, Models.StatusNew, stored.Status)
}

func TestAuthorizationIsCheckedBeforeState(t *testing.T) {
	f := newFixture(t)
	task := f.seed(t, Models.StatusCompleted, nil)

	_, err := f.service.Approve(context.Background(), task.ID, f.staff.ID, ApproveInput{})
	var authErr *AuthorizationError
	assert.ErrorAs(t, err, &authErr)

	_, err = f.service.Approve(context.Background(), task.ID, f.leader.ID, ApproveInput{})
	var stateErr *InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, Models.StatusCompleted, stateErr.Status)
}

func TestIllegalTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	newTask := f.seed(t, Models.StatusNew, nil)
	_, err := f.service.SubmitCompletion(ctx, newTask.ID, f.staff.ID, CompletionInput{})
	var stateErr *InvalidStateError
	assert.ErrorAs(t, err, &stateErr)

	_, err = f.service.SubmitReport(ctx, f.staff.ID, ReportInput{TaskID: newTask.ID, Date: "2024-03-14", Result: "a long enough result"})
	assert.ErrorAs(t, err, &stateErr)

	acceptedAt := clock.Add(-time.Hour)
	accepted := f.seed(t, Models.StatusAccepted, &acceptedAt)
	_, err = f.service.Accept(ctx, accepted.ID, f.staff.ID)
	assert.ErrorAs(t, err, &stateErr)
	_, err = f.service.Approve(ctx, accepted.ID, f.leader.ID, ApproveInput{})
	assert.ErrorAs(t, err, &stateErr)
}

func TestAnotherLeaderCannotApprove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	outsider := &Models.User{Name: "Nour", Email: "nour@example.com", Role: Models.RoleLeader}
	require.NoError(t, f.store.CreateUser(ctx, outsider))
	task := f.seed(t, Models.StatusPendingApproval, nil)

	_, err := f.service.Approve(ctx, task.ID, outsider.ID, ApproveInput{})
	var authErr *AuthorizationError
	assert.ErrorAs(t, err, &authErr)

	approved, err := f.service.Approve(ctx, task.ID, f.admin.ID, ApproveInput{})
	require.NoError(t, err)
	assert.Nil(t, approved.Quality)
}

func TestAcceptBlockedByReportingGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	twoDaysAgo := clock.Add(-48 * time.Hour)
	held := f.seed(t, Models.StatusAccepted, &twoDaysAgo)
	incoming := f.seed(t, Models.StatusNew, nil)

	_, err := f.service.Accept(ctx, incoming.ID, f.staff.ID)
	var violation *PolicyViolation
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "2024-03-14", violation.Day)
	assert.Equal(t, []uint{held.ID}, violation.TaskIDs())
	assert.Equal(t, held.Title, violation.Missing[0].Title)

	stored, err := f.store.FetchTask(ctx, incoming.ID)
	require.NoError(t, err)
	assert.Equal(t, Models.StatusNew, stored.Status)

	gate, err := f.service.GateStatus(ctx, f.staff.ID)
	require.NoError(t, err)
	assert.True(t, gate.Locked)

	_, err = f.service.SubmitReport(ctx, f.staff.ID, ReportInput{TaskID: held.ID, Date: "2024-03-14", Result: "Reconciled the March invoices"})
	require.NoError(t, err)

	accepted, err := f.service.Accept(ctx, incoming.ID, f.staff.ID)
	require.NoError(t, err)
	assert.Equal(t, Models.StatusAccepted, accepted.Status)
}

func TestGateIgnoresOtherUsersAndTodayAcceptances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	earlierToday := clock.Add(-time.Hour)
	f.seed(t, Models.StatusAccepted, &earlierToday)

	twoDaysAgo := clock.Add(-48 * time.Hour)
	foreign := &Models.Task{Title: "other", AssignerID: f.admin.ID, LeaderID: f.leader.ID, AssigneeID: f.other.ID, Status: Models.StatusAccepted, AcceptedAt: &twoDaysAgo}
	require.NoError(t, f.store.CreateTask(ctx, foreign))

	incoming := f.seed(t, Models.StatusNew, nil)
	_, err := f.service.Accept(ctx, incoming.ID, f.staff.ID)
	assert.NoError(t, err)
}

func TestConcurrentApproveHasOneWinner(t *testing.T) {
	f := newFixture(t)
	task := f.seed(t, Models.StatusPendingApproval, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, actor := range []uint{f.leader.ID, f.admin.ID} {
		wg.Add(1)
		go func(i int, actor uint) {
			defer wg.Done()
			_, errs[i] = f.service.Approve(context.Background(), task.ID, actor, ApproveInput{Quality: ptr(0.9)})
		}(i, actor)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var stateErr *InvalidStateError
		assert.ErrorAs(t, err, &stateErr)
	}
	assert.Equal(t, 1, succeeded)
}

func TestSubmitReportValidatesBeforeLoading(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.SubmitReport(context.Background(), f.staff.ID, ReportInput{TaskID: 999, Date: "14/03/2024", Result: "short"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "date")
	assert.Contains(t, verr.Fields, "result")
}

func TestUnknownTask(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Accept(context.Background(), 999, f.staff.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUnknownActor(t *testing.T) {
	f := newFixture(t)
	task := f.seed(t, Models.StatusNew, nil)

	_, err := f.service.Accept(context.Background(), task.ID, 999)
	var authErr *AuthorizationError
	assert.ErrorAs(t, err, &authErr)
}

func TestUpdateDetailsOverridesStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.seed(t, Models.StatusNew, nil)

	paused := Models.StatusPaused
	updated, err := f.service.UpdateDetails(ctx, task.ID, f.admin.ID, TaskPatch{Status: &paused, Title: ptr("Audit, phase two")})
	require.NoError(t, err)
	assert.Equal(t, Models.StatusPaused, updated.Status)

	_, err = f.service.Accept(ctx, task.ID, f.staff.ID)
	var stateErr *InvalidStateError
	assert.ErrorAs(t, err, &stateErr)

	_, err = f.service.UpdateDetails(ctx, task.ID, f.staff.ID, TaskPatch{Status: &paused})
	var authErr *AuthorizationError
	assert.ErrorAs(t, err, &authErr)

	bogus := Models.TaskStatus("archived")
	_, err = f.service.UpdateDetails(ctx, task.ID, f.admin.ID, TaskPatch{Status: &bogus})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	completed := Models.StatusCompleted
	updated, err = f.service.UpdateDetails(ctx, task.ID, f.leader.ID, TaskPatch{Status: &completed, Quality: ptr(0.7)})
	require.NoError(t, err)
	assert.Nil(t, updated.CompletedAt)

	stored, err := f.store.FetchTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Audit, phase two", stored.Title)
	assert.Equal(t, Models.StatusCompleted, stored.Status)
}

func TestFetchTasksByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.seed(t, Models.StatusNew, nil)
	theirs := &Models.Task{Title: "other", AssignerID: f.admin.ID, LeaderID: f.admin.ID, AssigneeID: f.other.ID, Status: Models.StatusNew}
	require.NoError(t, f.store.CreateTask(ctx, theirs))

	tasks, err := f.service.FetchTasks(ctx, f.staff.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{mine.ID}, Models.TaskIDs(tasks))

	tasks, err = f.service.FetchTasks(ctx, f.leader.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{mine.ID}, Models.TaskIDs(tasks))

	tasks, err = f.service.FetchTasks(ctx, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{mine.ID, theirs.ID}, Models.TaskIDs(tasks))

	_, err = f.service.FetchTask(ctx, theirs.ID, f.staff.ID)
	var authErr *AuthorizationError
	assert.ErrorAs(t, err, &authErr)
}

func TestFetchReportsByUserScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.FetchReportsByUser(ctx, f.staff.ID, f.other.ID)
	var authErr *AuthorizationError
	assert.ErrorAs(t, err, &authErr)

	reports, err := f.service.FetchReportsByUser(ctx, f.leader.ID, f.staff.ID)
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestRanking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	deadline := clock.Add(-12 * time.Hour)

	for _, q := range []float64{0.9, 0.5} {
		task := &Models.Task{
			Title: "scored", AssignerID: f.admin.ID, LeaderID: f.leader.ID, AssigneeID: f.staff.ID,
			Status: Models.StatusPendingApproval, Weight: ptr(0.5), Deadline: &deadline,
		}
		require.NoError(t, f.store.CreateTask(ctx, task))
		_, err := f.service.Approve(ctx, task.ID, f.leader.ID, ApproveInput{Quality: ptr(q)})
		require.NoError(t, err)
	}

	rows, err := f.service.Ranking(ctx, f.admin.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, f.staff.ID, rows[0].UserID)
	assert.Equal(t, "Sami", rows[0].Name)
	assert.InDelta(t, 2.0, rows[0].TotalScore, 1e-9)
	assert.Equal(t, 2, rows[0].CompletedCount)
}

func TestGroupsUsesClock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	yesterday := clock.Add(-24 * time.Hour)
	task := f.seed(t, Models.StatusAccepted, &yesterday)
	_, err := f.service.UpdateDetails(ctx, task.ID, f.admin.ID, TaskPatch{Deadline: &yesterday})
	require.NoError(t, err)

	groups, err := f.service.Groups(ctx, f.staff.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{task.ID}, Models.TaskIDs(groups.Overdue))
	assert.Empty(t, groups.InProgress)
}

func TestStoreFailureIsTransient(t *testing.T) {
	f := newFixture(t)
	task := f.seed(t, Models.StatusNew, nil)
	sqlDB, err := f.store.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = f.service.Accept(context.Background(), task.ID, f.staff.ID)
	var transient *TransientIOError
	assert.ErrorAs(t, err, &transient)
}

func TestImportRelinksReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	acceptedAt := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	tasks := []Models.Task{{Title: "Legacy", AssigneeID: f.staff.ID, Status: Models.StatusAccepted, AcceptedAt: &acceptedAt}}
	tasks[0].ID = 77
	reports := []Models.Report{{UserID: f.staff.ID, TaskID: 77, Date: Models.CalendarDate(2024, 3, 14), Result: "kept the legacy system running"}}

	result, err := f.service.Import(ctx, f.admin.ID, tasks, reports)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Tasks)
	assert.Equal(t, 1, result.Reports)
	newID := result.TaskIDs[77]
	require.NotZero(t, newID)

	task, err := f.store.FetchTask(ctx, newID)
	require.NoError(t, err)
	assert.Equal(t, f.admin.ID, task.AssignerID)
	assert.Equal(t, f.admin.ID, task.LeaderID)
	assert.Equal(t, Models.StatusAccepted, task.Status)

	stored, err := f.store.FetchReportsByTask(ctx, newID, 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "2024-03-14", stored[0].Day())

	// The imported report covers yesterday, so the gate is open.
	gate, err := f.service.GateStatus(ctx, f.staff.ID)
	require.NoError(t, err)
	assert.False(t, gate.Locked)
}

func TestImportRejectsNonAdminsAndIncompleteRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Import(ctx, f.leader.ID, nil, nil)
	var authErr *AuthorizationError
	assert.ErrorAs(t, err, &authErr)

	_, err = f.service.Import(ctx, f.admin.ID, []Models.Task{{Title: "No assignee"}}, nil)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.service.Import(ctx, f.admin.ID, nil, []Models.Report{{UserID: f.staff.ID}})
	assert.ErrorAs(t, err, &verr)

	tasks, err := f.store.FetchTasks(ctx, Models.Scope{ActorID: f.admin.ID, Role: Models.RoleAdmin})
	require.NoError(t, err)
	assert.Empty(t, tasks, "nothing is written when validation fails")
}

func TestImportValidatesEveryRowBeforeWriting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	good := Models.Task{Title: "Fine", AssigneeID: f.staff.ID}
	report := Models.Report{UserID: f.staff.ID, TaskID: 1, Date: Models.CalendarDate(2024, 3, 14), Result: "a long enough result"}

	for name, tc := range map[string]struct {
		tasks   []Models.Task
		reports []Models.Report
		field   string
	}{
		"weight above one":  {tasks: []Models.Task{good, {Title: "Heavy", AssigneeID: f.staff.ID, Weight: ptr(5.0)}}, field: "tasks[1].weight"},
		"negative quality":  {tasks: []Models.Task{{Title: "Bad", AssigneeID: f.staff.ID, Quality: ptr(-3.0)}}, field: "tasks[0].quality"},
		"unparsable weight": {tasks: []Models.Task{{Title: "NaN", AssigneeID: f.staff.ID, Weight: ptr(math.NaN())}}, field: "tasks[0].weight"},
		"unknown status":    {tasks: []Models.Task{{Title: "Odd", AssigneeID: f.staff.ID, Status: "archived"}}, field: "tasks[0].status"},
		"empty result":      {tasks: []Models.Task{good}, reports: []Models.Report{{UserID: f.staff.ID, TaskID: 1, Date: report.Date}}, field: "reports[0].result"},
		"padded result":     {reports: []Models.Report{report, {UserID: f.staff.ID, TaskID: 1, Date: report.Date, Result: "   short    "}}, field: "reports[1].result"},
		"missing date":      {reports: []Models.Report{{UserID: f.staff.ID, TaskID: 1, Result: "a long enough result"}}, field: "reports[0].date"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.service.Import(ctx, f.admin.ID, tc.tasks, tc.reports)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tc.field)
		})
	}

	tasks, err := f.store.FetchTasks(ctx, Models.Scope{ActorID: f.admin.ID, Role: Models.RoleAdmin})
	require.NoError(t, err)
	assert.Empty(t, tasks)
	reports, err := f.store.FetchReportsByUser(ctx, f.staff.ID)
	require.NoError(t, err)
	assert.Empty(t, reports)
}

// failingImports lets the real store run the transaction but fails the nth
// task write inside it.
type failingImports struct {
	*Store.Store
	failAt int
}

func (r failingImports) WithinTransaction(ctx context.Context, fn func(Models.RecordWriter) error) error {
	return r.Store.WithinTransaction(ctx, func(w Models.RecordWriter) error {
		return fn(&failingWriter{RecordWriter: w, failAt: r.failAt})
	})
}

type failingWriter struct {
	Models.RecordWriter
	calls  int
	failAt int
}

func (w *failingWriter) CreateTask(ctx context.Context, task *Models.Task) error {
	w.calls++
	if w.calls == w.failAt {
		return errors.New("disk I/O error")
	}
	return w.RecordWriter.CreateTask(ctx, task)
}

func TestImportRollsBackOnStoreFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	service := NewService(failingImports{Store: f.store, failAt: 2}, WithClock(func() time.Time { return clock }))

	tasks := []Models.Task{
		{Title: "First", AssigneeID: f.staff.ID},
		{Title: "Second", AssigneeID: f.staff.ID},
	}
	result, err := service.Import(ctx, f.admin.ID, tasks, nil)
	var transient *TransientIOError
	require.ErrorAs(t, err, &transient)
	assert.Zero(t, result.Tasks)

	stored, err := f.store.FetchTasks(ctx, Models.Scope{ActorID: f.admin.ID, Role: Models.RoleAdmin})
	require.NoError(t, err)
	assert.Empty(t, stored, "the first task is rolled back with the failed second")

	// A retry against a healthy store writes both rows exactly once.
	_, err = f.service.Import(ctx, f.admin.ID, tasks, nil)
	require.NoError(t, err)
	stored, err = f.store.FetchTasks(ctx, Models.Scope{ActorID: f.admin.ID, Role: Models.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}
