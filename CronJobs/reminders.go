package CronJobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/robfig/cron/v3"

	"Workforce/Models"
	"Workforce/ReportingGate"
)

// ReminderName keys the persisted last-fired day of the daily reminder.
const ReminderName = "daily-report"

// Notifier delivers one reminder over some channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, reminder Models.Reminder) error
}

// ReminderStore is the persistence the reminder job reads and writes.
type ReminderStore interface {
	FetchUsers(ctx context.Context) ([]Models.User, error)
	LastReminderDay(ctx context.Context, name string) (string, error)
	MarkReminderFired(ctx context.Context, name, day string) error
}

// GateChecker evaluates the reporting gate for one user.
type GateChecker interface {
	GateStatus(ctx context.Context, userID uint) (ReportingGate.Result, error)
}

// ShouldFire reports whether the daily reminder is due: the local hour has
// reached hour and it has not fired yet on today's local date.
func ShouldFire(now time.Time, lastFired string, hour int, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	return local.Hour() >= hour && lastFired != local.Format(Models.DateLayout)
}

// ReminderScheduler runs the daily "file yesterday's reports" reminder on a
// cron schedule. Each tick only fires if ShouldFire says so, which makes
// restarts and frequent schedules safe.
type ReminderScheduler struct {
	cronScheduler *cron.Cron
	jobID         cron.EntryID
	schedule      string

	store     ReminderStore
	gate      GateChecker
	notifiers []Notifier
	hour      int
	loc       *time.Location
	now       func() time.Time

	// running serialises ticks so a slow run is never overlapped.
	running sync.Mutex
}

type SchedulerOption func(*ReminderScheduler)

func WithClock(now func() time.Time) SchedulerOption {
	return func(s *ReminderScheduler) { s.now = now }
}

func NewReminderScheduler(schedule string, hour int, loc *time.Location, store ReminderStore, gate GateChecker, notifiers []Notifier, opts ...SchedulerOption) *ReminderScheduler {
	if loc == nil {
		loc = time.Local
	}
	s := &ReminderScheduler{
		cronScheduler: cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		schedule:      schedule,
		store:         store,
		gate:          gate,
		notifiers:     notifiers,
		hour:          hour,
		loc:           loc,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start schedules the job and starts the cron loop.
func (s *ReminderScheduler) Start(ctx context.Context) error {
	var err error
	s.jobID, err = s.cronScheduler.AddFunc(s.schedule, func() { s.tick(ctx) })
	if err != nil {
		return fmt.Errorf("error scheduling reminder job: %w", err)
	}
	s.cronScheduler.Start()
	lgr.Printf("[INFO] reminder scheduler started, schedule=%q hour=%d notifiers=%d", s.schedule, s.hour, len(s.notifiers))
	return nil
}

// Stop halts the cron loop and waits for a running tick to finish.
func (s *ReminderScheduler) Stop() {
	<-s.cronScheduler.Stop().Done()
	lgr.Printf("[INFO] reminder scheduler stopped")
}

// UpdateSchedule swaps the cron spec without restarting the scheduler.
func (s *ReminderScheduler) UpdateSchedule(ctx context.Context, schedule string) error {
	id, err := s.cronScheduler.AddFunc(schedule, func() { s.tick(ctx) })
	if err != nil {
		return fmt.Errorf("error updating schedule: %w", err)
	}
	s.cronScheduler.Remove(s.jobID)
	s.jobID = id
	s.schedule = schedule
	lgr.Printf("[INFO] reminder schedule updated to %q", schedule)
	return nil
}

func (s *ReminderScheduler) tick(ctx context.Context) {
	sent, err := s.RunOnce(ctx)
	if err != nil {
		lgr.Printf("[WARN] reminder run failed: %v", err)
		return
	}
	if sent > 0 {
		lgr.Printf("[INFO] sent %d report reminders", sent)
	}
}

// RunOnce fires the reminder if it is due and returns how many users were
// reminded. The day is marked as fired even when some deliveries fail, so a
// broken channel cannot cause repeated reminders.
func (s *ReminderScheduler) RunOnce(ctx context.Context) (int, error) {
	s.running.Lock()
	defer s.running.Unlock()

	now := s.now()
	last, err := s.store.LastReminderDay(ctx, ReminderName)
	if err != nil {
		return 0, err
	}
	if !ShouldFire(now, last, s.hour, s.loc) {
		return 0, nil
	}

	reminders, err := s.collect(ctx)
	if err != nil {
		return 0, err
	}
	for _, reminder := range reminders {
		for _, n := range s.notifiers {
			if err := n.Notify(ctx, reminder); err != nil {
				lgr.Printf("[WARN] %s reminder for user %d failed: %v", n.Name(), reminder.User.ID, err)
			}
		}
	}

	today := now.In(s.loc).Format(Models.DateLayout)
	if err := s.store.MarkReminderFired(ctx, ReminderName, today); err != nil {
		return len(reminders), err
	}
	return len(reminders), nil
}

// collect evaluates the gate for every user and keeps the locked ones. Role
// does not matter: anyone holding an accepted task is gated on acceptance.
func (s *ReminderScheduler) collect(ctx context.Context) ([]Models.Reminder, error) {
	users, err := s.store.FetchUsers(ctx)
	if err != nil {
		return nil, err
	}

	var reminders []Models.Reminder
	for _, user := range users {
		result, err := s.gate.GateStatus(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("gate for user %d: %w", user.ID, err)
		}
		if result.Locked {
			reminders = append(reminders, Models.Reminder{User: user, Day: result.Yesterday, Missing: result.Missing})
		}
	}
	return reminders, nil
}
