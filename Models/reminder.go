package Models

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ReminderState remembers the last calendar day a named reminder fired so a
// restart does not send the same reminder twice.
type ReminderState struct {
	gorm.Model
	Name         string `json:"name" gorm:"size:64;not null;uniqueIndex"`
	LastFiredDay string `json:"last_fired_day" gorm:"size:10"`
}

// Reminder is what notifiers receive for one user who is blocked by the
// reporting gate.
type Reminder struct {
	User    User
	Day     string
	Missing []Task
}

// Subject is the one-line headline used by every reminder channel.
func (r Reminder) Subject() string {
	return fmt.Sprintf("Daily report missing for %s", r.Day)
}

// Text lists the tasks that still need a report for Day.
func (r Reminder) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s, you have not filed a daily report for %s on:\n", r.User.Name, r.Day)
	for _, task := range r.Missing {
		fmt.Fprintf(&b, "- #%d %s\n", task.ID, task.Title)
	}
	b.WriteString("New tasks stay locked until these reports are submitted.")
	return b.String()
}
