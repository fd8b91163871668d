package Models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DateLayout is the calendar-date form used on the wire and for comparisons.
const DateLayout = "2006-01-02"

// AttachmentSeparator joins multiple attachment paths in a single column.
const AttachmentSeparator = "|"

// Report is an append-only daily progress entry for one task.
type Report struct {
	gorm.Model
	UserID         uint           `json:"user_id" gorm:"not null;index"`
	TaskID         uint           `json:"task_id" gorm:"not null;index"`
	Date           datatypes.Date `json:"date" gorm:"not null;index"`
	Result         string         `json:"result" gorm:"type:text;not null"`
	AttachmentPath string         `json:"attachment_path" gorm:"size:2048"`
}

// Day is the report's calendar date as YYYY-MM-DD, read in the location the
// driver scanned it with.
func (r Report) Day() string {
	return time.Time(r.Date).Format(DateLayout)
}

func (r Report) Attachments() []string {
	return SplitAttachments(r.AttachmentPath)
}

// CalendarDate pins a date to midnight UTC so the stored value never
// shifts day when read back through a different location.
func CalendarDate(year int, month time.Month, day int) datatypes.Date {
	return datatypes.Date(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// ParseCalendarDate parses YYYY-MM-DD into a CalendarDate.
func ParseCalendarDate(s string) (datatypes.Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return datatypes.Date{}, err
	}
	return CalendarDate(t.Year(), t.Month(), t.Day()), nil
}

func SplitAttachments(joined string) []string {
	var paths []string
	for _, p := range strings.Split(joined, AttachmentSeparator) {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

func JoinAttachments(paths []string) string {
	var kept []string
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, AttachmentSeparator)
}
