package Store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Workforce/Models"
)

// LastReminderDay returns the day the named reminder last fired, or "" if it
// never has.
func (s *Store) LastReminderDay(ctx context.Context, name string) (string, error) {
	var state Models.ReminderState
	err := s.DB.WithContext(ctx).Where("name = ?", name).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", wrap(err, "fetch reminder state")
	}
	return state.LastFiredDay, nil
}

func (s *Store) MarkReminderFired(ctx context.Context, name, day string) error {
	state := Models.ReminderState{Name: name, LastFiredDay: day}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_fired_day", "updated_at"}),
	}).Create(&state).Error
	if err != nil {
		return wrap(err, "save reminder state")
	}
	return nil
}
