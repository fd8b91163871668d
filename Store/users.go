package Store

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Workforce/Models"
)

var ErrDuplicateEmail = errors.New("a user with this email already exists")

func (s *Store) FetchUser(ctx context.Context, id uint) (*Models.User, error) {
	var user Models.User
	if err := s.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, wrap(err, "fetch user")
	}
	return &user, nil
}

func (s *Store) FetchUserByEmail(ctx context.Context, email string) (*Models.User, error) {
	var user Models.User
	err := s.DB.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, wrap(err, "fetch user")
	}
	return &user, nil
}

func (s *Store) FetchUsers(ctx context.Context) ([]Models.User, error) {
	var users []Models.User
	if err := s.DB.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, wrap(err, "fetch users")
	}
	return users, nil
}

func (s *Store) FetchUsersByRole(ctx context.Context, role Models.Role) ([]Models.User, error) {
	var users []Models.User
	if err := s.DB.WithContext(ctx).Where("role = ?", role).Order("id ASC").Find(&users).Error; err != nil {
		return nil, wrap(err, "fetch users")
	}
	return users, nil
}

func (s *Store) CreateUser(ctx context.Context, user *Models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	var count int64
	if err := s.DB.WithContext(ctx).Model(&Models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return wrap(err, "check user email")
	}
	if count > 0 {
		return ErrDuplicateEmail
	}
	if err := s.DB.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return wrap(err, "create user")
	}
	return nil
}

// UpdateUser saves the personnel fields an admin may change.
func (s *Store) UpdateUser(ctx context.Context, user *Models.User) error {
	err := s.DB.WithContext(ctx).
		Model(user).
		Select("name", "role", "team", "manage_attendance").
		Updates(user).Error
	if err != nil {
		return wrap(err, "update user")
	}
	return nil
}

// Directory preloads every user name for ranking output.
func (s *Store) Directory(ctx context.Context) (Models.NameDirectory, error) {
	users, err := s.FetchUsers(ctx)
	if err != nil {
		return nil, err
	}
	directory := make(Models.NameDirectory, len(users))
	for _, u := range users {
		directory[u.ID] = u.Name
	}
	return directory, nil
}

// SaveDeviceToken registers a push token for the user. Re-registering a token
// moves it to the new owner.
func (s *Store) SaveDeviceToken(ctx context.Context, userID uint, value string) error {
	token := Models.DeviceToken{UserID: userID, Value: value}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "value"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "updated_at", "deleted_at"}),
	}).Create(&token).Error
	if err != nil {
		return wrap(err, "save device token")
	}
	return nil
}

func (s *Store) FetchDeviceTokens(ctx context.Context, userID uint) ([]string, error) {
	var tokens []string
	err := s.DB.WithContext(ctx).
		Model(&Models.DeviceToken{}).
		Where("user_id = ?", userID).
		Pluck("value", &tokens).Error
	if err != nil {
		return nil, wrap(err, "fetch device tokens")
	}
	return tokens, nil
}

func (s *Store) DeleteDeviceToken(ctx context.Context, value string) error {
	if err := s.DB.WithContext(ctx).Where("value = ?", value).Delete(&Models.DeviceToken{}).Error; err != nil {
		return wrap(err, "delete device token")
	}
	return nil
}
