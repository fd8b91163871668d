package Models

import (
	"gorm.io/gorm"
)

// DeviceToken is a Firebase Cloud Messaging registration token for one of a
// user's devices.
type DeviceToken struct {
	gorm.Model
	UserID uint   `json:"user_id" gorm:"not null;index"`
	Value  string `json:"value" gorm:"size:512;not null;uniqueIndex"`
}

type UpdateTokenRequest struct {
	Value string `json:"value" validate:"required,max=512"`
}
