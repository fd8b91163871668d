package Models

import (
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleLeader Role = "leader"
	RoleStaff  Role = "staff"
)

// Permission levels used by the route guards. Higher includes lower.
const (
	PermissionStaff  = 1
	PermissionLeader = 2
	PermissionAdmin  = 3
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleLeader, RoleStaff:
		return true
	}
	return false
}

// Permission maps a role onto the numeric level checked by middleware.Verify.
func (r Role) Permission() int {
	switch r {
	case RoleAdmin:
		return PermissionAdmin
	case RoleLeader:
		return PermissionLeader
	case RoleStaff:
		return PermissionStaff
	}
	return 0
}

type User struct {
	gorm.Model
	Name             string  `json:"name" gorm:"size:255;not null"`
	Email            string  `json:"email" gorm:"size:255;not null;uniqueIndex"`
	Password         []byte  `json:"-"`
	Role             Role    `json:"role" gorm:"size:16;not null;index"`
	Team             *string `json:"team"`
	ManageAttendance bool    `json:"can_manage_attendance" gorm:"default:false"`
}

// CanManageAttendance is always true for admins regardless of the stored flag.
func (u User) CanManageAttendance() bool {
	return u.Role == RoleAdmin || u.ManageAttendance
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NameDirectory resolves display names from a preloaded id -> name map.
type NameDirectory map[uint]string

func (d NameDirectory) ResolveUserName(userID uint) string {
	return d[userID]
}

// Scope describes whose tasks an actor is allowed to see.
type Scope struct {
	ActorID uint
	Role    Role
}
