// Package models contains data structures for the application's domain models.
package models

import "time"

// UserRole defines the authorization level of a user.
type UserRole string

const (
	// UserRoleMember is the default role for registered users.
	UserRoleMember UserRole = "user"
	// UserRoleAdmin grants listing moderation privileges.
	UserRoleAdmin UserRole = "admin"
)

// User represents a member of the exchange community. Points is the
// redemption currency; it is only ever mutated through signed deltas
// (UserRepository.AdjustPoints) and must never go negative.
type User struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	Name                  string    `gorm:"size:120;not null" json:"name"`
	Email                 string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash          string    `gorm:"size:255;not null" json:"-"`
	Location              string    `gorm:"size:120" json:"location"`
	Points                int       `gorm:"not null;default:0" json:"points"`
	AvatarURL             string    `gorm:"size:512" json:"avatar_url,omitempty"`
	PreferredMeetingPlace string    `gorm:"size:255" json:"preferred_meeting_place,omitempty"`
	Role                  UserRole  `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	JoinDate              time.Time `gorm:"autoCreateTime" json:"join_date"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
