package models

import (
	"time"
)

// Permission levels. Higher levels include the capabilities of lower
// ones.
const (
	PermissionMember        int16 = 0
	PermissionTrusted       int16 = 10
	PermissionModerator     int16 = 20
	PermissionAdministrator int16 = 30
)

// User represents a registered account
type User struct {
	ID            int64     `gorm:"primaryKey;autoIncrement;column:id"`
	Username      string    `gorm:"type:varchar(32);not null;uniqueIndex:users_username_ux;column:username"`
	UsernameLower string    `gorm:"type:varchar(32);not null;uniqueIndex:users_username_lower_ux;column:username_lower"`
	Email         string    `gorm:"type:varchar(255);not null;uniqueIndex:users_email_ux;column:email"`
	Password      string    `gorm:"type:varchar(255);not null;column:password"`
	Confirmed     bool      `gorm:"not null;default:false;column:confirmed"`
	Permission    int16     `gorm:"type:smallint;not null;default:0;column:permission"`
	Likes         int64     `gorm:"not null;default:0;column:likes"`
	Dislikes      int64     `gorm:"not null;default:0;column:dislikes"`
	CreatedAt     time.Time `gorm:"not null;column:created_at"`

	// ShowAwaitingReview opts the user into seeing scenes that are
	// still awaiting review
	ShowAwaitingReview bool `gorm:"not null;default:false;column:show_awaiting_review"`

	// Relationships
	Scenes  []Scene       `gorm:"foreignKey:CreatorID;references:ID"`
	Ratings []SceneRating `gorm:"foreignKey:OwnerID;references:ID"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// IsTrusted reports whether the user's scenes are published without
// review
func (u *User) IsTrusted() bool {
	return u.Permission >= PermissionTrusted
}

// IsModerator reports whether the user may see non-public scenes
func (u *User) IsModerator() bool {
	return u.Permission >= PermissionModerator
}
