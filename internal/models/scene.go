package models

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SceneStatus controls scene visibility and whether the scene may
// receive children or votes
type SceneStatus int16

const (
	// StatusAwaitingReview marks a scene pending moderator review
	StatusAwaitingReview SceneStatus = 20
	// StatusPublic marks a scene visible to everyone
	StatusPublic SceneStatus = 30
)

// ParseSceneStatus maps a status name to its variant. Unknown names
// are rejected rather than silently mapped to a zero value.
func ParseSceneStatus(name string) (SceneStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "AWAITING_REVIEW", "AWAITING_APPROVAL":
		return StatusAwaitingReview, nil
	case "PUBLIC":
		return StatusPublic, nil
	default:
		return 0, fmt.Errorf("unknown scene status: %q", name)
	}
}

// String returns the canonical status name
func (s SceneStatus) String() string {
	switch s {
	case StatusAwaitingReview:
		return "AWAITING_REVIEW"
	case StatusPublic:
		return "PUBLIC"
	default:
		return fmt.Sprintf("SceneStatus(%d)", int16(s))
	}
}

// Scene represents one narrative unit of the story tree
type Scene struct {
	ID          int64         `gorm:"primaryKey;autoIncrement;column:id"`
	ParentID    sql.NullInt64 `gorm:"column:parent_id"`
	CreatorID   sql.NullInt64 `gorm:"column:creator_id"`
	CreatorName string        `gorm:"type:varchar(32);not null;column:creator_name"`
	Title       string        `gorm:"type:varchar(40);not null;column:title"`
	Description string        `gorm:"type:text;not null;column:description"`
	GifID       string        `gorm:"type:varchar(32);not null;column:gif_id"`
	Likes       int64         `gorm:"not null;default:0;column:likes"`
	Dislikes    int64         `gorm:"not null;default:0;column:dislikes"`
	Status      SceneStatus   `gorm:"type:smallint;not null;column:status"`
	CreatedAt   time.Time     `gorm:"not null;column:created_at"`

	// Relationships
	Parent   *Scene  `gorm:"foreignKey:ParentID;references:ID"`
	Children []Scene `gorm:"foreignKey:ParentID;references:ID"`
	Creator  *User   `gorm:"foreignKey:CreatorID;references:ID"`
	Badges   []Badge `gorm:"many2many:scene_badges"`
}

// TableName specifies the table name for Scene
func (Scene) TableName() string {
	return "scenes"
}

// LikeRatio returns the like ratio used as the secondary ranking key.
// The +1 in the denominator guards against division by zero and
// discounts scenes with very few votes.
func (s *Scene) LikeRatio() float64 {
	return float64(s.Likes) / float64(s.Likes+s.Dislikes+1)
}
