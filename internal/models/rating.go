package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrDuplicateRating is returned by rating stores when an insert hits
// the (owner, scene, day) unique constraint
var ErrDuplicateRating = errors.New("duplicate rating for owner, scene and day")

// RatingType is the direction of a vote
type RatingType int16

const (
	// RatingPositive increments likes and propagates up the ancestor chain
	RatingPositive RatingType = 1
	// RatingNegative increments dislikes on the target scene only
	RatingNegative RatingType = -1
)

// ParseRatingType maps a rating name to its variant. Unknown names
// are rejected.
func ParseRatingType(name string) (RatingType, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "POSITIVE":
		return RatingPositive, nil
	case "NEGATIVE":
		return RatingNegative, nil
	default:
		return 0, fmt.Errorf("unknown rating type: %q", name)
	}
}

// SceneRating records one user's judgment on one scene. Ratings
// written by a single propagated vote share one CreatedAt value; the
// daily allowance is counted in distinct timestamps, not rows.
//
// Day is derived from CreatedAt at write time. The composite unique
// index closes the duplicate-vote race at the storage layer: a
// conflicting insert surfaces as a uniqueness violation, reported to
// the voter as a duplicate vote.
type SceneRating struct {
	ID        int64      `gorm:"primaryKey;autoIncrement;column:id"`
	Type      RatingType `gorm:"type:smallint;not null;column:type"`
	OwnerID   int64      `gorm:"not null;uniqueIndex:scene_ratings_owner_scene_day_ux;column:owner_id"`
	SceneID   int64      `gorm:"not null;uniqueIndex:scene_ratings_owner_scene_day_ux;column:scene_id"`
	Day       time.Time  `gorm:"type:date;not null;uniqueIndex:scene_ratings_owner_scene_day_ux;column:day"`
	CreatedAt time.Time  `gorm:"not null;column:created_at"`

	// Relationships
	Owner *User  `gorm:"foreignKey:OwnerID;references:ID"`
	Scene *Scene `gorm:"foreignKey:SceneID;references:ID"`
}

// TableName specifies the table name for SceneRating
func (SceneRating) TableName() string {
	return "scene_ratings"
}
