package scene

import (
	"fmt"
	"time"
)

// Scene errors fall into four groups. Structural errors (NotFound,
// SlotsFull, ParentNotPublic) are violations of tree invariants.
// Policy errors (NotVisible, NotPublic, DuplicateVote, RateLimited)
// are business-rule rejections. Validation errors carry the offending
// field. Internal errors indicate cache/storage divergence or a lost
// race that serialization should have prevented; they are logged and
// surfaced opaquely.

// NotFoundError is returned when a scene id is unknown to the
// relation cache
type NotFoundError struct {
	SceneID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("scene id=%d does not exist or has been removed", e.SceneID)
}

// NotVisibleError is returned when the visibility policy denies the
// viewer access to the scene
type NotVisibleError struct {
	SceneID int64
}

func (e *NotVisibleError) Error() string {
	return fmt.Sprintf("scene id=%d is not visible to you", e.SceneID)
}

// NotPublicError is returned when a non-public scene is voted on
type NotPublicError struct {
	SceneID int64
}

func (e *NotPublicError) Error() string {
	return fmt.Sprintf("scene id=%d is not public and cannot be rated", e.SceneID)
}

// ParentNotPublicError is returned when a child is created under a
// non-public parent
type ParentNotPublicError struct {
	ParentID int64
}

func (e *ParentNotPublicError) Error() string {
	return fmt.Sprintf("parent scene id=%d is not public and cannot accept children", e.ParentID)
}

// SlotsFullError is returned when the parent has no free child slot
type SlotsFullError struct {
	ParentID int64
}

func (e *SlotsFullError) Error() string {
	return fmt.Sprintf("there are no more children available for parent scene id=%d", e.ParentID)
}

// ValidationError names the field that failed input validation
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// DuplicateVoteError is returned when the voter already voted on this
// scene today. Remaining is the voter's unchanged daily allowance.
type DuplicateVoteError struct {
	SceneID   int64
	Remaining int
}

func (e *DuplicateVoteError) Error() string {
	return fmt.Sprintf("your vote is already counted for scene id=%d, remaining daily ratings: %d", e.SceneID, e.Remaining)
}

// RateLimitedError is returned when the daily vote allowance is spent.
// TimeRemaining is the wall-clock time until local midnight.
type RateLimitedError struct {
	Limit         int
	TimeRemaining time.Duration
}

func (e *RateLimitedError) Error() string {
	sec := int(e.TimeRemaining.Seconds())
	hrs := sec / 3600
	min := sec/60 - hrs*60
	sec -= min*60 + hrs*3600
	return fmt.Sprintf("you can only vote %d times per day, time remaining: %dh:%dm:%ds", e.Limit, hrs, min, sec)
}

// InternalError wraps failures that are not the caller's fault:
// storage errors, cache/storage divergence, or a creation race lost
// after the slot check passed
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

func (e *InternalError) Unwrap() error {
	return e.Err
}
