package scene

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/storytree/storytree/internal/models"
	"github.com/storytree/storytree/pkg/telemetry"
)

const (
	titleMinLen       = 5
	titleMaxLen       = 40
	descriptionMinLen = 80
	descriptionMaxLen = 3000
)

var (
	multiSpaceRE    = regexp.MustCompile(`[ ]{2,}`)
	lineEdgeSpaceRE = regexp.MustCompile(`(?m)^[ ]+|[ ]+$`)
	lineBreakRE     = regexp.MustCompile(`[\r\n\t\f\v]+`)
	anyWhitespaceRE = regexp.MustCompile(`\s{2,}`)
)

// CreateInput holds the author-supplied fields of a new scene
type CreateInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	GifID       string `json:"gif_id"`
}

// normalizeTitle trims the ends and collapses internal whitespace
// runs to single spaces
func normalizeTitle(title string) string {
	return anyWhitespaceRE.ReplaceAllString(strings.TrimSpace(title), " ")
}

// normalizeDescription trims each line's edges, collapses space runs
// and replaces line-break runs with the literal escape sequence the
// renderer expects
func normalizeDescription(desc string) string {
	desc = strings.TrimSpace(desc)
	desc = lineEdgeSpaceRE.ReplaceAllString(desc, "")
	desc = multiSpaceRE.ReplaceAllString(desc, " ")
	return lineBreakRE.ReplaceAllString(desc, `\n`)
}

// CreateChild validates the input and creates a new scene under the
// parent, reserving the child slot in the relation cache. Trusted
// authors publish immediately; everyone else's scenes await review.
func (s *Service) CreateChild(ctx context.Context, parentID int64, author *models.User, in CreateInput) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "scene.create")
	defer span.End()

	if !s.cache.Exists(parentID) {
		return 0, &NotFoundError{SceneID: parentID}
	}

	// Serialize per parent: the free-slot check and the cache insert
	// are separated by storage I/O, and two creators racing for the
	// last slot must not both pass the check.
	unlock := s.parentLocks.lock(parentID)
	defer unlock()

	parent, err := s.scenes.GetByID(ctx, parentID)
	if err != nil {
		return 0, &InternalError{Op: "load parent scene", Err: err}
	}
	if parent == nil {
		return 0, &InternalError{Op: "relation cache diverged from storage"}
	}
	if parent.Status != models.StatusPublic {
		return 0, &ParentNotPublicError{ParentID: parentID}
	}

	if !s.cache.HasFreeSlot(parentID) {
		return 0, &SlotsFullError{ParentID: parentID}
	}

	title := normalizeTitle(in.Title)
	if n := utf8.RuneCountInString(title); n < titleMinLen || n > titleMaxLen {
		return 0, &ValidationError{
			Field:   "title",
			Message: fmt.Sprintf("title length must be between %d and %d characters", titleMinLen, titleMaxLen),
		}
	}

	description := normalizeDescription(in.Description)
	if n := utf8.RuneCountInString(description); n < descriptionMinLen || n > descriptionMaxLen {
		return 0, &ValidationError{
			Field:   "description",
			Message: fmt.Sprintf("description length must be between %d and %d characters", descriptionMinLen, descriptionMaxLen),
		}
	}

	gifID := strings.TrimSpace(in.GifID)
	if gifID == "" {
		return 0, &ValidationError{Field: "gif_id", Message: "gif id is required"}
	}
	ok, err := s.media.IDsExist(ctx, []string{gifID})
	if err != nil {
		return 0, &InternalError{Op: "media lookup", Err: err}
	}
	if !ok {
		return 0, &ValidationError{Field: "gif_id", Message: "gif id is invalid"}
	}

	status := models.StatusAwaitingReview
	if author.IsTrusted() {
		status = models.StatusPublic
	}

	sc := &models.Scene{
		ParentID:    sql.NullInt64{Int64: parentID, Valid: true},
		CreatorID:   sql.NullInt64{Int64: author.ID, Valid: true},
		CreatorName: author.Username,
		Title:       title,
		Description: description,
		GifID:       gifID,
		Status:      status,
		CreatedAt:   s.clock.Now(),
	}

	if err := s.scenes.Create(ctx, sc); err != nil {
		return 0, &InternalError{Op: "persist scene", Err: err}
	}

	if !s.cache.Add(sc.ID, parentID) {
		// The slot check above should make this impossible; a false
		// return means per-parent serialization was broken
		s.logger.Error("Relation cache rejected a created scene",
			zap.Int64("scene_id", sc.ID),
			zap.Int64("parent_id", parentID))
		return 0, &InternalError{Op: "register scene relation"}
	}

	return sc.ID, nil
}
