package scene

import (
	"context"
	"time"

	"github.com/storytree/storytree/internal/models"
	"github.com/storytree/storytree/pkg/telemetry"
)

// ScenePayload is the viewer-facing shape of a scene. Children are
// deliberately absent; they surface only through ranked options.
type ScenePayload struct {
	ID          int64          `json:"id"`
	ParentID    *int64         `json:"parent_id"`
	CreatorName string         `json:"creator_name"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	GifID       string         `json:"gif_id"`
	Likes       int64          `json:"likes"`
	Dislikes    int64          `json:"dislikes"`
	Status      string         `json:"status"`
	Created     time.Time      `json:"created"`
	Badges      []BadgePayload `json:"badges"`
}

// BadgePayload is the viewer-facing shape of a badge
type BadgePayload struct {
	Name        string `json:"name"`
	BgColor     string `json:"bg_color"`
	Description string `json:"description"`
	DataURI     string `json:"data_uri,omitempty"`
}

func newScenePayload(sc *models.Scene) *ScenePayload {
	p := &ScenePayload{
		ID:          sc.ID,
		CreatorName: sc.CreatorName,
		Title:       sc.Title,
		Description: sc.Description,
		GifID:       sc.GifID,
		Likes:       sc.Likes,
		Dislikes:    sc.Dislikes,
		Status:      sc.Status.String(),
		Created:     sc.CreatedAt,
		Badges:      make([]BadgePayload, 0, len(sc.Badges)),
	}
	if sc.ParentID.Valid {
		pid := sc.ParentID.Int64
		p.ParentID = &pid
	}
	for _, b := range sc.Badges {
		p.Badges = append(p.Badges, BadgePayload{
			Name:        b.Name,
			BgColor:     b.BgColor,
			Description: b.Description,
			DataURI:     b.DataURI,
		})
	}
	return p
}

// View is the data set the presentation layer renders for one scene
type View struct {
	Scene   *ScenePayload `json:"scene"`
	Options []Option      `json:"options"`

	// Process-wide tree counters
	SceneCount int64 `json:"scene_count"`
	LastID     int64 `json:"last_id"`
}

// Fetch loads a scene with its ranked child options for the viewer.
// viewer may be nil for anonymous requests.
func (s *Service) Fetch(ctx context.Context, sceneID int64, viewer *models.User) (*View, error) {
	ctx, span := telemetry.StartSpan(ctx, "scene.fetch")
	defer span.End()

	if !s.cache.Exists(sceneID) {
		return nil, &NotFoundError{SceneID: sceneID}
	}

	sc, err := s.scenes.GetForView(ctx, sceneID)
	if err != nil {
		return nil, &InternalError{Op: "load scene", Err: err}
	}
	if sc == nil {
		// Cache says the scene exists but storage disagrees
		return nil, &InternalError{Op: "relation cache diverged from storage"}
	}

	if !Visible(viewer, sc) {
		return nil, &NotVisibleError{SceneID: sceneID}
	}

	visible := sc.Children[:0:0]
	for _, child := range sc.Children {
		if Visible(viewer, &child) {
			visible = append(visible, child)
		}
	}
	rankChildren(visible)

	parentID, hasParent := s.cache.ParentID(sceneID)
	hasVisibleParent := false
	if hasParent {
		parent, err := s.scenes.GetByID(ctx, parentID)
		if err != nil {
			return nil, &InternalError{Op: "load parent scene", Err: err}
		}
		hasVisibleParent = parent != nil && Visible(viewer, parent)
	}

	sceneCount, lastID := s.Stats()

	return &View{
		Scene:      newScenePayload(sc),
		Options:    buildOptions(sc, visible, parentID, hasVisibleParent),
		SceneCount: sceneCount,
		LastID:     lastID,
	}, nil
}
