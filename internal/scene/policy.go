package scene

import (
	"github.com/storytree/storytree/internal/models"
)

// Visible reports whether the viewer may see the scene. Anonymous
// viewers (nil) see only public scenes. The awaiting-review opt-in is
// deliberately narrow: it covers scenes that are specifically
// awaiting review, not every non-public status a future revision may
// add.
func Visible(viewer *models.User, scene *models.Scene) bool {
	if scene.Status == models.StatusPublic {
		return true
	}
	if viewer == nil {
		return false
	}
	if scene.CreatorID.Valid && scene.CreatorID.Int64 == viewer.ID {
		return true
	}
	if viewer.IsModerator() {
		return true
	}
	if viewer.ShowAwaitingReview && scene.Status == models.StatusAwaitingReview {
		return true
	}
	return false
}
