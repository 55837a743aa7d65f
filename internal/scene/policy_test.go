package scene

import (
	"database/sql"
	"testing"

	"github.com/storytree/storytree/internal/models"
)

func TestVisible(t *testing.T) {
	creator := &models.User{ID: 7, Permission: models.PermissionMember}
	stranger := &models.User{ID: 8, Permission: models.PermissionMember}
	moderator := &models.User{ID: 9, Permission: models.PermissionModerator}
	optedIn := &models.User{ID: 10, Permission: models.PermissionMember, ShowAwaitingReview: true}

	awaiting := &models.Scene{
		ID:        1,
		Status:    models.StatusAwaitingReview,
		CreatorID: sql.NullInt64{Int64: creator.ID, Valid: true},
	}
	public := &models.Scene{
		ID:        2,
		Status:    models.StatusPublic,
		CreatorID: sql.NullInt64{Int64: creator.ID, Valid: true},
	}
	// An imaginary future non-public status the opt-in must not cover
	rejected := &models.Scene{ID: 3, Status: models.SceneStatus(10)}

	tests := []struct {
		name   string
		viewer *models.User
		scene  *models.Scene
		want   bool
	}{
		{name: "public scene, anonymous", viewer: nil, scene: public, want: true},
		{name: "public scene, stranger", viewer: stranger, scene: public, want: true},
		{name: "awaiting scene, anonymous", viewer: nil, scene: awaiting, want: false},
		{name: "awaiting scene, stranger", viewer: stranger, scene: awaiting, want: false},
		{name: "awaiting scene, creator", viewer: creator, scene: awaiting, want: true},
		{name: "awaiting scene, moderator", viewer: moderator, scene: awaiting, want: true},
		{name: "awaiting scene, opted-in viewer", viewer: optedIn, scene: awaiting, want: true},
		{name: "other non-public status, opted-in viewer", viewer: optedIn, scene: rejected, want: false},
		{name: "other non-public status, moderator", viewer: moderator, scene: rejected, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Visible(tt.viewer, tt.scene); got != tt.want {
				t.Errorf("Visible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVisibleSeveredCreator(t *testing.T) {
	// Creator account deleted: CreatorID is null, nobody matches it
	orphan := &models.Scene{ID: 4, Status: models.StatusAwaitingReview}
	viewer := &models.User{ID: 0, Permission: models.PermissionMember}

	if Visible(viewer, orphan) {
		t.Error("a null creator id must not match any viewer")
	}
}
