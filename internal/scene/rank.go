package scene

import (
	"sort"

	"github.com/storytree/storytree/internal/models"
	"github.com/storytree/storytree/internal/tree"
)

// CreatePlaceholderID flags an option slot that creates a new branch
// instead of navigating to an existing child
const CreatePlaceholderID = -1

const (
	createOptionTitle = "Create your action"
	backOptionTitle   = "Go Back!"
)

// Option is one navigation slot offered to the viewer
type Option struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// rankChildren orders children for display: badge count descending,
// then like ratio descending. Ties are unordered.
func rankChildren(children []models.Scene) {
	sort.Slice(children, func(i, j int) bool {
		bi, bj := len(children[i].Badges), len(children[j].Badges)
		if bi != bj {
			return bi > bj
		}
		return children[i].LikeRatio() > children[j].LikeRatio()
	})
}

// buildOptions builds the fixed-length option list from the ranked
// visible children. Create placeholders are offered only under a
// public scene; the back option only when the parent exists and is
// visible to this viewer.
func buildOptions(s *models.Scene, ranked []models.Scene, parentID int64, hasVisibleParent bool) []Option {
	options := make([]Option, 0, tree.MaxChildren+1)

	i := 0
	for ; i < len(ranked) && i < tree.MaxChildren; i++ {
		options = append(options, Option{ID: ranked[i].ID, Title: ranked[i].Title})
	}
	if s.Status == models.StatusPublic {
		for ; i < tree.MaxChildren; i++ {
			options = append(options, Option{ID: CreatePlaceholderID, Title: createOptionTitle})
		}
	}
	if hasVisibleParent {
		options = append(options, Option{ID: parentID, Title: backOptionTitle})
	}
	return options
}
