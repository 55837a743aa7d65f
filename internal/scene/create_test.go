package scene

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/storytree/storytree/internal/models"
	"github.com/storytree/storytree/internal/tree"
)

func validInput() CreateInput {
	return CreateInput{
		Title:       "A brand new branch",
		Description: strings.Repeat("x", 80),
		GifID:       "g1",
	}
}

func trusted(id int64) *models.User {
	return &models.User{ID: id, Username: "trusted", Permission: models.PermissionTrusted}
}

func TestCreateChildUnknownParent(t *testing.T) {
	env := newTestEnv(t, []tree.Pair{{ID: 0}})
	env.scenes.put(publicScene(0, 0, false))

	_, err := env.svc.CreateChild(context.Background(), 42, member(1), validInput())

	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestCreateChildParentNotPublic(t *testing.T) {
	env := newTestEnv(t, []tree.Pair{{ID: 0}, childPair(1, 0)})
	env.scenes.put(publicScene(0, 0, false))
	env.scenes.put(&models.Scene{ID: 1, Status: models.StatusAwaitingReview})

	_, err := env.svc.CreateChild(context.Background(), 1, member(1), validInput())

	var notPublic *ParentNotPublicError
	if !errors.As(err, &notPublic) {
		t.Fatalf("expected ParentNotPublicError, got %v", err)
	}
}

func TestCreateChildSlotsFull(t *testing.T) {
	env := newTestEnv(t, []tree.Pair{
		{ID: 0}, childPair(1, 0), childPair(2, 0), childPair(3, 0),
	})
	env.scenes.put(publicScene(0, 0, false))
	countBefore := env.cache.SceneCount()

	_, err := env.svc.CreateChild(context.Background(), 0, member(1), validInput())

	var full *SlotsFullError
	if !errors.As(err, &full) {
		t.Fatalf("expected SlotsFullError, got %v", err)
	}
	if env.cache.SceneCount() != countBefore {
		t.Error("rejected creation must not mutate the cache")
	}
	if len(env.scenes.created) != 0 {
		t.Error("rejected creation must not write a scene row")
	}
}

func TestCreateChildValidation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*CreateInput)
		wantField string
	}{
		{
			name:      "title too short",
			mutate:    func(in *CreateInput) { in.Title = "1234" },
			wantField: "title",
		},
		{
			name:      "title too long",
			mutate:    func(in *CreateInput) { in.Title = strings.Repeat("a", 41) },
			wantField: "title",
		},
		{
			name: "title of spaces collapses below minimum",
			mutate: func(in *CreateInput) {
				in.Title = "  a    b  " // "a b" after normalization
			},
			wantField: "title",
		},
		{
			name:      "description too short",
			mutate:    func(in *CreateInput) { in.Description = strings.Repeat("x", 79) },
			wantField: "description",
		},
		{
			name:      "description too long",
			mutate:    func(in *CreateInput) { in.Description = strings.Repeat("x", 3001) },
			wantField: "description",
		},
		{
			name:      "missing gif id",
			mutate:    func(in *CreateInput) { in.GifID = "  " },
			wantField: "gif_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, []tree.Pair{{ID: 0}})
			env.scenes.put(publicScene(0, 0, false))

			in := validInput()
			tt.mutate(&in)

			_, err := env.svc.CreateChild(context.Background(), 0, member(1), in)

			var validation *ValidationError
			if !errors.As(err, &validation) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if validation.Field != tt.wantField {
				t.Errorf("field = %q, want %q", validation.Field, tt.wantField)
			}
			if len(env.scenes.created) != 0 {
				t.Error("failed validation must not write a scene row")
			}
			if env.cache.SceneCount() != 0 {
				t.Error("failed validation must not mutate the cache")
			}
		})
	}
}

func TestCreateChildInvalidGif(t *testing.T) {
	env := newTestEnv(t, []tree.Pair{{ID: 0}})
	env.scenes.put(publicScene(0, 0, false))
	env.media.exists = false

	_, err := env.svc.CreateChild(context.Background(), 0, member(1), validInput())

	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if validation.Field != "gif_id" {
		t.Errorf("field = %q, want %q", validation.Field, "gif_id")
	}
}

func TestCreateChildMediaUnavailable(t *testing.T) {
	env := newTestEnv(t, []tree.Pair{{ID: 0}})
	env.scenes.put(publicScene(0, 0, false))
	env.media.err = fmt.Errorf("connection refused")

	_, err := env.svc.CreateChild(context.Background(), 0, member(1), validInput())

	var internal *InternalError
	if !errors.As(err, &internal) {
		t.Fatalf("media outage should be an InternalError, got %v", err)
	}
}

func TestCreateChildStatusByAuthorRole(t *testing.T) {
	tests := []struct {
		name   string
		author *models.User
		want   models.SceneStatus
	}{
		{name: "regular author awaits review", author: member(1), want: models.StatusAwaitingReview},
		{name: "trusted author publishes immediately", author: trusted(2), want: models.StatusPublic},
		{name: "moderator publishes immediately", author: &models.User{ID: 3, Permission: models.PermissionModerator}, want: models.StatusPublic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, []tree.Pair{{ID: 0}})
			env.scenes.put(publicScene(0, 0, false))

			id, err := env.svc.CreateChild(context.Background(), 0, tt.author, validInput())
			if err != nil {
				t.Fatalf("CreateChild failed: %v", err)
			}

			created := env.scenes.scenes[id]
			if created.Status != tt.want {
				t.Errorf("status = %v, want %v", created.Status, tt.want)
			}
			if created.CreatorName != tt.author.Username {
				t.Errorf("creator_name = %q, want %q", created.CreatorName, tt.author.Username)
			}
		})
	}
}

func TestCreateChildUpdatesCache(t *testing.T) {
	env := newTestEnv(t, []tree.Pair{{ID: 0}})
	env.scenes.put(publicScene(0, 0, false))

	id, err := env.svc.CreateChild(context.Background(), 0, member(1), validInput())
	if err != nil {
		t.Fatalf("CreateChild failed: %v", err)
	}

	if !env.cache.Exists(id) {
		t.Error("created scene should be in the relation cache")
	}
	if got := env.cache.ChildrenIDs(0); len(got) != 1 || got[0] != id {
		t.Errorf("ChildrenIDs(0) = %v, want [%d]", got, id)
	}
	if !env.cache.HasFreeSlot(0) {
		t.Error("root should still have free slots at 1/3 filled")
	}
	if env.cache.LastID() != id {
		t.Errorf("LastID = %d, want %d", env.cache.LastID(), id)
	}
	if env.cache.SceneCount() != 1 {
		t.Errorf("SceneCount = %d, want 1", env.cache.SceneCount())
	}
}

func TestCreateChildNormalizesFields(t *testing.T) {
	env := newTestEnv(t, []tree.Pair{{ID: 0}})
	env.scenes.put(publicScene(0, 0, false))

	in := CreateInput{
		Title:       "  Many    spaces \t here  ",
		Description: "  line one  \nline   two\r\n\r\n" + strings.Repeat("x", 80),
		GifID:       "g1",
	}

	id, err := env.svc.CreateChild(context.Background(), 0, member(1), in)
	if err != nil {
		t.Fatalf("CreateChild failed: %v", err)
	}

	created := env.scenes.scenes[id]
	if created.Title != "Many spaces here" {
		t.Errorf("title = %q, want %q", created.Title, "Many spaces here")
	}
	if strings.ContainsAny(created.Description, "\r\n") {
		t.Errorf("description should have literal escapes, got %q", created.Description)
	}
	if !strings.Contains(created.Description, `\n`) {
		t.Errorf("description should keep normalized line breaks, got %q", created.Description)
	}
}

func TestCreateChildConcurrentLastSlot(t *testing.T) {
	// Parent 0 has 2/3 slots filled; two racing creators
	env := newTestEnv(t, []tree.Pair{{ID: 0}, childPair(1, 0), childPair(2, 0)})
	env.scenes.put(publicScene(0, 0, false))

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			_, err := env.svc.CreateChild(context.Background(), 0, member(n), validInput())
			results <- err
		}(int64(i + 1))
	}
	wg.Wait()
	close(results)

	var successes, slotFailures int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		var full *SlotsFullError
		if errors.As(err, &full) {
			slotFailures++
		} else {
			t.Errorf("unexpected error: %v", err)
		}
	}

	if successes != 1 || slotFailures != 1 {
		t.Errorf("got %d successes and %d slot failures, want exactly 1 and 1", successes, slotFailures)
	}
	if got := len(env.cache.ChildrenIDs(0)); got != tree.MaxChildren {
		t.Errorf("parent has %d children, want %d", got, tree.MaxChildren)
	}
}
