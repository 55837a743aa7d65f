package scene

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/storytree/storytree/internal/models"
	"github.com/storytree/storytree/internal/tree"
	"github.com/storytree/storytree/pkg/config"
)

// fakeSceneStore is an in-memory SceneStore
type fakeSceneStore struct {
	mu     sync.Mutex
	scenes map[int64]*models.Scene
	nextID int64

	getErr    error
	createErr error

	likeBatches  [][]int64
	dislikeCalls []int64
	created      []*models.Scene
}

func newFakeSceneStore() *fakeSceneStore {
	return &fakeSceneStore{scenes: make(map[int64]*models.Scene), nextID: 100}
}

func (f *fakeSceneStore) put(s *models.Scene) {
	f.scenes[s.ID] = s
}

func (f *fakeSceneStore) GetByID(ctx context.Context, id int64) (*models.Scene, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.scenes[id], nil
}

func (f *fakeSceneStore) GetForView(ctx context.Context, id int64) (*models.Scene, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeSceneStore) Create(ctx context.Context, scene *models.Scene) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	scene.ID = f.nextID
	f.scenes[scene.ID] = scene
	f.created = append(f.created, scene)
	return nil
}

func (f *fakeSceneStore) IncrementLikes(ctx context.Context, ids []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.likeBatches = append(f.likeBatches, ids)
	for _, id := range ids {
		if s, ok := f.scenes[id]; ok {
			s.Likes++
		}
	}
	return nil
}

func (f *fakeSceneStore) IncrementDislikes(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dislikeCalls = append(f.dislikeCalls, id)
	if s, ok := f.scenes[id]; ok {
		s.Dislikes++
	}
	return nil
}

// fakeRatingStore is an in-memory RatingStore
type fakeRatingStore struct {
	mu   sync.Mutex
	rows []models.SceneRating
}

func (f *fakeRatingStore) CreatedSince(ctx context.Context, ownerID int64, since time.Time) ([]models.SceneRating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.SceneRating
	for _, r := range f.rows {
		if r.OwnerID == ownerID && !r.CreatedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRatingStore) CreateBatch(ctx context.Context, ratings []*models.SceneRating) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range ratings {
		f.rows = append(f.rows, *r)
	}
	return nil
}

func (f *fakeRatingStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// fakeMedia is a canned MediaChecker
type fakeMedia struct {
	exists bool
	err    error
	asked  [][]string
}

func (f *fakeMedia) IDsExist(ctx context.Context, ids []string) (bool, error) {
	f.asked = append(f.asked, ids)
	return f.exists, f.err
}

// fakeClock is a settable Clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

type pairSource []tree.Pair

func (p pairSource) SceneRelations(ctx context.Context) ([]tree.Pair, error) {
	return p, nil
}

func childPair(id, parent int64) tree.Pair {
	return tree.Pair{ID: id, Parent: sql.NullInt64{Int64: parent, Valid: true}}
}

// testEnv bundles a service with its fakes
type testEnv struct {
	svc     *Service
	cache   *tree.RelationCache
	scenes  *fakeSceneStore
	ratings *fakeRatingStore
	media   *fakeMedia
	clock   *fakeClock
}

func newTestEnv(t *testing.T, pairs []tree.Pair) *testEnv {
	t.Helper()

	relations := tree.New()
	if err := relations.Build(context.Background(), pairSource(pairs)); err != nil {
		t.Fatalf("failed to build relation cache: %v", err)
	}

	scenes := newFakeSceneStore()
	ratings := &fakeRatingStore{}
	media := &fakeMedia{exists: true}
	clock := &fakeClock{now: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)}

	cfg := &config.VotingConfig{DailyLimit: 5, PropagationDepth: 10}
	svc := NewService(relations, scenes, ratings, media, cfg).WithClock(clock)

	return &testEnv{svc: svc, cache: relations, scenes: scenes, ratings: ratings, media: media, clock: clock}
}

func publicScene(id int64, parent int64, hasParent bool) *models.Scene {
	s := &models.Scene{ID: id, Status: models.StatusPublic, Title: "A scene title"}
	if hasParent {
		s.ParentID = sql.NullInt64{Int64: parent, Valid: true}
	}
	return s
}

func member(id int64) *models.User {
	return &models.User{ID: id, Username: "member", Permission: models.PermissionMember}
}
