package scene

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/storytree/storytree/internal/models"
	"github.com/storytree/storytree/internal/tree"
	"github.com/storytree/storytree/pkg/config"
	"github.com/storytree/storytree/pkg/logging"
)

// SceneStore is the persistent-store surface the engine needs for
// scenes
type SceneStore interface {
	// GetByID returns nil, nil when the scene does not exist
	GetByID(ctx context.Context, id int64) (*models.Scene, error)
	// GetForView returns the scene with its badges and its children's
	// badges preloaded; nil, nil when absent
	GetForView(ctx context.Context, id int64) (*models.Scene, error)
	Create(ctx context.Context, scene *models.Scene) error
	IncrementLikes(ctx context.Context, ids []int64) error
	IncrementDislikes(ctx context.Context, id int64) error
}

// RatingStore is the persistent-store surface the engine needs for
// votes
type RatingStore interface {
	// CreatedSince returns the owner's ratings created at or after the
	// given instant
	CreatedSince(ctx context.Context, ownerID int64, since time.Time) ([]models.SceneRating, error)
	CreateBatch(ctx context.Context, ratings []*models.SceneRating) error
}

// MediaChecker resolves external GIF references
type MediaChecker interface {
	IDsExist(ctx context.Context, ids []string) (bool, error)
}

// Clock supplies "now"; injected so the daily window is testable
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock
func SystemClock() Clock { return systemClock{} }

// keyedMutex serializes operations per id. Creation must be
// serialized per parent and voting per voter; without this, two
// requests suspended at a storage call can both pass the same
// read-then-write check.
type keyedMutex struct {
	locks sync.Map // int64 -> *sync.Mutex
}

func (k *keyedMutex) lock(id int64) func() {
	v, _ := k.locks.LoadOrStore(id, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// Service is the scene tree engine: fetch, create and vote operations
// over the relation cache and the persistent store
type Service struct {
	cache   *tree.RelationCache
	scenes  SceneStore
	ratings RatingStore
	media   MediaChecker
	clock   Clock

	dailyLimit       int
	propagationDepth int

	parentLocks keyedMutex
	voterLocks  keyedMutex
	writes      sync.WaitGroup

	logger *zap.Logger
}

// Drain blocks until in-flight background writes finish. Called at
// shutdown so optimistic vote responses are durable before exit.
func (s *Service) Drain() {
	s.writes.Wait()
}

// NewService creates the scene tree engine. The relation cache must
// already be built.
func NewService(cache *tree.RelationCache, scenes SceneStore, ratings RatingStore, media MediaChecker, cfg *config.VotingConfig) *Service {
	return &Service{
		cache:            cache,
		scenes:           scenes,
		ratings:          ratings,
		media:            media,
		clock:            SystemClock(),
		dailyLimit:       cfg.DailyLimit,
		propagationDepth: cfg.PropagationDepth,
		logger:           logging.WithComponent("scene-service"),
	}
}

// WithClock overrides the clock source
func (s *Service) WithClock(clock Clock) *Service {
	s.clock = clock
	return s
}

// Stats returns the process-wide tree counters shown by the
// presentation layer
func (s *Service) Stats() (sceneCount, lastID int64) {
	return s.cache.SceneCount(), s.cache.LastID()
}

// AncestorChain returns the scene's id chain up to the root; used by
// callers to invalidate derived caches along the path a vote touched
func (s *Service) AncestorChain(sceneID int64) []int64 {
	return s.cache.ChainToRoot(sceneID)
}

// dayStart returns local midnight of the instant's day
func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
