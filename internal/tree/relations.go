package tree

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/storytree/storytree/pkg/logging"
)

// MaxChildren bounds the fan-out of every scene
const MaxChildren = 3

// Pair is one (scene, parent) row from storage. Parent is null only
// for the root scene.
type Pair struct {
	ID     int64
	Parent sql.NullInt64
}

// Source yields every scene's (id, parent) pair for a full cache build
type Source interface {
	SceneRelations(ctx context.Context) ([]Pair, error)
}

type relation struct {
	parent    int64
	hasParent bool
	children  []int64
}

// RelationCache is the in-memory adjacency index of the scene tree.
// It is built once at startup from storage, read by every fetch,
// create and vote operation, and grows append-only when scenes are
// created. It is always rebuildable from storage; after a crash the
// rebuilt cache is consistent because the cache is purely derived.
type RelationCache struct {
	mu         sync.RWMutex
	relations  map[int64]*relation
	sceneCount int64
	lastID     int64
	logger     *zap.Logger
}

// New creates an empty relation cache. Build must run before the
// cache serves any query.
func New() *RelationCache {
	return &RelationCache{
		relations:  make(map[int64]*relation),
		sceneCount: -1,
		lastID:     -1,
		logger:     logging.WithComponent("relation-cache"),
	}
}

// Build populates the cache with a full scan of storage. A failure
// here is a startup precondition violation, not a runtime-recoverable
// error; the caller is expected to abort.
func (c *RelationCache) Build(ctx context.Context, src Source) error {
	pairs, err := src.SceneRelations(ctx)
	if err != nil {
		return fmt.Errorf("failed to load scene relations: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.relations = make(map[int64]*relation, len(pairs))
	c.sceneCount = int64(len(pairs)) - 1 // excludes the root, whose parent is null
	c.lastID = -1

	for _, p := range pairs {
		c.relations[p.ID] = &relation{
			parent:    p.Parent.Int64,
			hasParent: p.Parent.Valid,
		}
		if p.ID > c.lastID {
			c.lastID = p.ID
		}
	}
	for _, p := range pairs {
		if !p.Parent.Valid {
			continue
		}
		if parent, ok := c.relations[p.Parent.Int64]; ok {
			parent.children = append(parent.children, p.ID)
		}
	}

	c.logger.Info("Relation cache built",
		zap.Int64("scene_count", c.sceneCount),
		zap.Int64("last_id", c.lastID))

	return nil
}

// Add registers a newly created scene under its parent. It returns
// false without mutating state when the child already has an entry or
// the parent has none. Callers must serialize creations per parent:
// two concurrent Add calls for the same parent must not both have
// observed a free slot.
func (c *RelationCache) Add(child, parent int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.relations[child]; ok {
		return false
	}
	p, ok := c.relations[parent]
	if !ok {
		return false
	}

	c.relations[child] = &relation{parent: parent, hasParent: true}
	p.children = append(p.children, child)

	c.sceneCount++
	if child > c.lastID {
		c.lastID = child
	}

	return true
}

// Exists reports whether the scene id is known to the cache
func (c *RelationCache) Exists(id int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.relations[id]
	return ok
}

// ParentID returns the scene's parent id. The second result is false
// for the root scene and for unknown ids.
func (c *RelationCache) ParentID(id int64) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.relations[id]
	if !ok || !r.hasParent {
		return 0, false
	}
	return r.parent, true
}

// ChildrenIDs returns the scene's child ids in insertion order
func (c *RelationCache) ChildrenIDs(id int64) []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.relations[id]
	if !ok {
		return nil
	}
	out := make([]int64, len(r.children))
	copy(out, r.children)
	return out
}

// ChainToRoot returns [id, parent(id), ...] ending at the root
func (c *RelationCache) ChainToRoot(id int64) []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	chain := []int64{id}
	r, ok := c.relations[id]
	if !ok {
		return chain
	}
	for r.hasParent {
		chain = append(chain, r.parent)
		r, ok = c.relations[r.parent]
		if !ok {
			break
		}
	}
	return chain
}

// HasFreeSlot reports whether the scene can accept another child
func (c *RelationCache) HasFreeSlot(id int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.relations[id]
	if !ok {
		return false
	}
	return len(r.children) < MaxChildren
}

// MaxChildren returns the fan-out bound
func (c *RelationCache) MaxChildren() int {
	return MaxChildren
}

// SceneCount returns the number of scenes excluding the root
func (c *RelationCache) SceneCount() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sceneCount
}

// LastID returns the highest scene id ever observed. It is distinct
// from SceneCount when deleted scenes have left holes in the id
// sequence.
func (c *RelationCache) LastID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastID
}
