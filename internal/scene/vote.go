package scene

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/storytree/storytree/internal/models"
	"github.com/storytree/storytree/pkg/telemetry"
)

// VoteReceipt reports the outcome of a vote. Remaining is optimistic
// relative to counter durability: the likes/dislikes update is still
// in flight when the receipt is returned.
type VoteReceipt struct {
	Remaining int `json:"remaining_votes_today"`
}

// persistTimeout bounds the background write of vote counters
const persistTimeout = 10 * time.Second

// ApplyVote applies one vote by the voter to the scene. Positive
// votes propagate up the ancestor chain, at most propagationDepth
// entries starting from the scene itself, halting at the first
// ancestor the voter already credited today. All rows written by one
// call share one timestamp, so the whole action consumes a single
// unit of the daily allowance no matter how many rows it fans out to.
func (s *Service) ApplyVote(ctx context.Context, sceneID int64, voteType models.RatingType, voter *models.User) (*VoteReceipt, error) {
	ctx, span := telemetry.StartSpan(ctx, "scene.vote")
	defer span.End()

	if !s.cache.Exists(sceneID) {
		return nil, &NotFoundError{SceneID: sceneID}
	}
	if voteType != models.RatingPositive && voteType != models.RatingNegative {
		return nil, &ValidationError{Field: "rating", Message: "rating type must be positive or negative"}
	}

	// Serialize per voter: two concurrent votes by one user must not
	// both pass the allowance check. Rating rows are written before
	// the lock is released so the next vote's read sees them.
	unlock := s.voterLocks.lock(voter.ID)
	defer unlock()

	today := dayStart(s.clock.Now())
	ratingsToday, err := s.ratings.CreatedSince(ctx, voter.ID, today)
	if err != nil {
		return nil, &InternalError{Op: "load today's ratings", Err: err}
	}

	// A propagated vote writes one row per ancestor, all sharing one
	// timestamp; distinct timestamps are the unit of rate consumption.
	ratedAt := make(map[int64]bool)
	ratedScenes := make(map[int64]bool)
	for _, r := range ratingsToday {
		ratedAt[r.CreatedAt.UnixNano()] = true
		ratedScenes[r.SceneID] = true
	}

	// Taken after the query so the limit holds at day-boundary edges
	now := s.clock.Now()

	remaining := s.dailyLimit - len(ratedAt)

	if ratedScenes[sceneID] {
		return nil, &DuplicateVoteError{SceneID: sceneID, Remaining: remaining}
	}
	if remaining <= 0 {
		midnight := dayStart(now).Add(24 * time.Hour)
		return nil, &RateLimitedError{Limit: s.dailyLimit, TimeRemaining: midnight.Sub(now)}
	}

	// Status check last: it is the only gate needing a storage read
	// that requests failing the cheap checks never pay for
	target, err := s.scenes.GetByID(ctx, sceneID)
	if err != nil {
		return nil, &InternalError{Op: "load scene", Err: err}
	}
	if target == nil {
		return nil, &InternalError{Op: "relation cache diverged from storage"}
	}
	if target.Status != models.StatusPublic {
		return nil, &NotPublicError{SceneID: sceneID}
	}

	var credited []int64
	if voteType == models.RatingPositive {
		chain := s.cache.ChainToRoot(sceneID)
		if len(chain) > s.propagationDepth {
			chain = chain[:s.propagationDepth]
		}
		for _, id := range chain {
			if ratedScenes[id] {
				// Halt at the first already-credited ancestor; do not
				// skip past it
				break
			}
			credited = append(credited, id)
		}
	} else {
		credited = []int64{sceneID}
	}

	rows := make([]*models.SceneRating, 0, len(credited))
	for _, id := range credited {
		rows = append(rows, &models.SceneRating{
			Type:      voteType,
			OwnerID:   voter.ID,
			SceneID:   id,
			Day:       today,
			CreatedAt: now,
		})
	}

	if err := s.ratings.CreateBatch(ctx, rows); err != nil {
		if errors.Is(err, models.ErrDuplicateRating) {
			// A racing vote slipped in anyway; the storage constraint
			// absorbed it
			return nil, &DuplicateVoteError{SceneID: sceneID, Remaining: remaining}
		}
		return nil, &InternalError{Op: "persist rating rows", Err: err}
	}

	// Counter updates are fire-and-forget; the receipt is optimistic
	// relative to their durability
	s.persistCounters(voteType, sceneID, credited)

	return &VoteReceipt{Remaining: remaining - 1}, nil
}

// persistCounters updates likes/dislikes in the background. The
// request context may already be gone, so the task carries its own
// bounded one. Failures are logged, never surfaced.
func (s *Service) persistCounters(voteType models.RatingType, sceneID int64, credited []int64) {
	s.writes.Add(1)
	go func() {
		defer s.writes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		var err error
		if voteType == models.RatingPositive {
			err = s.scenes.IncrementLikes(ctx, credited)
		} else {
			err = s.scenes.IncrementDislikes(ctx, sceneID)
		}
		if err != nil {
			s.logger.Error("Failed to update vote counters",
				zap.Int64("scene_id", sceneID),
				zap.Int64s("credited", credited),
				zap.Error(err))
		}
	}()
}
