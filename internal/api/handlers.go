package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storytree/storytree/internal/cache"
	"github.com/storytree/storytree/internal/models"
	"github.com/storytree/storytree/internal/scene"
)

// viewCacheTTL bounds staleness of cached anonymous scene views
const viewCacheTTL = 30 * time.Second

// viewer resolves the authenticated user for the request, or nil for
// anonymous requests. Authentication itself happens upstream; the
// session middleware forwards the account id in X-User-ID.
func (r *Router) viewer(c *gin.Context) (*models.User, error) {
	header := c.GetHeader("X-User-ID")
	if header == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(header, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed X-User-ID: %w", err)
	}
	return r.users.GetByID(c.Request.Context(), id)
}

func sceneParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scene id must be a whole number"})
		return 0, false
	}
	return id, true
}

func viewKey(sceneID int64) string {
	return cache.HashKey("scene_view", strconv.FormatInt(sceneID, 10))
}

// fetchScene handles GET /scene/:id
func (r *Router) fetchScene(c *gin.Context) {
	id, ok := sceneParam(c)
	if !ok {
		return
	}

	user, err := r.viewer(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid viewer"})
		return
	}

	// Only anonymous views are cacheable; visibility is viewer-specific
	if user == nil && r.cache != nil {
		var cached scene.View
		if err := r.cache.GetJSON(viewKey(id), &cached); err == nil {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	view, err := r.service.Fetch(c.Request.Context(), id, user)
	if err != nil {
		r.renderError(c, err)
		return
	}

	if user == nil && r.cache != nil {
		if err := r.cache.SetJSON(viewKey(id), view, viewCacheTTL); err != nil && err != cache.ErrCacheDisabled {
			r.logger.Warn("Failed to cache scene view", zap.Int64("scene_id", id), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, view)
}

type rateRequest struct {
	Rating string `json:"rating"`
}

// rateScene handles POST /scene/:id/rate
func (r *Router) rateScene(c *gin.Context) {
	id, ok := sceneParam(c)
	if !ok {
		return
	}

	user, err := r.viewer(c)
	if err != nil || user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "you must be logged in to do this"})
		return
	}

	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating type must be positive or negative"})
		return
	}
	voteType, err := models.ParseRatingType(req.Rating)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating type must be positive or negative"})
		return
	}

	receipt, err := r.service.ApplyVote(c.Request.Context(), id, voteType, user)
	if err != nil {
		r.renderError(c, err)
		return
	}

	r.invalidateViews(r.service.AncestorChain(id))

	c.JSON(http.StatusOK, gin.H{
		"info":                  fmt.Sprintf("successfully rated scene id=%d", id),
		"remaining_votes_today": receipt.Remaining,
	})
}

// createScene handles POST /scene/:id/children
func (r *Router) createScene(c *gin.Context) {
	parentID, ok := sceneParam(c)
	if !ok {
		return
	}

	user, err := r.viewer(c)
	if err != nil || user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "you must be logged in to do this"})
		return
	}

	var in scene.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one of the fields is malformed"})
		return
	}

	newID, err := r.service.CreateChild(c.Request.Context(), parentID, user, in)
	if err != nil {
		r.renderError(c, err)
		return
	}

	r.invalidateViews([]int64{parentID})

	c.JSON(http.StatusCreated, gin.H{
		"info":         "successfully created scene",
		"new_scene_id": newID,
	})
}

// invalidateViews drops cached anonymous views for the given scenes
func (r *Router) invalidateViews(ids []int64) {
	if r.cache == nil {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = viewKey(id)
	}
	if err := r.cache.Delete(keys...); err != nil && err != cache.ErrCacheDisabled {
		r.logger.Warn("Failed to invalidate scene views", zap.Int64s("scene_ids", ids), zap.Error(err))
	}
}
