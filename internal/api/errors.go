package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storytree/storytree/internal/scene"
)

// renderError maps core errors to HTTP responses. Structural and
// policy rejections are user-facing with structured data; internal
// errors are logged and surfaced opaquely.
func (r *Router) renderError(c *gin.Context, err error) {
	var (
		notFound     *scene.NotFoundError
		notVisible   *scene.NotVisibleError
		notPublic    *scene.NotPublicError
		parentHidden *scene.ParentNotPublicError
		slotsFull    *scene.SlotsFullError
		validation   *scene.ValidationError
		duplicate    *scene.DuplicateVoteError
		rateLimited  *scene.RateLimitedError
		internal     *scene.InternalError
	)

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &notVisible):
		c.JSON(http.StatusForbidden, gin.H{"error": notVisible.Error()})
	case errors.As(err, &notPublic):
		c.JSON(http.StatusBadRequest, gin.H{"error": notPublic.Error()})
	case errors.As(err, &parentHidden):
		c.JSON(http.StatusBadRequest, gin.H{"error": parentHidden.Error()})
	case errors.As(err, &slotsFull):
		c.JSON(http.StatusConflict, gin.H{"error": slotsFull.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": validation.Error(),
			"field": validation.Field,
		})
	case errors.As(err, &duplicate):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":                 duplicate.Error(),
			"remaining_votes_today": duplicate.Remaining,
		})
	case errors.As(err, &rateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":                  rateLimited.Error(),
			"time_remaining_seconds": int(rateLimited.TimeRemaining.Seconds()),
		})
	case errors.As(err, &internal):
		r.logger.Error("Internal error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	default:
		r.logger.Error("Unclassified error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
