package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Riya-023/collaborative-todo-board/pkg/common/cache"
	"github.com/Riya-023/collaborative-todo-board/pkg/models"
)

const activityCacheKey = "activity:recent"

// handleListActivity returns the most recent activity entries, newest
// first. The default feed is cached briefly; requests with an explicit
// limit always go to the database.
func (s *Server) handleListActivity(c *gin.Context) {
	ctx := c.Request.Context()

	limit := s.config.ActivityLimit
	useCache := true
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid limit"})
			return
		}
		if s.config.ActivityLimit > 0 && n > s.config.ActivityLimit {
			n = s.config.ActivityLimit
		}
		useCache = n == limit
		limit = n
	}

	if useCache {
		var cached []*models.Activity
		if err := s.cache.Get(ctx, activityCacheKey, &cached); err == nil && cached != nil {
			c.JSON(http.StatusOK, gin.H{"activities": cached})
			return
		} else if err != nil && !errors.Is(err, cache.ErrNotFound) {
			s.logger.Debug("Activity cache read failed", map[string]interface{}{"error": err.Error()})
		}
	}

	activities, err := s.activities.ListRecent(ctx, limit)
	if err != nil {
		s.logger.Error("Failed to list activity", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to list activity"})
		return
	}

	if useCache {
		_ = s.cache.Set(ctx, activityCacheKey, activities, s.config.TaskCacheTTL)
	}

	c.JSON(http.StatusOK, gin.H{"activities": activities})
}
