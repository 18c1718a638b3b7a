package main

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pavitra93/go-property-management/shared/middleware"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/scope"
	"github.com/pavitra93/go-property-management/shared/store"
	"github.com/pavitra93/go-property-management/shared/utils"
	"github.com/sirupsen/logrus"
)

const (
	defaultFeedLimit = 50
	maxFeedLimit     = 500
)

// statsSource reports consumer progress; nil when no consumer runs
type statsSource interface {
	Stats() ConsumerStats
}

func newRouter(s *store.Store, consumer statsSource, auth *middleware.AuthMiddleware) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/health", handleHealth(s))

	authed := router.Group("/")
	authed.Use(auth.RequireAuth())
	{
		authed.GET("/activity", handleFeed(s))
		authed.GET("/activity/stats", auth.RequireRole(models.RoleSuperAdmin), handleStats(consumer))
	}
	return router
}

func handleHealth(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "service": "activity", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "activity"})
	}
}

// handleFeed returns the caller's activity, newest first
func handleFeed(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)

		limit := defaultFeedLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				utils.BadRequestResponse(c, "limit must be a positive integer")
				return
			}
			limit = min(n, maxFeedLimit)
		}

		var (
			feed []models.Activity
			err  error
		)
		ids, all := scope.PropertyIDs(user)
		switch propertyID := c.Query("property_id"); {
		case propertyID != "":
			if !scope.Allows(user, propertyID) {
				utils.ForbiddenResponse(c, "Property outside your assignment")
				return
			}
			feed, err = store.GetByPropertyID(c.Request.Context(), s.Activities, propertyID)
		case all:
			feed, err = s.Activities.GetAll(c.Request.Context())
		default:
			feed, err = store.GetByPropertyIDs(c.Request.Context(), s.Activities, ids...)
		}
		if err != nil {
			if store.IsTransient(err) {
				utils.ServiceUnavailableResponse(c, "Store temporarily unavailable")
				return
			}
			utils.Logger.WithError(err).Error("Failed to load activity feed")
			utils.InternalServerErrorResponse(c, "Failed to load activity")
			return
		}

		feed = scope.Filter(feed, user)
		sort.SliceStable(feed, func(i, j int) bool {
			if !feed[i].OccurredAt.Equal(feed[j].OccurredAt) {
				return feed[i].OccurredAt.After(feed[j].OccurredAt)
			}
			return feed[i].ID > feed[j].ID
		})
		if len(feed) > limit {
			feed = feed[:limit]
		}
		utils.OKResponse(c, "Activity retrieved successfully", feed)
	}
}

func handleStats(consumer statsSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		if consumer == nil {
			utils.ServiceUnavailableResponse(c, "Event consumer not running")
			return
		}
		utils.OKResponse(c, "Consumer stats retrieved successfully", consumer.Stats())
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		utils.Logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Info("request")
	}
}
