package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pavitra93/go-property-management/shared/config"
	"github.com/pavitra93/go-property-management/shared/utils"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

const requestIDKey = "request_id"

func main() {
	config.LoadEnv()
	utils.InitLogger("gateway")
	cfg := config.Load()

	clients := &ServiceClients{
		Backoffice: NewServiceClient("backoffice", cfg.BackofficeURL),
		Activity:   NewServiceClient("activity", cfg.ActivityURL),
	}

	co := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	utils.Logger.Infof("API Gateway starting on port %s", cfg.GatewayPort)
	if err := http.ListenAndServe(":"+cfg.GatewayPort, co.Handler(newRouter(clients))); err != nil {
		utils.Logger.Fatal("Failed to start API Gateway: ", err)
	}
}

// newRouter sends the activity feed to the activity service and every
// other path to the back office.
func newRouter(clients *ServiceClients) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestID())

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		status, healthy := clients.GetServiceStatus(ctx)
		if !healthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "services": status})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "services": status})
	})

	router.Any("/activity", clients.Activity.ProxyRequest)
	router.Any("/activity/*path", clients.Activity.ProxyRequest)
	router.NoRoute(clients.Backoffice.ProxyRequest)
	return router
}

// requestID tags each request so backend logs can be correlated
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)

		start := time.Now()
		c.Next()
		utils.Logger.WithFields(logrus.Fields{
			"request_id": id,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).String(),
		}).Info("proxied")
	}
}
